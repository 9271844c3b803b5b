// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"io"
	"math/rand"

	"github.com/born-ml/mlp/internal/nn"
	"github.com/born-ml/mlp/internal/serialization"
)

// Activation selects the nonlinearity applied after a layer's weighted sum.
type Activation = nn.Activation

// Activation variants.
const (
	Identity = nn.Identity
	ReLU     = nn.ReLU
	Sigmoid  = nn.Sigmoid
	Softmax  = nn.Softmax
)

// ParseActivation converts a name such as "relu" to an Activation.
func ParseActivation(name string) (Activation, error) {
	return nn.ParseActivation(name)
}

// Loss selects the training objective.
type Loss = nn.Loss

// Loss variants.
const (
	MeanSquared  = nn.MeanSquared
	CrossEntropy = nn.CrossEntropy
)

// ParseLoss converts "mse" or "cross_entropy" to a Loss.
func ParseLoss(name string) (Loss, error) {
	return nn.ParseLoss(name)
}

// Init selects how weights are drawn at construction.
type Init = nn.Init

// Weight initializers.
const (
	XavierUniform  = nn.XavierUniform
	StandardNormal = nn.StandardNormal
	Uniform        = nn.Uniform
)

// ParseInit converts "xavier", "normal" or "uniform" to an Init.
func ParseInit(name string) (Init, error) {
	return nn.ParseInit(name)
}

// DefaultClipBound bounds every individual weight and bias update.
const DefaultClipBound = nn.DefaultClipBound

// Errors returned by layers and networks.
var (
	ErrDimension = nn.ErrDimension
	ErrNoForward = nn.ErrNoForward
	ErrNonFinite = nn.ErrNonFinite
	ErrConfig    = nn.ErrConfig
)

// Layers

// Dense represents a fully connected layer.
type Dense = nn.Dense

// Gradients holds the summed gradients of one Dense layer.
type Gradients = nn.Gradients

// NewDense creates a fully connected layer.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	layer, err := nn.NewDense(784, 128, nn.ReLU, nn.XavierUniform, rng)
func NewDense(in, out int, act Activation, init Init, rng *rand.Rand) (*Dense, error) {
	return nn.NewDense(in, out, act, init, rng)
}

// Networks

// Config describes a network architecture.
type Config = nn.Config

// Network is an ordered stack of Dense layers.
type Network = nn.Network

// NewNetwork builds a network, drawing initial weights from rng.
func NewNetwork(cfg Config, rng *rand.Rand) (*Network, error) {
	return nn.NewNetwork(cfg, rng)
}

// Checkpoints

// Header describes a checkpoint: architecture, run id and metadata.
type Header = serialization.Header

// Load rebuilds a network from a checkpoint file written by Network.Save.
func Load(path string) (*Network, Header, error) {
	return nn.Load(path)
}

// ReadFrom rebuilds a network from a checkpoint stream written by
// Network.WriteTo.
func ReadFrom(r io.Reader) (*Network, Header, error) {
	return nn.ReadFrom(r)
}
