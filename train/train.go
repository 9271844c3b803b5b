// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"log/slog"

	"github.com/born-ml/mlp/internal/dataset"
	"github.com/born-ml/mlp/internal/nn"
	"github.com/born-ml/mlp/internal/train"
)

// Config holds the trainer hyperparameters.
type Config = train.Config

// AllCPUs as Config.Workers runs one gradient worker per CPU.
const AllCPUs = train.AllCPUs

// DefaultConfig returns the settings used when a field is not specified.
func DefaultConfig() Config {
	return train.DefaultConfig()
}

// LoadConfig reads hyperparameters from a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return train.LoadConfig(path)
}

// Trainer drives a network through epochs of mini-batches.
type Trainer = train.Trainer

// Report summarizes a training run.
type Report = train.Report

// Evaluation holds the mean cost and accuracy over a dataset.
type Evaluation = train.Evaluation

// Option configures a Trainer.
type Option = train.Option

// Errors returned by the trainer.
var (
	ErrConfig    = train.ErrConfig
	ErrNoBatches = train.ErrNoBatches
)

// New creates a trainer for net.
func New(net *nn.Network, cfg Config, opts ...Option) (*Trainer, error) {
	return train.New(net, cfg, opts...)
}

// WithLogger sets the trainer's logger.
func WithLogger(l *slog.Logger) Option {
	return train.WithLogger(l)
}

// Evaluate returns the mean cost and accuracy of net on examples.
func Evaluate(net *nn.Network, examples []Example) (Evaluation, error) {
	return train.Evaluate(net, examples)
}

// Datasets

// Example is one (features, target) pair.
type Example = dataset.Example

// ErrInvalidExample is returned when an example does not fit the network.
var ErrInvalidExample = dataset.ErrInvalidExample

// XOR returns the four-example XOR truth table.
func XOR() []Example {
	return dataset.XOR()
}

// OneHot returns a vector of length classes with 1 at label.
func OneHot(label, classes int) ([]float64, error) {
	return dataset.OneHot(label, classes)
}

// LoadMNIST loads MNIST from the official IDX files in dataDir.
func LoadMNIST(dataDir string, train bool, maxSamples int) ([]Example, error) {
	return dataset.LoadMNIST(dataDir, train, maxSamples)
}

// LoadCSV loads a Kaggle-style labelled pixel CSV file.
func LoadCSV(path string, classes, maxSamples int) ([]Example, error) {
	return dataset.LoadCSV(path, classes, maxSamples)
}
