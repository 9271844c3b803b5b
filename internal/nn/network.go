// Package nn implements the dense feedforward network engine.
//
// This package provides:
//   - Activation: Identity, ReLU, Sigmoid, Softmax
//   - Loss: MeanSquared, CrossEntropy
//   - Dense: fully connected layer with cached forward state and manual backward
//   - Network: ordered stack of Dense layers driven as one differentiable pipeline
//   - Save/Load: checkpoint persistence of a Network
//
// Backpropagation is written out by hand; there is no computation graph.
package nn

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Config describes a network architecture.
type Config struct {
	// Sizes lists layer widths, input first. At least two entries.
	Sizes []int
	// Activations assigns one activation per weight layer: len(Sizes)-1 entries.
	Activations []Activation
	// Init selects the weight initializer. Defaults to XavierUniform.
	Init Init
	// Loss selects the training objective. Defaults to MeanSquared.
	Loss Loss
	// ClipBound bounds each parameter update. 0 selects DefaultClipBound,
	// a negative value disables clipping.
	ClipBound float64
}

// Validate checks the architecture without building it.
func (c Config) Validate() error {
	if len(c.Sizes) < 2 {
		return errors.Wrapf(ErrConfig, "need at least 2 layer sizes, got %d", len(c.Sizes))
	}
	for i, s := range c.Sizes {
		if s < 1 {
			return errors.Wrapf(ErrConfig, "layer %d has size %d", i, s)
		}
	}
	if len(c.Activations) != len(c.Sizes)-1 {
		return errors.Wrapf(ErrConfig, "need %d activations for %d sizes, got %d",
			len(c.Sizes)-1, len(c.Sizes), len(c.Activations))
	}
	for i, a := range c.Activations {
		if !a.Valid() {
			return errors.Wrapf(ErrConfig, "layer %d has unknown activation %d", i, a)
		}
	}
	if !c.Init.Valid() {
		return errors.Wrapf(ErrConfig, "unknown initializer %d", c.Init)
	}
	if !c.Loss.Valid() {
		return errors.Wrapf(ErrConfig, "unknown loss %d", c.Loss)
	}
	return nil
}

func (c Config) clipBound() float64 {
	if c.ClipBound == 0 {
		return DefaultClipBound
	}
	return c.ClipBound
}

// Network is an ordered stack of Dense layers where each layer's output width
// equals the next layer's input width.
//
// The layer list is fixed at construction; training only mutates the layers'
// weights and biases.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	net, err := nn.NewNetwork(nn.Config{
//	    Sizes:       []int{2, 4, 1},
//	    Activations: []nn.Activation{nn.Sigmoid, nn.Identity},
//	}, rng)
//
//	out, err := net.Forward([]float64{0, 1})
//	err = net.Backward([]float64{1}, 0.1)
type Network struct {
	layers []*Dense
	loss   Loss
}

// NewNetwork builds a network from cfg, drawing initial weights from rng.
//
// rng is the only source of randomness, so the same seed yields the same
// network and, with the same data, the same training trajectory.
func NewNetwork(cfg Config, rng *rand.Rand) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.Wrap(ErrConfig, "nil random source")
	}

	layers := make([]*Dense, len(cfg.Activations))
	for i, act := range cfg.Activations {
		layer, err := NewDense(cfg.Sizes[i], cfg.Sizes[i+1], act, cfg.Init, rng)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		layer.SetClipBound(cfg.clipBound())
		layers[i] = layer
	}

	return &Network{layers: layers, loss: cfg.Loss}, nil
}

// Layers returns the layers in forward order. The slice is a copy; the layers
// are not.
func (n *Network) Layers() []*Dense {
	return append([]*Dense(nil), n.layers...)
}

// Sizes returns the layer widths, input first.
func (n *Network) Sizes() []int {
	sizes := make([]int, 0, len(n.layers)+1)
	sizes = append(sizes, n.layers[0].In())
	for _, l := range n.layers {
		sizes = append(sizes, l.Out())
	}
	return sizes
}

// Activations returns the activation of each layer.
func (n *Network) Activations() []Activation {
	acts := make([]Activation, len(n.layers))
	for i, l := range n.layers {
		acts[i] = l.Activation()
	}
	return acts
}

// Loss returns the training objective.
func (n *Network) Loss() Loss { return n.loss }

// InputSize returns the width of the first layer's input.
func (n *Network) InputSize() int { return n.layers[0].In() }

// OutputSize returns the width of the last layer's output.
func (n *Network) OutputSize() int { return n.layers[len(n.layers)-1].Out() }

// Forward feeds input through every layer in order and returns the output of
// the last layer. Each layer's Forward runs exactly once.
func (n *Network) Forward(input []float64) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, errors.Wrapf(ErrDimension, "network forward: expected %d inputs, got %d", n.InputSize(), len(input))
	}
	out := input
	for i, l := range n.layers {
		var err error
		if out, err = l.Forward(out); err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
	}
	return out, nil
}

// Backward trains on one example: it seeds the error from the last forward
// output and target, propagates it from the last layer to the first and
// updates every layer in place with learning rate lr.
//
// Backward does not run a forward pass; it uses the caches of the most recent
// Forward. Every downstream gradient is computed from pre-update weights, and
// no layer is modified unless all staged updates are finite.
func (n *Network) Backward(target []float64, lr float64) error {
	grads := n.NewGradients()
	if err := n.Accumulate(target, grads); err != nil {
		return err
	}
	return n.Step(grads, lr, 1)
}

// NewGradients returns one zeroed accumulator per layer.
func (n *Network) NewGradients() []*Gradients {
	grads := make([]*Gradients, len(n.layers))
	for i, l := range n.layers {
		grads[i] = l.NewGradients()
	}
	return grads
}

// Accumulate backpropagates the loss of target against the last forward output
// and adds every layer's gradient into grads. Parameters are not modified.
func (n *Network) Accumulate(target []float64, grads []*Gradients) error {
	if len(grads) != len(n.layers) {
		return errors.Wrapf(ErrDimension, "expected %d gradient sets, got %d", len(n.layers), len(grads))
	}
	last := n.layers[len(n.layers)-1]
	output, err := last.cachedOutput()
	if err != nil {
		return errors.Wrapf(err, "layer %d", len(n.layers)-1)
	}
	if len(target) != len(output) {
		return errors.Wrapf(ErrDimension, "network backward: expected %d targets, got %d", len(output), len(target))
	}

	upstream, preactivation := n.loss.Gradient(output, target, last.Activation())
	for i := len(n.layers) - 1; i >= 0; i-- {
		upstream, err = n.layers[i].Accumulate(upstream, grads[i], preactivation && i == len(n.layers)-1)
		if err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
	}
	return nil
}

// Step applies the accumulated gradients scaled by lr·scale to every layer.
// Use scale = 1/batchSize to apply the mean of a mini-batch.
//
// All layers are staged first; if any staged value is non-finite nothing is
// committed.
func (n *Network) Step(grads []*Gradients, lr, scale float64) error {
	if len(grads) != len(n.layers) {
		return errors.Wrapf(ErrDimension, "expected %d gradient sets, got %d", len(n.layers), len(grads))
	}

	weights := make([]*mat.Dense, len(n.layers))
	biases := make([][]float64, len(n.layers))
	for i, l := range n.layers {
		w, b, err := l.stage(grads[i], lr, scale)
		if err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
		weights[i], biases[i] = w, b
	}
	for i, l := range n.layers {
		l.commit(weights[i], biases[i])
	}
	return nil
}

// Cost returns the loss of output against target.
func (n *Network) Cost(output, target []float64) (float64, error) {
	if len(output) != len(target) {
		return 0, errors.Wrapf(ErrDimension, "cost: %d outputs, %d targets", len(output), len(target))
	}
	return n.loss.Compute(output, target), nil
}

// Replica returns a network that shares this network's parameters but owns
// separate forward caches, so replicas can run Forward and Accumulate in
// parallel. Parameters must not be stepped while replicas are in use.
func (n *Network) Replica() *Network {
	layers := make([]*Dense, len(n.layers))
	for i, l := range n.layers {
		layers[i] = l.replica()
	}
	return &Network{layers: layers, loss: n.loss}
}
