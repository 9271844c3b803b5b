package nn

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/mlp/internal/serialization"
	"github.com/born-ml/mlp/internal/vecmath"
)

// DefaultClipBound bounds the magnitude of every individual weight and bias
// update.
const DefaultClipBound = 2.0

// Dense is a fully connected layer: y = act(W·x + b).
//
// where:
//   - x is the input vector with length In()
//   - W is the weight matrix with shape [Out(), In()]
//   - b is the bias vector with length Out()
//   - y is the output vector with length Out()
//
// Forward caches x, the pre-activation z and y. Backward and Accumulate read
// that cache, so they fail with ErrNoForward until Forward has run once.
// Weights and biases change only through Backward or Step.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	layer, err := nn.NewDense(784, 128, nn.ReLU, nn.XavierUniform, rng)
//
//	out, err := layer.Forward(pixels)          // len(out) == 128
//	grad, err := layer.Backward(upstream, 0.1) // len(grad) == 784
type Dense struct {
	in, out int
	act     Activation
	clip    float64

	weight *mat.Dense    // [out, in]
	bias   *mat.VecDense // [out]

	input  []float64
	preact []float64
	output []float64
	ready  bool
}

// Gradients holds the summed weight and bias gradients of one layer.
//
// The values are raw derivatives of the loss: the learning rate, the batch
// averaging and the clip bound are applied by Step.
type Gradients struct {
	Weight *mat.Dense    // [out, in]
	Bias   *mat.VecDense // [out]
}

// Add sums other into g. Both must have the same shape.
func (g *Gradients) Add(other *Gradients) {
	g.Weight.Add(g.Weight, other.Weight)
	g.Bias.AddVec(g.Bias, other.Bias)
}

// Zero resets every gradient to 0.
func (g *Gradients) Zero() {
	g.Weight.Zero()
	g.Bias.Zero()
}

// NewDense creates a layer with weights drawn by init from rng and zero biases.
//
// Parameters:
//   - in: Number of input features (≥ 1)
//   - out: Number of output units (≥ 1)
//   - act: Activation applied to the weighted sum
//   - init: Weight initializer
//   - rng: Source of randomness for the initializer
func NewDense(in, out int, act Activation, init Init, rng *rand.Rand) (*Dense, error) {
	if in < 1 || out < 1 {
		return nil, errors.Wrapf(ErrConfig, "dense layer needs positive sizes, got %d -> %d", in, out)
	}
	if !act.Valid() {
		return nil, errors.Wrapf(ErrConfig, "unknown activation %d", act)
	}
	if !init.Valid() {
		return nil, errors.Wrapf(ErrConfig, "unknown initializer %d", init)
	}
	if rng == nil {
		return nil, errors.Wrap(ErrConfig, "nil random source")
	}

	return newDense(in, out, act, newWeights(init, in, out, rng)), nil
}

func newDense(in, out int, act Activation, weight *mat.Dense) *Dense {
	return &Dense{
		in:     in,
		out:    out,
		act:    act,
		clip:   DefaultClipBound,
		weight: weight,
		bias:   mat.NewVecDense(out, nil),
		input:  make([]float64, in),
		preact: make([]float64, out),
		output: make([]float64, out),
	}
}

// In returns the number of input features.
func (l *Dense) In() int { return l.in }

// Out returns the number of output units.
func (l *Dense) Out() int { return l.out }

// Activation returns the layer's activation.
func (l *Dense) Activation() Activation { return l.act }

// ClipBound returns the per-update clip bound. Non-positive means disabled.
func (l *Dense) ClipBound() float64 { return l.clip }

// SetClipBound changes the per-update clip bound. Non-positive disables clipping.
func (l *Dense) SetClipBound(bound float64) { l.clip = bound }

// Weight returns a copy of the weight matrix.
func (l *Dense) Weight() *mat.Dense {
	return mat.DenseCopyOf(l.weight)
}

// Bias returns a copy of the bias vector.
func (l *Dense) Bias() []float64 {
	b := make([]float64, l.out)
	copy(b, l.bias.RawVector().Data)
	return b
}

// SetParams replaces the weights and biases. The shapes must match the layer.
func (l *Dense) SetParams(weight mat.Matrix, bias []float64) error {
	r, c := weight.Dims()
	if r != l.out || c != l.in {
		return errors.Wrapf(ErrDimension, "weight shape mismatch: expected [%d %d], got [%d %d]", l.out, l.in, r, c)
	}
	if len(bias) != l.out {
		return errors.Wrapf(ErrDimension, "bias length mismatch: expected %d, got %d", l.out, len(bias))
	}
	l.weight.Copy(weight)
	copy(l.bias.RawVector().Data, bias)
	return nil
}

// Forward computes the layer output for one input vector and caches the state
// needed by the backward pass, overwriting any previous cache.
//
// Returns a new slice of length Out().
func (l *Dense) Forward(input []float64) ([]float64, error) {
	if len(input) != l.in {
		return nil, errors.Wrapf(ErrDimension, "dense forward: expected %d inputs, got %d", l.in, len(input))
	}

	copy(l.input, input)
	copy(l.preact, vecmath.MatVec(l.weight, l.input))
	floats.Add(l.preact, l.bias.RawVector().Data)
	l.act.Apply(l.output, l.preact)

	if !vecmath.AllFinite(l.output) {
		l.ready = false
		return nil, errors.Wrapf(ErrNonFinite, "dense forward: %s output", l.act)
	}
	l.ready = true

	out := make([]float64, l.out)
	copy(out, l.output)
	return out, nil
}

// Backward propagates upstream, the loss gradient with respect to this layer's
// output, and updates the parameters in place.
//
// The gradient returned for the previous layer is computed from the weights as
// they were before this call. Each update lr·gradient is clipped to the layer's
// clip bound.
func (l *Dense) Backward(upstream []float64, lr float64) ([]float64, error) {
	g := l.NewGradients()
	down, err := l.Accumulate(upstream, g, false)
	if err != nil {
		return nil, err
	}
	if err := l.Step(g, lr, 1); err != nil {
		return nil, err
	}
	return down, nil
}

// NewGradients returns a zeroed gradient accumulator shaped for this layer.
func (l *Dense) NewGradients() *Gradients {
	return &Gradients{
		Weight: mat.NewDense(l.out, l.in, nil),
		Bias:   mat.NewVecDense(l.out, nil),
	}
}

// Accumulate adds this example's parameter gradients into g and returns the
// gradient with respect to the layer input. Parameters are not modified.
//
// When preactivation is true, upstream is already the gradient with respect to
// the pre-activation and the activation derivative is skipped.
func (l *Dense) Accumulate(upstream []float64, g *Gradients, preactivation bool) ([]float64, error) {
	if !l.ready {
		return nil, ErrNoForward
	}
	if len(upstream) != l.out {
		return nil, errors.Wrapf(ErrDimension, "dense backward: expected %d gradients, got %d", l.out, len(upstream))
	}
	if err := l.checkGradients(g); err != nil {
		return nil, err
	}

	delta := make([]float64, l.out)
	for j, u := range upstream {
		if preactivation {
			delta[j] = u
			continue
		}
		delta[j] = l.act.Derivative(l.preact[j], l.output[j]) * u
	}
	d := mat.NewVecDense(l.out, delta)
	down := vecmath.MatVec(l.weight.T(), delta)

	g.Weight.RankOne(g.Weight, 1, d, mat.NewVecDense(l.in, l.input))
	g.Bias.AddVec(g.Bias, d)
	return down, nil
}

// Step applies param -= clip(lr·scale·grad) to every weight and bias.
//
// The update is staged and committed only if every staged value is finite;
// otherwise the layer is left untouched and ErrNonFinite is returned.
func (l *Dense) Step(g *Gradients, lr, scale float64) error {
	w, b, err := l.stage(g, lr, scale)
	if err != nil {
		return err
	}
	l.commit(w, b)
	return nil
}

func (l *Dense) stage(g *Gradients, lr, scale float64) (*mat.Dense, []float64, error) {
	if err := l.checkGradients(g); err != nil {
		return nil, nil, err
	}

	rate := lr * scale
	var w mat.Dense
	w.Apply(func(i, j int, v float64) float64 {
		return v - vecmath.Clip(rate*g.Weight.At(i, j), l.clip)
	}, l.weight)

	b := make([]float64, l.out)
	for j := range b {
		b[j] = l.bias.AtVec(j) - vecmath.Clip(rate*g.Bias.AtVec(j), l.clip)
	}

	if !vecmath.MatrixFinite(&w) || !vecmath.AllFinite(b) {
		return nil, nil, errors.Wrap(ErrNonFinite, "dense step: staged parameters")
	}
	return &w, b, nil
}

// commit copies staged parameters into the existing storage so replicas that
// share it observe the update.
func (l *Dense) commit(w *mat.Dense, b []float64) {
	l.weight.Copy(w)
	copy(l.bias.RawVector().Data, b)
}

func (l *Dense) checkGradients(g *Gradients) error {
	if g == nil || g.Weight == nil || g.Bias == nil {
		return errors.Wrap(ErrDimension, "nil gradients")
	}
	r, c := g.Weight.Dims()
	if r != l.out || c != l.in || g.Bias.Len() != l.out {
		return errors.Wrapf(ErrDimension, "gradients shaped [%d %d]/%d for layer [%d %d]",
			r, c, g.Bias.Len(), l.out, l.in)
	}
	return nil
}

// replica returns a layer that shares this layer's weights and biases but owns
// its own forward cache.
func (l *Dense) replica() *Dense {
	return &Dense{
		in:     l.in,
		out:    l.out,
		act:    l.act,
		clip:   l.clip,
		weight: l.weight,
		bias:   l.bias,
		input:  make([]float64, l.in),
		preact: make([]float64, l.out),
		output: make([]float64, l.out),
	}
}

// cachedOutput returns the output of the last successful Forward.
func (l *Dense) cachedOutput() ([]float64, error) {
	if !l.ready {
		return nil, ErrNoForward
	}
	return l.output, nil
}

// StateDict returns the layer parameters keyed "weight" and "bias".
func (l *Dense) StateDict() map[string]serialization.Tensor {
	w := make([]float64, l.out*l.in)
	for j := 0; j < l.out; j++ {
		copy(w[j*l.in:(j+1)*l.in], l.weight.RawRowView(j))
	}
	return map[string]serialization.Tensor{
		"weight": {Shape: []int{l.out, l.in}, Data: w},
		"bias":   {Shape: []int{l.out}, Data: l.Bias()},
	}
}

// LoadStateDict loads parameters produced by StateDict.
func (l *Dense) LoadStateDict(stateDict map[string]serialization.Tensor) error {
	w, ok := stateDict["weight"]
	if !ok {
		return errors.Wrap(serialization.ErrMissingTensor, "weight")
	}
	if len(w.Shape) != 2 || w.Shape[0] != l.out || w.Shape[1] != l.in || len(w.Data) != l.out*l.in {
		return errors.Wrapf(serialization.ErrShapeMismatch, "weight: expected [%d %d], got %v", l.out, l.in, w.Shape)
	}
	b, ok := stateDict["bias"]
	if !ok {
		return errors.Wrap(serialization.ErrMissingTensor, "bias")
	}
	if len(b.Shape) != 1 || b.Shape[0] != l.out || len(b.Data) != l.out {
		return errors.Wrapf(serialization.ErrShapeMismatch, "bias: expected [%d], got %v", l.out, b.Shape)
	}
	return l.SetParams(mat.NewDense(l.out, l.in, w.Data), b.Data)
}
