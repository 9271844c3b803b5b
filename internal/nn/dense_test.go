package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// newTestDense builds a 2->2 identity layer with fixed parameters:
//
//	W = [[1 2] [3 4]], b = [0.5 -0.5]
func newTestDense(t *testing.T) *Dense {
	t.Helper()
	l, err := NewDense(2, 2, Identity, XavierUniform, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.NoError(t, l.SetParams(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), []float64{0.5, -0.5}))
	return l
}

func TestNewDense_Validation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := NewDense(0, 3, ReLU, XavierUniform, rng)
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = NewDense(3, 2, Activation(42), XavierUniform, rng)
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = NewDense(3, 2, ReLU, Init(9), rng)
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = NewDense(3, 2, ReLU, XavierUniform, nil)
	assert.True(t, errors.Is(err, ErrConfig))

	l, err := NewDense(3, 2, ReLU, XavierUniform, rng)
	require.NoError(t, err)
	assert.Equal(t, 3, l.In())
	assert.Equal(t, 2, l.Out())
	assert.Equal(t, DefaultClipBound, l.ClipBound())
	assert.Equal(t, []float64{0, 0}, l.Bias())
}

func TestNewDense_XavierBound(t *testing.T) {
	l, err := NewDense(10, 20, Sigmoid, XavierUniform, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	bound := math.Sqrt(6.0 / 30.0)
	w := l.Weight()
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.LessOrEqual(t, math.Abs(w.At(i, j)), bound)
		}
	}
}

func TestDenseForward(t *testing.T) {
	l := newTestDense(t)

	out, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.5, -1.5}, out)

	// Repeated forward on the same input is bit-identical.
	again, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)
	assert.Equal(t, out, again)

	// The returned slice is a copy of the cache.
	out[0] = 99
	cached, err := l.cachedOutput()
	require.NoError(t, err)
	assert.Equal(t, -0.5, cached[0])
}

func TestDenseForward_DimensionMismatch(t *testing.T) {
	l := newTestDense(t)

	_, err := l.Forward([]float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrDimension))

	_, err = l.Forward(nil)
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestDenseForward_NonFinite(t *testing.T) {
	l := newTestDense(t)

	_, err := l.Forward([]float64{math.Inf(1), 0})
	assert.True(t, errors.Is(err, ErrNonFinite))

	_, err = l.Backward([]float64{1, 1}, 0.1)
	assert.True(t, errors.Is(err, ErrNoForward))
}

func TestDenseBackward_BeforeForward(t *testing.T) {
	l := newTestDense(t)

	_, err := l.Backward([]float64{1, 1}, 0.1)
	assert.True(t, errors.Is(err, ErrNoForward))

	_, err = l.Accumulate([]float64{1, 1}, l.NewGradients(), false)
	assert.True(t, errors.Is(err, ErrNoForward))
}

func TestDenseBackward(t *testing.T) {
	l := newTestDense(t)
	_, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)

	down, err := l.Backward([]float64{1, 2}, 0.1)
	require.NoError(t, err)

	// Downstream uses the weights before the update: W^T·[1 2].
	assert.Equal(t, []float64{7, 10}, down)

	// dW = δ ⊗ x = [[1 -1] [2 -2]], db = δ.
	want := mat.NewDense(2, 2, []float64{0.9, 2.1, 2.8, 4.2})
	assert.True(t, mat.EqualApprox(want, l.Weight(), 1e-12), "weights:\n%v", mat.Formatted(l.Weight()))
	assert.InDeltaSlice(t, []float64{0.4, -0.7}, l.Bias(), 1e-12)
}

func TestDenseBackward_DimensionMismatch(t *testing.T) {
	l := newTestDense(t)
	_, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)

	_, err = l.Backward([]float64{1}, 0.1)
	assert.True(t, errors.Is(err, ErrDimension))

	_, err = l.Accumulate([]float64{1, 1}, &Gradients{
		Weight: mat.NewDense(3, 2, nil),
		Bias:   mat.NewVecDense(3, nil),
	}, false)
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestDenseBackward_Clip(t *testing.T) {
	l := newTestDense(t)
	_, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)

	// lr·grad = [[10 -10] [20 -20]], bias [10 20]: every update is clipped to ±2.
	_, err = l.Backward([]float64{1, 2}, 10)
	require.NoError(t, err)

	want := mat.NewDense(2, 2, []float64{-1, 4, 1, 6})
	assert.True(t, mat.Equal(want, l.Weight()), "weights:\n%v", mat.Formatted(l.Weight()))
	assert.Equal(t, []float64{-1.5, -2.5}, l.Bias())
}

func TestDenseBackward_ClipDisabled(t *testing.T) {
	l := newTestDense(t)
	l.SetClipBound(0)
	_, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)

	_, err = l.Backward([]float64{1, 2}, 10)
	require.NoError(t, err)

	want := mat.NewDense(2, 2, []float64{-9, 12, -17, 24})
	assert.True(t, mat.Equal(want, l.Weight()), "weights:\n%v", mat.Formatted(l.Weight()))
	assert.Equal(t, []float64{-9.5, -20.5}, l.Bias())
}

func TestDenseBackward_NonFiniteNotCommitted(t *testing.T) {
	l := newTestDense(t)
	_, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)

	before := l.Weight()
	_, err = l.Backward([]float64{math.NaN(), 0}, 0.1)
	assert.True(t, errors.Is(err, ErrNonFinite))

	assert.True(t, mat.Equal(before, l.Weight()))
	assert.Equal(t, []float64{0.5, -0.5}, l.Bias())
}

func TestDenseBackward_SignDecreasesOvershoot(t *testing.T) {
	l, err := NewDense(2, 1, Identity, XavierUniform, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.NoError(t, l.SetParams(mat.NewDense(1, 2, []float64{0.5, 0.5}), []float64{0}))

	input := []float64{1, 1}
	out, err := l.Forward(input)
	require.NoError(t, err)

	// Output 1.0 against target 0 with positive inputs: weights must decrease.
	grad, _ := MeanSquared.Gradient(out, []float64{0}, Identity)
	_, err = l.Backward(grad, 0.1)
	require.NoError(t, err)

	w := l.Weight()
	assert.Less(t, w.At(0, 0), 0.5)
	assert.Less(t, w.At(0, 1), 0.5)
}

func TestDenseBackward_EqualsAccumulateStep(t *testing.T) {
	a, err := NewDense(4, 3, Sigmoid, XavierUniform, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	b, err := NewDense(4, 3, Sigmoid, XavierUniform, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	input := []float64{0.1, -0.4, 0.9, 0.3}
	upstream := []float64{0.2, -0.6, 0.05}

	_, err = a.Forward(input)
	require.NoError(t, err)
	downA, err := a.Backward(upstream, 0.3)
	require.NoError(t, err)

	_, err = b.Forward(input)
	require.NoError(t, err)
	g := b.NewGradients()
	downB, err := b.Accumulate(upstream, g, false)
	require.NoError(t, err)
	require.NoError(t, b.Step(g, 0.3, 1))

	assert.Equal(t, downA, downB)
	assert.True(t, mat.Equal(a.Weight(), b.Weight()))
	assert.Equal(t, a.Bias(), b.Bias())
}

func TestDenseAccumulate_DoesNotModifyParams(t *testing.T) {
	l := newTestDense(t)
	_, err := l.Forward([]float64{1, -1})
	require.NoError(t, err)

	g := l.NewGradients()
	for i := 0; i < 3; i++ {
		_, err = l.Accumulate([]float64{1, 2}, g, false)
		require.NoError(t, err)
	}

	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), l.Weight()))
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{3, -3, 6, -6}), g.Weight))
	assert.Equal(t, []float64{3, 6}, g.Bias.RawVector().Data)

	g.Zero()
	assert.Equal(t, 0.0, mat.Sum(g.Weight))
}

func TestDenseSetParams_ShapeMismatch(t *testing.T) {
	l := newTestDense(t)

	err := l.SetParams(mat.NewDense(3, 2, nil), []float64{0, 0})
	assert.True(t, errors.Is(err, ErrDimension))

	err = l.SetParams(mat.NewDense(2, 2, nil), []float64{0})
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestDenseStateDict(t *testing.T) {
	l := newTestDense(t)
	sd := l.StateDict()

	assert.Equal(t, []int{2, 2}, sd["weight"].Shape)
	assert.Equal(t, []float64{1, 2, 3, 4}, sd["weight"].Data)
	assert.Equal(t, []float64{0.5, -0.5}, sd["bias"].Data)

	other, err := NewDense(2, 2, Identity, Uniform, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	require.NoError(t, other.LoadStateDict(sd))
	assert.True(t, mat.Equal(l.Weight(), other.Weight()))
	assert.Equal(t, l.Bias(), other.Bias())

	delete(sd, "bias")
	assert.Error(t, other.LoadStateDict(sd))
}

func BenchmarkDenseForward(b *testing.B) {
	l, _ := NewDense(784, 128, ReLU, XavierUniform, rand.New(rand.NewSource(1)))
	input := make([]float64, 784)
	for i := range input {
		input[i] = float64(i%255) / 255
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = l.Forward(input)
	}
}

func BenchmarkDenseBackward(b *testing.B) {
	l, _ := NewDense(784, 128, ReLU, XavierUniform, rand.New(rand.NewSource(1)))
	input := make([]float64, 784)
	upstream := make([]float64, 128)
	for i := range upstream {
		upstream[i] = 0.01
	}
	_, _ = l.Forward(input)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = l.Backward(upstream, 0.01)
	}
}
