package vecmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"single", []float64{1}, []float64{1}, 1},
		{"pair", []float64{1, 2}, []float64{1, 2}, 5},
		{"empty", []float64{}, []float64{}, 0},
		{"negative", []float64{-1}, []float64{-1}, 1},
		{"mixed", []float64{-1, 1, 2}, []float64{-1, 1, 2}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dot(tt.a, tt.b))
		})
	}
}

func TestDot_CommutativeAndDistributive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(16) + 1
		a, b, c := make([]float64, n), make([]float64, n), make([]float64, n)
		for i := range a {
			a[i] = rng.NormFloat64()
			b[i] = rng.NormFloat64()
			c[i] = rng.NormFloat64()
		}
		assert.InDelta(t, Dot(a, b), Dot(b, a), 1e-12)

		bc := make([]float64, n)
		for i := range bc {
			bc[i] = b[i] + c[i]
		}
		assert.InDelta(t, Dot(a, b)+Dot(a, c), Dot(a, bc), 1e-9)
	}
}

func TestDot_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { Dot([]float64{1, 2}, []float64{1}) })
}

func TestMatVec(t *testing.T) {
	w := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	got := MatVec(w, []float64{1, 0, -1})
	assert.Equal(t, []float64{-2, -2}, got)
}

func TestSoftmax_SumsToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 100; trial++ {
		n := rng.Intn(20) + 1
		x := make([]float64, n)
		for i := range x {
			x[i] = (rng.Float64()*2 - 1) * 50
		}
		y := Softmax(nil, x)
		var sum float64
		for _, v := range y {
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	}
}

func TestSoftmax_SingleElement(t *testing.T) {
	for _, x := range []float64{-1e6, -3, 0, 2.5, 1e6} {
		assert.Equal(t, []float64{1.0}, Softmax(nil, []float64{x}))
	}
}

func TestSoftmax_LargeInputsDoNotOverflow(t *testing.T) {
	y := Softmax(nil, []float64{1000, 1000, 999})
	require.True(t, AllFinite(y))
	assert.InDelta(t, y[0], y[1], 1e-15)
	assert.Greater(t, y[0], y[2])
}

func TestSoftmax_InPlace(t *testing.T) {
	x := []float64{1, 2, 3}
	want := Softmax(nil, []float64{1, 2, 3})
	got := Softmax(x, x)
	assert.Equal(t, want, got)
	assert.Equal(t, want, x)
}

func TestClip(t *testing.T) {
	assert.Equal(t, 2.0, Clip(5, 2))
	assert.Equal(t, -2.0, Clip(-5, 2))
	assert.Equal(t, 1.5, Clip(1.5, 2))
	assert.Equal(t, 5.0, Clip(5, 0), "non-positive bound disables clipping")
}

func TestFinite(t *testing.T) {
	assert.True(t, AllFinite([]float64{0, 1, -1e300}))
	assert.False(t, AllFinite([]float64{0, math.NaN()}))
	assert.False(t, AllFinite([]float64{math.Inf(-1)}))

	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.True(t, MatrixFinite(m))
	m.Set(1, 0, math.Inf(1))
	assert.False(t, MatrixFinite(m))
}

func BenchmarkMatVec(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	data := make([]float64, 128*784)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	w := mat.NewDense(128, 784, data)
	x := make([]float64, 784)
	for i := range x {
		x[i] = rng.Float64()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MatVec(w, x)
	}
}
