// Package vecmath provides the small set of vector and matrix helpers shared by
// the dense network engine.
//
// The helpers are thin wrappers over gonum's floats and mat packages that fix
// the conventions the engine relies on: dense row-major weights with shape
// [out, in], float64 throughout, and no hidden allocation on the hot paths
// unless the caller asks for a fresh slice.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dot returns the inner product of a and b.
//
// Panics if the lengths differ. The dot product of two empty vectors is 0.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// MatVec computes w·x and returns the result as a new slice of length rows(w).
//
// Panics if cols(w) != len(x).
func MatVec(w mat.Matrix, x []float64) []float64 {
	r, _ := w.Dims()
	out := make([]float64, r)
	dst := mat.NewVecDense(r, out)
	dst.MulVec(w, mat.NewVecDense(len(x), x))
	return out
}

// Softmax writes softmax(x) into dst and returns dst.
//
// The maximum of x is subtracted before exponentiating so that large inputs
// cannot overflow. dst may alias x. A single-element input yields exactly [1].
// If dst is nil a new slice is allocated.
func Softmax(dst, x []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(x))
	}
	if len(x) == 0 {
		return dst[:0]
	}
	peak := floats.Max(x)
	var sum float64
	for i, v := range x {
		e := math.Exp(v - peak)
		dst[i] = e
		sum += e
	}
	floats.Scale(1/sum, dst[:len(x)])
	return dst[:len(x)]
}

// Clip bounds v to [-bound, bound]. A non-positive bound disables clipping.
func Clip(v, bound float64) float64 {
	if bound <= 0 {
		return v
	}
	switch {
	case v > bound:
		return bound
	case v < -bound:
		return -bound
	}
	return v
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every element of xs is finite.
func AllFinite(xs []float64) bool {
	for _, v := range xs {
		if !Finite(v) {
			return false
		}
	}
	return true
}

// MatrixFinite reports whether every element of m is finite.
func MatrixFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !Finite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}
