package nn

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/mlp/internal/vecmath"
)

// Activation selects the nonlinearity applied after a layer's weighted sum.
//
// Activation is a closed set of variants dispatched by a single switch. It is
// stateless, so one value may be shared by any number of layers.
//
// Derivatives are evaluated from the values a layer already caches:
//   - Identity: 1
//   - ReLU: 1 if the pre-activation z > 0, else 0 (z == 0 gives 0)
//   - Sigmoid: y·(1−y) on the post-activation output y
//   - Softmax: y·(1−y) on the output, an elementwise approximation that ignores
//     the off-diagonal Jacobian terms. Use the CrossEntropy loss with a Softmax
//     output layer to train with the exact gradient instead.
type Activation uint8

// Activation variants.
const (
	Identity Activation = iota
	ReLU
	Sigmoid
	Softmax
)

var activationNames = [...]string{
	Identity: "identity",
	ReLU:     "relu",
	Sigmoid:  "sigmoid",
	Softmax:  "softmax",
}

// String returns the lower-case name of the activation.
func (a Activation) String() string {
	if int(a) < len(activationNames) {
		return activationNames[a]
	}
	return "unknown"
}

// Valid reports whether a is one of the defined variants.
func (a Activation) Valid() bool {
	return int(a) < len(activationNames)
}

// ParseActivation converts a name such as "relu" or "Sigmoid" to an Activation.
func ParseActivation(name string) (Activation, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range activationNames {
		if s == n {
			return Activation(i), nil
		}
	}
	return 0, errors.Errorf("unknown activation %q", name)
}

// Compute applies the activation to a single pre-activation value.
//
// Softmax over a single element is exactly 1.
func (a Activation) Compute(x float64) float64 {
	switch a {
	case ReLU:
		if x > 0 {
			return x
		}
		return 0
	case Sigmoid:
		return sigmoid(x)
	case Softmax:
		return 1
	default:
		return x
	}
}

// Apply writes the activation of every element of z into dst.
//
// Softmax is computed over the whole vector; the other variants are pointwise.
// dst and z must have the same length and may alias.
func (a Activation) Apply(dst, z []float64) {
	if a == Softmax {
		vecmath.Softmax(dst, z)
		return
	}
	for i, v := range z {
		dst[i] = a.Compute(v)
	}
}

// Derivative returns the slope of the activation for one unit, given its
// pre-activation z and its output y.
func (a Activation) Derivative(z, y float64) float64 {
	switch a {
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	case Sigmoid, Softmax:
		return y * (1 - y)
	default:
		return 1
	}
}

// sigmoid evaluates 1/(1+e^-x) without overflowing e^-x for large negative x.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
