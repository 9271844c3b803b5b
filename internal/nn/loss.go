package nn

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/mlp/internal/vecmath"
)

// Loss selects the training objective.
//
// Like Activation it is a closed variant with a cost and a derivative.
//
//   - MeanSquared: cost mean((o−t)²), gradient o−t. The constant 2/n is folded
//     into the learning rate.
//   - CrossEntropy: cost −Σ t·ln(o), gradient −t/o. When the output layer is
//     Softmax the gradient is taken with respect to the pre-activation instead,
//     which is exactly o−t.
type Loss uint8

// Loss variants.
const (
	MeanSquared Loss = iota
	CrossEntropy
)

// logFloor keeps ln(o) finite when an output saturates at 0.
const logFloor = 1e-12

var lossNames = [...]string{
	MeanSquared:  "mse",
	CrossEntropy: "cross_entropy",
}

// String returns the short name of the loss.
func (l Loss) String() string {
	if int(l) < len(lossNames) {
		return lossNames[l]
	}
	return "unknown"
}

// Valid reports whether l is one of the defined variants.
func (l Loss) Valid() bool {
	return int(l) < len(lossNames)
}

// ParseLoss converts "mse" or "cross_entropy" to a Loss.
func ParseLoss(name string) (Loss, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range lossNames {
		if s == n {
			return Loss(i), nil
		}
	}
	return 0, errors.Errorf("unknown loss %q", name)
}

// Compute returns the cost of output against target.
//
// Both slices must have the same length; this is checked by the network
// before Compute is reached.
func (l Loss) Compute(output, target []float64) float64 {
	if len(output) == 0 {
		return 0
	}
	switch l {
	case CrossEntropy:
		var sum float64
		for i, o := range output {
			if target[i] != 0 {
				sum -= target[i] * math.Log(math.Max(o, logFloor))
			}
		}
		return sum
	default:
		diff := make([]float64, len(output))
		floats.SubTo(diff, output, target)
		return vecmath.Dot(diff, diff) / float64(len(output))
	}
}

// Gradient returns the error signal that seeds backpropagation.
//
// preactivation is true when the returned vector is already the gradient with
// respect to the output layer's pre-activation, so the layer must not apply
// its activation derivative again. That is the case for CrossEntropy over a
// Softmax output.
func (l Loss) Gradient(output, target []float64, act Activation) (grad []float64, preactivation bool) {
	grad = make([]float64, len(output))
	if l == CrossEntropy && act != Softmax {
		for i, o := range output {
			grad[i] = -target[i] / math.Max(o, logFloor)
		}
		return grad, false
	}
	for i, o := range output {
		grad[i] = o - target[i]
	}
	return grad, l == CrossEntropy
}
