package nn

import (
	"math"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Init selects how a layer's weights are drawn at construction.
// Biases always start at zero.
type Init uint8

// Weight initializers.
const (
	// XavierUniform draws from U(-sqrt(6/(fan_in+fan_out)), +sqrt(6/(fan_in+fan_out))).
	XavierUniform Init = iota
	// StandardNormal draws from N(0, 1).
	StandardNormal
	// Uniform draws from U(-1, 1).
	Uniform
)

var initNames = [...]string{
	XavierUniform:  "xavier",
	StandardNormal: "normal",
	Uniform:        "uniform",
}

func (i Init) String() string {
	if int(i) < len(initNames) {
		return initNames[i]
	}
	return "unknown"
}

// Valid reports whether i is one of the defined initializers.
func (i Init) Valid() bool {
	return int(i) < len(initNames)
}

// ParseInit converts "xavier", "normal" or "uniform" to an Init.
func ParseInit(name string) (Init, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range initNames {
		if s == n {
			return Init(i), nil
		}
	}
	return 0, errors.Errorf("unknown initializer %q", name)
}

// newWeights returns an [out, in] matrix filled according to init.
//
// All randomness comes from rng so a fixed seed reproduces the same network.
func newWeights(init Init, in, out int, rng *rand.Rand) *mat.Dense {
	data := make([]float64, out*in)
	switch init {
	case StandardNormal:
		for i := range data {
			data[i] = rng.NormFloat64()
		}
	case Uniform:
		for i := range data {
			data[i] = rng.Float64()*2 - 1
		}
	default:
		bound := math.Sqrt(6.0 / float64(in+out))
		for i := range data {
			data[i] = (rng.Float64()*2 - 1) * bound
		}
	}
	return mat.NewDense(out, in, data)
}
