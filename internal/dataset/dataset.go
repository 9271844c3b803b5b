// Package dataset provides training examples and loaders for the trainer.
//
// Loaders:
//   - ReadIDX / LoadMNIST: official MNIST IDX binary files
//   - LoadCSV: Kaggle-style CSV with a header row and the label first
//   - XOR: the four-example XOR truth table
//
// Image loaders scale pixels to [0, 1] and encode labels one-hot.
package dataset

import (
	"math/rand"

	"github.com/pkg/errors"
)

// ErrInvalidExample is returned when an example does not fit the network.
var ErrInvalidExample = errors.New("invalid example")

// Example is one (features, target) pair.
type Example struct {
	Features []float64
	Target   []float64
}

// Validate checks that every example has exactly inputs features and outputs
// targets. Examples are never truncated or padded.
func Validate(examples []Example, inputs, outputs int) error {
	for i, ex := range examples {
		if len(ex.Features) != inputs {
			return errors.Wrapf(ErrInvalidExample, "example %d: %d features, want %d", i, len(ex.Features), inputs)
		}
		if len(ex.Target) != outputs {
			return errors.Wrapf(ErrInvalidExample, "example %d: %d targets, want %d", i, len(ex.Target), outputs)
		}
	}
	return nil
}

// Batches splits examples into contiguous batches of size examples each.
// A trailing remainder shorter than size is dropped.
//
// The batches share the backing array of examples.
func Batches(examples []Example, size int) [][]Example {
	if size <= 0 {
		return nil
	}
	batches := make([][]Example, 0, len(examples)/size)
	for start := 0; start+size <= len(examples); start += size {
		batches = append(batches, examples[start:start+size:start+size])
	}
	return batches
}

// Shuffle reorders examples in place using rng.
func Shuffle(examples []Example, rng *rand.Rand) {
	rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})
}

// OneHot returns a vector of length classes with 1 at label.
func OneHot(label, classes int) ([]float64, error) {
	if label < 0 || label >= classes {
		return nil, errors.Errorf("label %d out of range [0, %d)", label, classes)
	}
	v := make([]float64, classes)
	v[label] = 1
	return v, nil
}

// ArgMax returns the index of the largest value, the first one on ties.
// Returns -1 for an empty slice.
func ArgMax(v []float64) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i, x := range v[1:] {
		if x > v[best] {
			best = i + 1
		}
	}
	return best
}

// XOR returns the XOR truth table with a single target per example.
func XOR() []Example {
	return []Example{
		{Features: []float64{0, 0}, Target: []float64{0}},
		{Features: []float64{0, 1}, Target: []float64{1}},
		{Features: []float64{1, 0}, Target: []float64{1}},
		{Features: []float64{1, 1}, Target: []float64{0}},
	}
}
