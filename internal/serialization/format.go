package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "MLPW"
	FormatVersion   = 1
	ChecksumSize    = 32 // SHA-256
	FixedHeaderSize = 4 + 4 + 4 + 8 + ChecksumSize
	bytesPerValue   = 8 // float64
)

// Flags for the fixed header.
const (
	FlagHasMetadata uint32 = 1 << 0 // bit 0: custom metadata included
)

// Header represents the JSON header of a checkpoint file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	ID            string            `json:"id"`          // Run identifier, generated on write when empty
	CreatedAt     time.Time         `json:"created_at"`  // When the file was created
	Sizes         []int             `json:"sizes"`       // Layer widths, input first
	Activations   []string          `json:"activations"` // One per weight layer
	Loss          string            `json:"loss"`
	ClipBound     float64           `json:"clip_bound"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "0.weight")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor is a dense float64 array with a row-major shape.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NumElements returns the product of the shape dimensions.
func (t Tensor) NumElements() int {
	return numElements(t.Shape)
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
