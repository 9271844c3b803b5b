package serialization

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Validation limits.
const (
	MaxHeaderSize    = 16 * 1024 * 1024
	MaxTensorCount   = 10_000
	MaxTensorNameLen = 256
)

// ValidateTensorName rejects empty, oversized and path-like tensor names.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.ContainsAny(name, "/\\\x00"), strings.Contains(name, ".."):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains a path separator, '..' or a null byte"}
	}
	return nil
}

// ValidateHeader checks the tensor table against the size of the data section.
func ValidateHeader(h *Header, dataSize int64) error {
	if h.FormatVersion != FormatVersion {
		return &ValidationError{
			Type:    "version",
			Details: fmt.Sprintf("header declares version %d, file is version %d", h.FormatVersion, FormatVersion),
		}
	}
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		want, ok := shapeBytes(t.Shape)
		if !ok {
			return &ValidationError{
				Type:    "invalid_shape",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v has a negative dimension or exceeds %d bytes", t.Shape, int64(math.MaxInt64)),
			}
		}
		if want != t.Size {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", t.Shape, want, t.Size),
			}
		}
	}

	return validateTensorOffsets(h.Tensors, dataSize)
}

// validateTensorOffsets checks for overlapping tensor regions and out-of-bounds access.
func validateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	sorted := make([]TensorMeta, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if t.Size > dataSize || t.Offset > dataSize-t.Size {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

// shapeBytes returns the byte size of a tensor with the given shape. ok is
// false for negative dimensions or a size that does not fit in an int64.
func shapeBytes(shape []int) (n int64, ok bool) {
	n = bytesPerValue
	for _, d := range shape {
		if d < 0 {
			return 0, false
		}
		if d != 0 && n > math.MaxInt64/int64(d) {
			return 0, false
		}
		n *= int64(d)
	}
	return n, true
}
