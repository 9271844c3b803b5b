package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Write encodes header and tensors to w.
//
// Tensors are laid out in name order so the same parameters always produce the
// same data section. header.Tensors is rebuilt from tensors; an empty ID is
// replaced by a fresh UUID and a zero CreatedAt by the current time.
func Write(w io.Writer, header Header, tensors map[string]Tensor) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	if header.ID == "" {
		header.ID = uuid.NewString()
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	var data bytes.Buffer
	header.Tensors = make([]TensorMeta, 0, len(names))
	var offset int64
	buf := make([]byte, bytesPerValue)
	for _, name := range names {
		t := tensors[name]
		if t.NumElements() != len(t.Data) {
			return errors.Wrapf(ErrShapeMismatch, "tensor %q: shape %v holds %d values, got %d",
				name, t.Shape, t.NumElements(), len(t.Data))
		}
		size := int64(len(t.Data) * bytesPerValue)
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			Shape:  append([]int(nil), t.Shape...),
			Offset: offset,
			Size:   size,
		})
		offset += size

		for _, v := range t.Data {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			data.Write(buf)
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	fixed := make([]byte, 0, FixedHeaderSize)
	fixed = append(fixed, MagicBytes...)
	fixed = binary.LittleEndian.AppendUint32(fixed, FormatVersion)
	fixed = binary.LittleEndian.AppendUint32(fixed, flags)
	fixed = binary.LittleEndian.AppendUint64(fixed, uint64(len(headerJSON)))
	sum := ComputeChecksum(headerJSON, data.Bytes())
	fixed = append(fixed, sum[:]...)

	if _, err := w.Write(fixed); err != nil {
		return errors.Wrap(err, "failed to write fixed header")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}

// WriteFile writes a checkpoint to path, replacing any existing file.
func WriteFile(path string, header Header, tensors map[string]Tensor) error {
	//nolint:gosec // G304: checkpoint path is chosen by the user
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := Write(file, header, tensors); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "failed to close file")
}
