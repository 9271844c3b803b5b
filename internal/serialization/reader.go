package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Read decodes a checkpoint from r, verifying magic, version, checksum and the
// tensor table before any tensor is returned.
func Read(r io.Reader) (Header, map[string]Tensor, error) {
	var header Header

	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return header, nil, errors.Wrap(err, "failed to read fixed header")
	}
	if !bytes.Equal(fixed[:4], []byte(MagicBytes)) {
		return header, nil, errors.Wrapf(ErrInvalidMagic, "got %q", fixed[:4])
	}
	version := binary.LittleEndian.Uint32(fixed[4:8])
	if version != FormatVersion {
		return header, nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, want %d", version, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[12:20])
	if headerSize > MaxHeaderSize {
		return header, nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[20:20+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return header, nil, errors.Wrap(err, "failed to read header")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return header, nil, errors.Wrap(err, "failed to read tensor data")
	}
	if err := ValidateChecksum(ComputeChecksum(headerJSON, data), stored); err != nil {
		return header, nil, err
	}

	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return header, nil, errors.Wrap(err, "failed to parse header")
	}
	if err := ValidateHeader(&header, int64(len(data))); err != nil {
		return header, nil, err
	}

	tensors := make(map[string]Tensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		raw := data[meta.Offset : meta.Offset+meta.Size]
		values := make([]float64, len(raw)/bytesPerValue)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*bytesPerValue:]))
		}
		tensors[meta.Name] = Tensor{
			Shape: append([]int(nil), meta.Shape...),
			Data:  values,
		}
	}
	return header, tensors, nil
}

// ReadFile reads a checkpoint from path.
func ReadFile(path string) (Header, map[string]Tensor, error) {
	//nolint:gosec // G304: checkpoint path is chosen by the user
	file, err := os.Open(path)
	if err != nil {
		return Header{}, nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return Read(file)
}
