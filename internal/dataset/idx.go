package dataset

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049

	// maxIDXImageSize bounds rows*cols so a corrupt header cannot force a
	// huge allocation.
	maxIDXImageSize = 1 << 24
	// idxPrealloc caps how many entries are reserved from the header count
	// before the data has been seen.
	idxPrealloc = 1 << 16
)

// ReadIDXImages reads an IDX image file.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
func ReadIDXImages(r io.Reader) ([][]byte, error) {
	var hdr struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to read image header")
	}
	if hdr.Magic != idxImagesMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", hdr.Magic, idxImagesMagic)
	}

	imageSize := uint64(hdr.Rows) * uint64(hdr.Cols)
	if imageSize > maxIDXImageSize {
		return nil, errors.Errorf("image size %dx%d exceeds %d pixels", hdr.Rows, hdr.Cols, maxIDXImageSize)
	}

	count := int(hdr.Count)
	images := make([][]byte, 0, min(count, idxPrealloc))
	for i := 0; i < count; i++ {
		img := make([]byte, imageSize)
		if _, err := io.ReadFull(r, img); err != nil {
			return nil, errors.Wrapf(err, "failed to read image %d of %d", i, count)
		}
		images = append(images, img)
	}
	return images, nil
}

// ReadIDXLabels reads an IDX label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes
func ReadIDXLabels(r io.Reader) ([]byte, error) {
	var hdr struct {
		Magic, Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to read label header")
	}
	if hdr.Magic != idxLabelsMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", hdr.Magic, idxLabelsMagic)
	}

	labels, err := io.ReadAll(io.LimitReader(r, int64(hdr.Count)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read labels")
	}
	if len(labels) != int(hdr.Count) {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "read %d of %d labels", len(labels), hdr.Count)
	}
	return labels, nil
}

// ReadIDX pairs an image and a label stream into examples with pixels scaled
// to [0, 1] and one-hot targets over classes.
//
// maxSamples limits the result; 0 loads everything.
func ReadIDX(images, labels io.Reader, classes, maxSamples int) ([]Example, error) {
	imagesRaw, err := ReadIDXImages(images)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load images")
	}
	labelsRaw, err := ReadIDXLabels(labels)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load labels")
	}
	if len(imagesRaw) != len(labelsRaw) {
		return nil, errors.Errorf("image count (%d) != label count (%d)", len(imagesRaw), len(labelsRaw))
	}

	n := len(imagesRaw)
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	examples := make([]Example, n)
	for i := range examples {
		target, err := OneHot(int(labelsRaw[i]), classes)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", i)
		}
		examples[i] = Example{Features: scalePixels(imagesRaw[i]), Target: target}
	}
	return examples, nil
}

// LoadMNIST loads MNIST from the official IDX files in dataDir.
//
// Expected files in dataDir:
//   - train-images-idx3-ubyte, train-labels-idx1-ubyte (train == true)
//   - t10k-images-idx3-ubyte, t10k-labels-idx1-ubyte (train == false)
func LoadMNIST(dataDir string, train bool, maxSamples int) ([]Example, error) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}

	images, err := os.Open(filepath.Join(dataDir, prefix+"-images-idx3-ubyte"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open images")
	}
	defer images.Close()

	labels, err := os.Open(filepath.Join(dataDir, prefix+"-labels-idx1-ubyte"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open labels")
	}
	defer labels.Close()

	return ReadIDX(images, labels, 10, maxSamples)
}

func scalePixels(raw []byte) []float64 {
	pixels := make([]float64, len(raw))
	for i, p := range raw {
		pixels[i] = float64(p) / 255.0
	}
	return pixels
}
