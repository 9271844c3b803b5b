package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// ReadCSV reads labelled pixel rows.
//
// CSV Format (Kaggle-style):
//
//	label,pixel0,pixel1,...,pixel783
//	5,0,0,12,...,0
//	0,0,0,0,...,0
//
// The header row is skipped. Every row must have as many fields as the
// header. Pixels are scaled from 0-255 to [0, 1] and labels become one-hot
// targets over classes. maxSamples limits the result; 0 loads everything.
func ReadCSV(r io.Reader, classes, maxSamples int) ([]Example, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("CSV file is empty or missing header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV header")
	}
	if len(header) < 2 {
		return nil, errors.Errorf("CSV header has %d columns, need a label and at least one pixel", len(header))
	}

	var examples []Example
	for row := 1; maxSamples <= 0 || len(examples) < maxSamples; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CSV row %d", row)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid label at row %d", row)
		}
		target, err := OneHot(label, classes)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", row)
		}

		pixels := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			p, err := strconv.Atoi(field)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid pixel at row %d, column %d", row, j+1)
			}
			if p < 0 || p > 255 {
				return nil, errors.Errorf("pixel out of range [0, 255] at row %d, column %d: %d", row, j+1, p)
			}
			pixels[j] = float64(p) / 255.0
		}
		examples = append(examples, Example{Features: pixels, Target: target})
	}

	if len(examples) == 0 {
		return nil, errors.New("CSV file has no data rows")
	}
	return examples, nil
}

// LoadCSV reads a labelled pixel CSV file. See ReadCSV for the format.
func LoadCSV(path string, classes, maxSamples int) ([]Example, error) {
	//nolint:gosec // G304: dataset path is chosen by the user
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return ReadCSV(file, classes, maxSamples)
}
