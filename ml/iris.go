package ml

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

//go:embed data/iris.csv
var irisCSV []byte

// Dataset holds training samples; Labels index into ClassNames.
type Dataset struct {
	Features [][]float64
	Labels   []int
}

// LoadIris parses the bundled iris dataset.
func LoadIris() (*Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(irisCSV))

	// header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read iris header: %w", err)
	}

	classIndex := make(map[string]int, len(ClassNames))
	for i, name := range ClassNames {
		classIndex[name] = i
	}

	ds := &Dataset{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read iris row: %w", err)
		}
		if len(record) != FeatureCount+1 {
			return nil, fmt.Errorf("iris line %d: expected %d columns, got %d", line, FeatureCount+1, len(record))
		}

		sample := make([]float64, FeatureCount)
		for i := 0; i < FeatureCount; i++ {
			value, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("iris line %d column %d: %w", line, i+1, err)
			}
			sample[i] = value
		}

		label, ok := classIndex[record[FeatureCount]]
		if !ok {
			return nil, fmt.Errorf("iris line %d: unknown species %q", line, record[FeatureCount])
		}

		ds.Features = append(ds.Features, sample)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Features) == 0 {
		return nil, fmt.Errorf("iris dataset is empty")
	}
	return ds, nil
}
