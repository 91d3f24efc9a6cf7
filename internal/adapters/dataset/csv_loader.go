// Package dataset reads labeled email corpora.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
)

const (
	textColumn  = "text"
	labelColumn = "label"
)

// CSVLoader reads a CSV file with a header row containing "text" and "label"
// columns. Other columns are ignored.
type CSVLoader struct {
	logger *zap.Logger
}

// NewCSVLoader creates a new CSV dataset loader
func NewCSVLoader(logger *zap.Logger) *CSVLoader {
	return &CSVLoader{logger: logger}
}

// Load reads the dataset at path
func (l *CSVLoader) Load(ctx context.Context, path string) (*core.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := l.Read(ctx, f)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Dataset loaded", zap.String("path", path), zap.Int("examples", ds.Len()))
	return ds, nil
}

// Read parses a dataset from r
func (l *CSVLoader) Read(ctx context.Context, r io.Reader) (*core.Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: dataset is empty", core.ErrDatasetFormat)
		}
		return nil, fmt.Errorf("%w: failed to read header: %v", core.ErrDatasetFormat, err)
	}

	textIdx, labelIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case textColumn:
			textIdx = i
		case labelColumn:
			labelIdx = i
		}
	}
	if textIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("%w: dataset must have %q and %q columns", core.ErrDatasetFormat, textColumn, labelColumn)
	}

	ds := &core.Dataset{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrDatasetFormat, line, err)
		}
		if len(record) <= textIdx || len(record) <= labelIdx {
			return nil, fmt.Errorf("%w: line %d has %d fields", core.ErrDatasetFormat, line, len(record))
		}

		label, err := parseLabel(record[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrDatasetFormat, line, err)
		}
		ds.Add(record[textIdx], label)
	}

	return ds, nil
}

func parseLabel(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid label %q", raw)
	}
	if v != core.ClassLegitimate && v != core.ClassPhishing {
		return 0, fmt.Errorf("label %d is not 0 or 1", v)
	}
	return v, nil
}

var _ core.DatasetLoader = (*CSVLoader)(nil)
