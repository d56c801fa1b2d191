// Package csvutil reads header-addressed CSV files.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ProcessorOptions configures CSV processing behavior.
type ProcessorOptions struct {
	// RequiredColumns must all be present in the header.
	RequiredColumns []string

	// SkipInvalid controls whether to skip invalid records or return an error.
	SkipInvalid bool
}

// Row is one CSV record addressed by header name.
type Row struct {
	header map[string]int
	record []string
}

// Get returns the trimmed value of column, or "" when the column is absent.
func (r Row) Get(column string) string {
	i, ok := r.header[strings.ToLower(column)]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

// ProcessCSV reads a CSV file and parses each record into type T.
func ProcessCSV[T any](filename string, parser func(Row) (T, error), opts ProcessorOptions) ([]T, error) {
	csvFile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = csvFile.Close() }()

	if fi, err := csvFile.Stat(); err != nil || fi.Size() == 0 {
		return nil, fmt.Errorf("CSV file is empty or cannot be read")
	}

	return Process(csvFile, parser, opts)
}

// Process parses CSV from r. The first record is the header.
func Process[T any](r io.Reader, parser func(Row) (T, error), opts ProcessorOptions) ([]T, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header := make(map[string]int, len(headerRecord))
	for i, name := range headerRecord {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range opts.RequiredColumns {
		if _, ok := header[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var items []T
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("Error reading record", "error", err)
			continue
		}

		item, err := parser(Row{header: header, record: record})
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Skipping invalid record", "error", err)
				continue
			}
			return nil, fmt.Errorf("invalid record: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}
