package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoData is returned when a source yields no usable observations.
	ErrNoData = errors.New("no valid data found")
	// ErrColumnNotFound is returned when a named column is missing from the header.
	ErrColumnNotFound = errors.New("column not found")
)

// dateFormats are tried in order after CSVOptions.DateFormat.
var dateFormats = []string{
	"2006-01",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"2006",
}

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn  string // Column name for dates (empty: detect)
	ValueColumn string // Column name for values (empty: detect)
	DateFormat  string // Preferred date layout
	HasHeader   bool
	Delimiter   rune
}

// DefaultCSVOptions returns options for the monthly sunspot dataset
// (columns "Month" and "Sunspots", dates such as "1749-01").
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn:  "Month",
		ValueColumn: "Sunspots",
		DateFormat:  "2006-01",
		HasHeader:   true,
		Delimiter:   ',',
	}
}

// LoadCSV loads a time series from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	s, err := LoadCSVFromReader(file, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return s, nil
}

// LoadCSVColumn loads a specific value column from a CSV file.
func LoadCSVColumn(filename, column string) (*Series, error) {
	opts := DefaultCSVOptions()
	opts.ValueColumn = column
	return LoadCSV(filename, opts)
}

// LoadCSVFromReader loads a time series from an io.Reader.
// Empty and NA cells are skipped. Rows whose value cannot be parsed fail the load.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true

	valueIdx, dateIdx := 1, 0
	if opts.HasHeader {
		header, err := reader.Read()
		if err == io.EOF {
			return nil, ErrNoData
		}
		if err != nil {
			return nil, err
		}
		valueIdx, dateIdx, err = resolveColumns(header, opts)
		if err != nil {
			return nil, err
		}
	}

	var (
		values     []float64
		timestamps []time.Time
		line       = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if valueIdx >= len(record) {
			continue
		}
		raw := clean(record[valueIdx])
		if isMissing(raw) {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse value %q: %w", line, raw, err)
		}
		values = append(values, v)

		if dateIdx >= 0 && dateIdx < len(record) {
			if ts, ok := parseDate(clean(record[dateIdx]), opts.DateFormat); ok {
				timestamps = append(timestamps, ts)
			}
		}
	}

	if len(values) == 0 {
		return nil, ErrNoData
	}

	if len(timestamps) == len(values) {
		return &Series{Timestamps: timestamps, Values: values, Name: columnName(opts)}, nil
	}
	s := New(values)
	s.Name = columnName(opts)
	return s, nil
}

func resolveColumns(header []string, opts *CSVOptions) (valueIdx, dateIdx int, err error) {
	valueIdx, dateIdx = -1, -1
	for i, h := range header {
		h = clean(h)
		switch {
		case opts.ValueColumn != "" && h == opts.ValueColumn:
			valueIdx = i
		case opts.DateColumn != "" && h == opts.DateColumn:
			dateIdx = i
		case opts.ValueColumn == "" && valueIdx == -1 && (h == "y" || h == "value" || h == "Value"):
			valueIdx = i
		case dateIdx == -1 && (h == "ds" || h == "date" || h == "Date" || h == "Month"):
			dateIdx = i
		}
	}

	if valueIdx == -1 {
		if opts.ValueColumn != "" {
			return -1, -1, fmt.Errorf("%q: %w", opts.ValueColumn, ErrColumnNotFound)
		}
		valueIdx = len(header) - 1
	}
	return valueIdx, dateIdx, nil
}

func parseDate(s, preferred string) (time.Time, bool) {
	if preferred != "" {
		if ts, err := time.Parse(preferred, s); err == nil {
			return ts, true
		}
	}
	for _, layout := range dateFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func clean(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\""))
}

func isMissing(s string) bool {
	switch s {
	case "", "NA", "NaN", "nan", "null":
		return true
	}
	return false
}

func columnName(opts *CSVOptions) string {
	if opts.ValueColumn != "" {
		return opts.ValueColumn
	}
	return "y"
}
