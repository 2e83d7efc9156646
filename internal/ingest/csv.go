package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"batch-health/internal/models"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrNoHeader      = errors.New("csv has no header row")
)

// ParseError reports a percentage cell that could not be read. Row is the
// 1-based line in the file, header included.
type ParseError struct {
	Row   int
	Label string
	Field string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d (%q): field %q: cannot parse %q as percentage: %v", e.Row, e.Label, e.Field, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Columns lists accepted header names for each field, matched without
// regard to case or surrounding spaces.
type Columns struct {
	Label    []string `yaml:"label" json:"label"`
	Previous []string `yaml:"previous" json:"previous"`
	Current  []string `yaml:"current" json:"current"`
}

var DefaultColumns = Columns{
	Label:    []string{"Vertical", "Category"},
	Previous: []string{"Last week", "Week 1"},
	Current:  []string{"This week", "Week 2"},
}

// Merge fills empty candidate lists from DefaultColumns.
func (c Columns) Merge() Columns {
	if len(c.Label) == 0 {
		c.Label = DefaultColumns.Label
	}
	if len(c.Previous) == 0 {
		c.Previous = DefaultColumns.Previous
	}
	if len(c.Current) == 0 {
		c.Current = DefaultColumns.Current
	}
	return c
}

var (
	errEmptyValue  = errors.New("empty value")
	errNotFinite   = errors.New("value is not finite")
	errNegativePct = errors.New("percentage is negative")
	errEmptyLabel  = errors.New("empty label")
)

// ParsePercent reads "12.5", "12.5%" or " 12.5 % " as 12.5.
func ParsePercent(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, errEmptyValue
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	if v < 0 {
		return 0, errNegativePct
	}
	return v, nil
}

// ReadCSV parses a header row followed by one row per category. Rows keep
// their file order.
func ReadCSV(r io.Reader, cols Columns) ([]models.MetricPoint, error) {
	cols = cols.Merge()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	labelIdx, err := findColumn(header, cols.Label)
	if err != nil {
		return nil, err
	}
	prevIdx, err := findColumn(header, cols.Previous)
	if err != nil {
		return nil, err
	}
	curIdx, err := findColumn(header, cols.Current)
	if err != nil {
		return nil, err
	}

	points := make([]models.MetricPoint, 0, 16)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}

		label := cell(record, labelIdx)
		if label == "" {
			return nil, &ParseError{Row: line, Field: header[labelIdx], Err: errEmptyLabel}
		}
		prev, err := ParsePercent(cell(record, prevIdx))
		if err != nil {
			return nil, &ParseError{Row: line, Label: label, Field: header[prevIdx], Raw: cell(record, prevIdx), Err: err}
		}
		cur, err := ParsePercent(cell(record, curIdx))
		if err != nil {
			return nil, &ParseError{Row: line, Label: label, Field: header[curIdx], Raw: cell(record, curIdx), Err: err}
		}

		points = append(points, models.MetricPoint{Label: label, Previous: prev, Current: cur})
	}

	return points, nil
}

func findColumn(header []string, candidates []string) (int, error) {
	for _, want := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(want)) {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: expected one of %q", ErrMissingColumn, candidates)
}

func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
