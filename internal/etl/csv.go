package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tigerroll/roomrate/internal/support/exception"
)

// record is one CSV data row addressed by header name.
type record struct {
	line   int
	fields map[string]string
}

func (r record) str(col string) string {
	return strings.TrimSpace(r.fields[col])
}

func (r record) int(col string) (int, error) {
	v, err := strconv.Atoi(r.str(col))
	if err != nil {
		return 0, r.invalid(col, err)
	}
	return v, nil
}

// float parses a finite number; NaN and infinities are rejected.
func (r record) float(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0, r.invalid(col, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, r.invalid(col, fmt.Errorf("%v is not a finite number", v))
	}
	return v, nil
}

func (r record) invalid(col string, err error) error {
	return fmt.Errorf("%w: line %d, column %q: %v", exception.ErrInvalidInput, r.line, col, err)
}

// readRecords reads a headed CSV and checks that every required column is present.
// Blank lines are ignored. A file without a header yields no records.
func readRecords(r io.Reader, required []string) ([]record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", exception.ErrInvalidInput, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", exception.ErrInvalidInput, col)
		}
	}

	var out []record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			// csv.ParseError carries the line number.
			return nil, fmt.Errorf("%w: %v", exception.ErrInvalidInput, err)
		}
		line, _ := cr.FieldPos(0)
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, got %d", exception.ErrInvalidInput, line, len(header), len(row))
		}
		fields := make(map[string]string, len(index))
		for name, i := range index {
			fields[name] = row[i]
		}
		out = append(out, record{line: line, fields: fields})
	}
}
