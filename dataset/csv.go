package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var ErrNoHeader = errors.New("delimited file has no header row")

// ReadCSV parses a delimited file with a header row. Column types are inferred from the
// cells (int64, double, bool, otherwise string) and empty cells are null.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	raw := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}
		for c := range header {
			raw[c] = append(raw[c], rec[c])
		}
	}

	series := make([]Series, len(header))
	for c, name := range header {
		t := inferCellType(raw[c])
		vals := make([]any, len(raw[c]))
		for r, cell := range raw[c] {
			vals[r] = parseCell(t, cell)
		}
		series[c] = Series{Column: Column{Name: name, Type: t}, Values: vals}
	}
	return NewFrame(series...)
}

func inferCellType(cells []string) Type {
	isInt, isFloat, isBool := true, true, true
	nonEmpty := false
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		nonEmpty = true
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			isFloat = false
		}
		if _, err := strconv.ParseBool(cell); err != nil || (cell != "true" && cell != "false") {
			isBool = false
		}
	}
	switch {
	case !nonEmpty:
		return String
	case isInt:
		return Int64
	case isFloat:
		return Double
	case isBool:
		return Bool
	}
	return String
}

func parseCell(t Type, cell string) any {
	if cell == "" {
		return nil
	}
	switch t {
	case Int64:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case Double:
		f, _ := strconv.ParseFloat(cell, 64)
		return f
	case Bool:
		return cell == "true"
	}
	return cell
}
