package dataset

import (
	"errors"
	"fmt"
	"strings"
)

type (
	Column struct {
		Name string
		Type Type
	}

	// Schema is an ordered list of columns with unique names
	Schema []Column

	// Series is a column together with its values, nil meaning null
	Series struct {
		Column
		Values []any
	}

	// Frame is an immutable in-memory table stored column by column
	Frame struct {
		schema  Schema
		columns [][]any
		numRows int
	}
)

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrLengthMismatch  = errors.New("columns have different lengths")
	ErrValueType       = errors.New("value does not match column type")
	ErrUnknownType     = errors.New("unknown column type")
	ErrEmptyColumnName = errors.New("empty column name")
)

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// Index returns the position of the named column or -1
func (s Schema) Index(name string) int {
	for i, col := range s {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks names are non-empty and unique ignoring case, since parquet field names and
// catalog column names are both case-insensitive
func (s Schema) Validate() error {
	seen := make(map[string]string, len(s))
	for _, col := range s {
		if col.Name == "" {
			return ErrEmptyColumnName
		}
		folded := strings.ToLower(col.Name)
		if prev, exists := seen[folded]; exists {
			return fmt.Errorf("%w: %s and %s", ErrDuplicateColumn, prev, col.Name)
		}
		seen[folded] = col.Name
	}
	return nil
}

// NewFrame builds a frame, checking names, lengths and value types
func NewFrame(series ...Series) (*Frame, error) {
	f := &Frame{
		schema:  make(Schema, 0, len(series)),
		columns: make([][]any, 0, len(series)),
	}
	for i, s := range series {
		if i == 0 {
			f.numRows = len(s.Values)
		} else if len(s.Values) != f.numRows {
			return nil, fmt.Errorf("%w: %s has %d rows, expected %d", ErrLengthMismatch, s.Name, len(s.Values), f.numRows)
		}
		for row, v := range s.Values {
			if !checkValue(s.Type, v) {
				return nil, fmt.Errorf("%w: column %s row %d holds %T, expected %s", ErrValueType, s.Name, row, v, s.Type)
			}
		}
		f.schema = append(f.schema, s.Column)
		f.columns = append(f.columns, s.Values)
	}
	if err := f.schema.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// MustNewFrame is NewFrame that panics, for fixtures
func MustNewFrame(series ...Series) *Frame {
	f, err := NewFrame(series...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Frame) Schema() Schema {
	out := make(Schema, len(f.schema))
	copy(out, f.schema)
	return out
}

func (f *Frame) NumRows() int {
	return f.numRows
}

func (f *Frame) NumColumns() int {
	return len(f.schema)
}

// Values returns the values of the named column. The returned slice must not be modified.
func (f *Frame) Values(name string) ([]any, bool) {
	i := f.schema.Index(name)
	if i < 0 {
		return nil, false
	}
	return f.columns[i], true
}

// Value returns a single cell
func (f *Frame) Value(row int, name string) (any, bool) {
	vals, ok := f.Values(name)
	if !ok || row < 0 || row >= f.numRows {
		return nil, false
	}
	return vals[row], true
}

// Take returns a new frame holding the given rows, in the given order
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{
		schema:  f.Schema(),
		columns: make([][]any, len(f.columns)),
		numRows: len(rows),
	}
	for c, vals := range f.columns {
		taken := make([]any, len(rows))
		for i, r := range rows {
			taken[i] = vals[r]
		}
		out.columns[c] = taken
	}
	return out
}

// Select returns a new frame with only the named columns, in the given order
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{
		schema:  make(Schema, 0, len(names)),
		columns: make([][]any, 0, len(names)),
		numRows: f.numRows,
	}
	for _, name := range names {
		i := f.schema.Index(name)
		if i < 0 {
			return nil, fmt.Errorf("column %s not found", name)
		}
		out.schema = append(out.schema, f.schema[i])
		out.columns = append(out.columns, f.columns[i])
	}
	if err := out.schema.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithIndex returns a frame with the synthetic row index appended as __index_level_0__.
// Frames that already carry an index column are returned as-is.
func (f *Frame) WithIndex() *Frame {
	for _, col := range f.schema {
		if IsIndexColumn(col.Name) {
			return f
		}
	}
	idx := make([]any, f.numRows)
	for i := range idx {
		idx[i] = int64(i)
	}
	out := &Frame{
		schema:  append(f.Schema(), Column{Name: IndexColumnPrefix + "0__", Type: Int64}),
		columns: append(append(make([][]any, 0, len(f.columns)+1), f.columns...), idx),
		numRows: f.numRows,
	}
	return out
}

// Row returns the row as a map keyed by column name
func (f *Frame) Row(row int) map[string]any {
	m := make(map[string]any, len(f.schema))
	for c, col := range f.schema {
		m[col.Name] = f.columns[c][row]
	}
	return m
}
