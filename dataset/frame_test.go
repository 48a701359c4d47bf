package dataset

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigMacFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame(
		Series{Column: Column{Name: "name", Type: String}, Values: []any{"Brazil", "Argentina", "Brazil"}},
		Series{Column: Column{Name: "date", Type: String}, Values: []any{"2016-01-01", "2016-01-01", "2016-01-01"}},
		Series{Column: Column{Name: "value", Type: Double}, Values: []any{4.28, 3.35, 4.5}},
	)
	require.NoError(t, err)
	return f
}

func TestNewFrame(t *testing.T) {
	f := bigMacFrame(t)
	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, []string{"name", "date", "value"}, f.Schema().Names())

	v, ok := f.Value(1, "name")
	require.True(t, ok)
	assert.Equal(t, "Argentina", v)

	_, ok = f.Values("missing")
	assert.False(t, ok)
}

func TestNewFrameErrors(t *testing.T) {
	_, err := NewFrame(
		Series{Column: Column{Name: "a", Type: Int64}, Values: []any{int64(1)}},
		Series{Column: Column{Name: "a", Type: Int64}, Values: []any{int64(2)}},
	)
	assert.True(t, errors.Is(err, ErrDuplicateColumn))

	_, err = NewFrame(
		Series{Column: Column{Name: "a", Type: Int64}, Values: []any{int64(1)}},
		Series{Column: Column{Name: "b", Type: Int64}, Values: []any{int64(1), int64(2)}},
	)
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	_, err = NewFrame(Series{Column: Column{Name: "a", Type: Int64}, Values: []any{"nope"}})
	assert.True(t, errors.Is(err, ErrValueType))

	_, err = NewFrame(Series{Column: Column{Name: "a", Type: Int64}, Values: []any{nil}})
	assert.NoError(t, err)

	// parquet and the catalog fold case, so val and Val would collide there
	_, err = NewFrame(
		Series{Column: Column{Name: "val", Type: Int64}, Values: []any{int64(1)}},
		Series{Column: Column{Name: "Val", Type: Int64}, Values: []any{int64(2)}},
	)
	assert.True(t, errors.Is(err, ErrDuplicateColumn))
}

func TestTakeAndSelect(t *testing.T) {
	f := bigMacFrame(t)
	sub := f.Take([]int{2, 0})
	assert.Equal(t, 2, sub.NumRows())
	v, _ := sub.Value(0, "value")
	assert.Equal(t, 4.5, v)

	sel, err := f.Select("value", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "name"}, sel.Schema().Names())

	_, err = f.Select("nope")
	assert.Error(t, err)
}

func TestWithIndex(t *testing.T) {
	f := bigMacFrame(t).WithIndex()
	schema := f.Schema()
	require.Len(t, schema, 4)
	idx := schema[3]
	assert.True(t, IsIndexColumn(idx.Name))
	assert.Equal(t, Int64, idx.Type)
	v, _ := f.Value(2, idx.Name)
	assert.Equal(t, int64(2), v)

	// adding twice keeps a single index
	assert.Len(t, f.WithIndex().Schema(), 4)
}

func TestFormatValue(t *testing.T) {
	day := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2016-01-01", FormatValue(Date, day))
	assert.Equal(t, "2016-01-01 00:00:00", FormatValue(Timestamp, day))
	assert.Equal(t, "42", FormatValue(Int32, int32(42)))
	assert.Equal(t, "true", FormatValue(Bool, true))
	assert.Equal(t, "0.5", FormatValue(Double, 0.5))
	assert.Equal(t, "0a0b", FormatValue(Binary, []byte{10, 11}))
	assert.Equal(t, "", FormatValue(String, nil))

	// dates are rendered in UTC, the same day the file stores
	plus5 := time.Date(2016, 1, 2, 0, 0, 0, 0, time.FixedZone("plus5", 5*60*60))
	assert.Equal(t, "2016-01-01", FormatValue(Date, plus5))
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("BigInt")
	require.NoError(t, err)
	assert.Equal(t, Int64, typ)

	_, err = ParseType("struct<a:int>")
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestFromRecords(t *testing.T) {
	f, err := FromRecords([]map[string]any{
		{"name": "Brazil", "value": 4.28, "count": float64(3)},
		{"name": "Argentina", "value": float64(3), "count": float64(4), "ok": true},
	}, Schema{{Name: "date", Type: Date}})
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "count", "name", "ok", "value"}, f.Schema().Names())
	schema := f.Schema()
	assert.Equal(t, Int64, schema[1].Type)
	assert.Equal(t, String, schema[2].Type)
	assert.Equal(t, Bool, schema[3].Type)
	assert.Equal(t, Double, schema[4].Type)

	v, _ := f.Value(0, "ok")
	assert.Nil(t, v)
	v, _ = f.Value(1, "count")
	assert.Equal(t, int64(4), v)
}

func TestFromRecordsCoercesDeclared(t *testing.T) {
	f, err := FromRecords([]map[string]any{
		{"day": "2016-01-01", "n": float64(7)},
	}, Schema{{Name: "day", Type: Date}, {Name: "n", Type: Int32}})
	require.NoError(t, err)
	v, _ := f.Value(0, "day")
	assert.Equal(t, time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), v)
	v, _ = f.Value(0, "n")
	assert.Equal(t, int32(7), v)

	_, err = FromRecords([]map[string]any{{"n": "seven"}}, Schema{{Name: "n", Type: Int32}})
	assert.True(t, errors.Is(err, ErrValueType))
}

func TestReadCSV(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("\"name\",\"n\",\"price\",\"flag\"\n\"a\",\"1\",\"1.5\",\"true\"\n\"b\",\"\",\"2\",\"false\"\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.NumRows())
	schema := f.Schema()
	assert.Equal(t, Schema{
		{Name: "name", Type: String},
		{Name: "n", Type: Int64},
		{Name: "price", Type: Double},
		{Name: "flag", Type: Bool},
	}, schema)
	v, _ := f.Value(1, "n")
	assert.Nil(t, v)
	v, _ = f.Value(1, "price")
	assert.Equal(t, 2.0, v)

	_, err = ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrNoHeader))
}

func TestFromRecordsRangeChecks(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		value any
	}{
		{"int8 overflow", Int8, float64(300)},
		{"int8 underflow", Int8, float64(-129)},
		{"int16 overflow", Int16, float64(40000)},
		{"int32 overflow", Int32, float64(1 << 31)},
		{"int64 overflow", Int64, 1e20},
		{"int64 from 2^63", Int64, float64(1 << 63)},
		{"fraction", Int64, 1.5},
		{"number overflow", Int8, json.Number("128")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRecords([]map[string]any{{"n": tt.value}}, Schema{{Name: "n", Type: tt.typ}})
			assert.True(t, errors.Is(err, ErrValueType), "got %v", err)
		})
	}

	f, err := FromRecords([]map[string]any{{"small": float64(-128), "big": float64(-(1 << 63))}}, Schema{{Name: "small", Type: Int8}, {Name: "big", Type: Int64}})
	require.NoError(t, err)
	v, _ := f.Value(0, "small")
	assert.Equal(t, int8(-128), v)
	v, _ = f.Value(0, "big")
	assert.Equal(t, int64(math.MinInt64), v)
}

func TestFromRecordsJSONNumbers(t *testing.T) {
	f, err := FromRecords([]map[string]any{
		{"id": json.Number("9007199254740993"), "price": json.Number("4.28"), "label": json.Number("12")},
	}, Schema{{Name: "label", Type: String}})
	require.NoError(t, err)

	schema := f.Schema()
	assert.Equal(t, Int64, schema[schema.Index("id")].Type)
	assert.Equal(t, Double, schema[schema.Index("price")].Type)

	v, _ := f.Value(0, "id")
	assert.Equal(t, int64(9007199254740993), v)
	v, _ = f.Value(0, "price")
	assert.Equal(t, 4.28, v)
	v, _ = f.Value(0, "label")
	assert.Equal(t, "12", v)
}
