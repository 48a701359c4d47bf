package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/danthegoodman1/gojsonutils"
)

var ErrNotFlatMap = errors.New("not a flat map")

// FromRecords builds a frame from JSON-like records. Nested objects are flattened into
// top level column names. Columns listed in declared keep their order and type, any other column found
// in the records is appended in name order with an inferred type.
func FromRecords(records []map[string]any, declared Schema) (*Frame, error) {
	flatRows := make([]map[string]any, 0, len(records))
	seen := map[string]struct{}{}
	for _, record := range records {
		flat, err := gojsonutils.Flatten(record, nil)
		if err != nil {
			return nil, fmt.Errorf("error in gojsonutils.Flatten: %w", err)
		}
		flatMap, ok := flat.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %+v", ErrNotFlatMap, flat)
		}
		for key := range flatMap {
			seen[key] = struct{}{}
		}
		flatRows = append(flatRows, flatMap)
	}

	schema := make(Schema, 0, len(seen))
	schema = append(schema, declared...)
	var extra []string
	for key := range seen {
		if declared.Index(key) < 0 {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		schema = append(schema, Column{Name: key, Type: inferRecordType(flatRows, key)})
	}

	series := make([]Series, len(schema))
	for c, col := range schema {
		vals := make([]any, len(flatRows))
		for r, row := range flatRows {
			v, err := coerce(col.Type, row[col.Name])
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", col.Name, r, err)
			}
			vals[r] = v
		}
		series[c] = Series{Column: col, Values: vals}
	}
	return NewFrame(series...)
}

func inferRecordType(rows []map[string]any, key string) Type {
	t := Type("")
	for _, row := range rows {
		var cur Type
		switch v := row[key].(type) {
		case nil:
			continue
		case bool:
			cur = Bool
		case float64:
			if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
				cur = Int64
			} else {
				cur = Double
			}
		case json.Number:
			if _, err := v.Int64(); err == nil {
				cur = Int64
			} else {
				cur = Double
			}
		case int, int64, int32:
			cur = Int64
		default:
			cur = String
		}
		switch {
		case t == "":
			t = cur
		case t == cur:
		case (t == Int64 && cur == Double) || (t == Double && cur == Int64):
			t = Double
		default:
			return String
		}
	}
	if t == "" {
		return String
	}
	return t
}

// coerce converts a decoded JSON value into the Go value carried by type t
func coerce(t Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case String:
		switch s := v.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		case []any, map[string]any:
			b, err := json.Marshal(s)
			if err != nil {
				return nil, fmt.Errorf("error in json.Marshal: %w", err)
			}
			return string(b), nil
		}
		return FormatValue(t, v), nil
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Int8, Int16, Int32, Int64:
		n, ok := toInt64(v)
		if !ok {
			break
		}
		switch t {
		case Int8:
			if n < math.MinInt8 || n > math.MaxInt8 {
				return nil, fmt.Errorf("%w: %d out of range for %s", ErrValueType, n, t)
			}
			return int8(n), nil
		case Int16:
			if n < math.MinInt16 || n > math.MaxInt16 {
				return nil, fmt.Errorf("%w: %d out of range for %s", ErrValueType, n, t)
			}
			return int16(n), nil
		case Int32:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %d out of range for %s", ErrValueType, n, t)
			}
			return int32(n), nil
		}
		return n, nil
	case Float, Double:
		f, ok := toFloat64(v)
		if !ok {
			break
		}
		if t == Float {
			return float32(f), nil
		}
		return f, nil
	case Binary:
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
	case Timestamp, Date:
		switch tv := v.(type) {
		case string:
			layouts := []string{time.RFC3339Nano, TimestampLayout, DateLayout}
			for _, layout := range layouts {
				if tm, err := time.Parse(layout, tv); err == nil {
					if t == Date {
						return tm.UTC().Truncate(24 * time.Hour), nil
					}
					return tm.UTC(), nil
				}
			}
		case float64, json.Number:
			// epoch milliseconds
			ms, ok := toInt64(tv)
			if !ok {
				break
			}
			tm := time.UnixMilli(ms).UTC()
			if t == Date {
				return tm.Truncate(24 * time.Hour), nil
			}
			return tm, nil
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("%w: can not use %T as %s", ErrValueType, v, t)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return toInt64(f)
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
