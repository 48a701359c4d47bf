package dataset

import (
	"fmt"
	"strings"
	"time"
)

// Type is the in-memory type tag of a column
type Type string

const (
	Int8      Type = "int8"
	Int16     Type = "int16"
	Int32     Type = "int32"
	Int64     Type = "int64"
	Float     Type = "float"
	Double    Type = "double"
	Bool      Type = "bool"
	String    Type = "string"
	Binary    Type = "binary"
	Timestamp Type = "timestamp"
	Date      Type = "date"
)

// IndexColumnPrefix marks synthetic index columns, which never reach the catalog schema
const IndexColumnPrefix = "__index_level_"

var knownTypes = map[Type]bool{
	Int8: true, Int16: true, Int32: true, Int64: true,
	Float: true, Double: true, Bool: true, String: true,
	Binary: true, Timestamp: true, Date: true,
}

func (t Type) Known() bool {
	return knownTypes[t]
}

// ParseType accepts a type tag case-insensitively, plus a few common aliases
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int8", "tinyint":
		return Int8, nil
	case "int16", "smallint":
		return Int16, nil
	case "int32", "int", "integer":
		return Int32, nil
	case "int64", "bigint", "long":
		return Int64, nil
	case "float", "float32":
		return Float, nil
	case "double", "float64":
		return Double, nil
	case "bool", "boolean":
		return Bool, nil
	case "string", "utf8", "varchar":
		return String, nil
	case "binary", "bytes":
		return Binary, nil
	case "timestamp", "datetime":
		return Timestamp, nil
	case "date":
		return Date, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// IsIndexColumn reports whether the column name is a synthetic index column
func IsIndexColumn(name string) bool {
	return strings.HasPrefix(name, IndexColumnPrefix)
}

// checkValue verifies the Go value carried for a column of type t. nil is always accepted as null.
func checkValue(t Type, v any) bool {
	if v == nil {
		return true
	}
	switch t {
	case Int8:
		_, ok := v.(int8)
		return ok
	case Int16:
		_, ok := v.(int16)
		return ok
	case Int32:
		_, ok := v.(int32)
		return ok
	case Int64:
		_, ok := v.(int64)
		return ok
	case Float:
		_, ok := v.(float32)
		return ok
	case Double:
		_, ok := v.(float64)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case String:
		_, ok := v.(string)
		return ok
	case Binary:
		_, ok := v.([]byte)
		return ok
	case Timestamp, Date:
		_, ok := v.(time.Time)
		return ok
	}
	// unknown tags carry whatever the caller gives them
	return true
}
