package parquet_schema

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/danthegoodman1/glueexport/dataset"
)

type (
	ParquetSchema struct {
		TagStructs SchemaTag
		Fields     []*ParquetSchema
		columns    dataset.Schema
	}

	SchemaTag struct {
		Name           string
		Type           string
		ConvertedType  string
		RepetitionType RepetitionType
		Encoding       string
	}

	RepetitionType string
)

var (
	Optional RepetitionType = "OPTIONAL"
	Required RepetitionType = "REQUIRED"
)

// FromSchema builds the parquet schema for a dataset schema. Every column is OPTIONAL so nulls survive.
func FromSchema(schema dataset.Schema) (*ParquetSchema, error) {
	root := &ParquetSchema{
		TagStructs: SchemaTag{
			Name:           "parquet_go_root",
			RepetitionType: Required,
		},
		columns: schema,
	}
	for _, col := range schema {
		field, err := columnSchema(col)
		if err != nil {
			return nil, err
		}
		root.Fields = append(root.Fields, field)
	}
	return root, nil
}

func columnSchema(col dataset.Column) (*ParquetSchema, error) {
	tag := SchemaTag{
		Name:           col.Name,
		RepetitionType: Optional,
	}
	switch col.Type {
	case dataset.Int8:
		tag.Type, tag.ConvertedType = "INT32", "INT_8"
	case dataset.Int16:
		tag.Type, tag.ConvertedType = "INT32", "INT_16"
	case dataset.Int32:
		tag.Type = "INT32"
	case dataset.Int64:
		tag.Type = "INT64"
	case dataset.Float:
		tag.Type = "FLOAT"
	case dataset.Double:
		tag.Type = "DOUBLE"
	case dataset.Bool:
		tag.Type = "BOOLEAN"
	case dataset.String:
		tag.Type, tag.ConvertedType, tag.Encoding = "BYTE_ARRAY", "UTF8", "PLAIN"
	case dataset.Binary:
		tag.Type = "BYTE_ARRAY"
	case dataset.Timestamp:
		// parquet converted types stop at microseconds
		tag.Type, tag.ConvertedType = "INT64", "TIMESTAMP_MICROS"
	case dataset.Date:
		tag.Type, tag.ConvertedType = "INT32", "DATE"
	default:
		return nil, fmt.Errorf("%w: %s for column %s", dataset.ErrUnknownType, col.Type, col.Name)
	}
	return &ParquetSchema{TagStructs: tag}, nil
}

// Tag renders the parquet-go struct tag of a single field
func (ps *ParquetSchema) Tag() string {
	var tagArr []string
	if ps.TagStructs.Name != "" {
		tagArr = append(tagArr, "name="+ps.TagStructs.Name)
	}
	if ps.TagStructs.Type != "" {
		tagArr = append(tagArr, "type="+ps.TagStructs.Type)
	}
	if ps.TagStructs.ConvertedType != "" {
		tagArr = append(tagArr, "convertedtype="+ps.TagStructs.ConvertedType)
	}
	if ps.TagStructs.Encoding != "" {
		tagArr = append(tagArr, "encoding="+ps.TagStructs.Encoding)
	}
	if string(ps.TagStructs.RepetitionType) != "" {
		tagArr = append(tagArr, "repetitiontype="+string(ps.TagStructs.RepetitionType))
	}
	return strings.Join(tagArr, ", ")
}

// Metadata is the per column tag list parquet-go's CSV writer takes, in column order
func (ps *ParquetSchema) Metadata() []string {
	md := make([]string, len(ps.Fields))
	for i, field := range ps.Fields {
		md[i] = field.Tag()
	}
	return md
}

// Row returns one row of frame as the physical values of the schema's columns, in column
// order. Nulls and non-finite floats are nil, which the writer stores as null.
func (ps *ParquetSchema) Row(frame *dataset.Frame, row int) ([]interface{}, error) {
	out := make([]interface{}, len(ps.columns))
	for i, col := range ps.columns {
		v, ok := frame.Value(row, col.Name)
		if !ok {
			return nil, fmt.Errorf("column %s not in frame", col.Name)
		}
		pv, err := physicalValue(col.Type, v)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", col.Name, row, err)
		}
		out[i] = pv
	}
	return out, nil
}

func physicalValue(t dataset.Type, v any) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case int8:
		return int32(val), nil
	case int16:
		return int32(val), nil
	case int32, int64, bool, string:
		return val, nil
	case float32:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil, nil
		}
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, nil
		}
		return val, nil
	case []byte:
		// BYTE_ARRAY values are Go strings holding the raw bytes
		return string(val), nil
	case time.Time:
		if t == dataset.Date {
			return int32(val.UTC().Truncate(24*time.Hour).Unix() / 86400), nil
		}
		return val.UnixMicro(), nil
	}
	return nil, fmt.Errorf("%w: %T for %s", dataset.ErrValueType, v, t)
}
