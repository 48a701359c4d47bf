package partitioner

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/danthegoodman1/glueexport/dataset"
	"github.com/danthegoodman1/glueexport/parquet_schema"
	"github.com/danthegoodman1/glueexport/utils"
)

type (
	// Group is the set of rows sharing one combination of partition key values
	Group struct {
		// Values are the formatted key values in partition key order, the raw catalog values
		Values []string
		// Subdir is the escaped `k1=v1/k2=v2` path of the group, empty when unpartitioned
		Subdir string
		Rows   []int
	}

	Plan struct {
		PartitionCols []string
		// FileSchema is the schema each emitted file carries
		FileSchema dataset.Schema
		// Parquet is FileSchema as a parquet schema
		Parquet     *parquet_schema.ParquetSchema
		Partitioned bool
		// Groups iterate in order of first appearance in the dataset
		Groups []Group
	}
)

// DefaultPartitionValue is used in place of a null key value
const DefaultPartitionValue = "__HIVE_DEFAULT_PARTITION__"

var (
	ErrMissingColumns = errors.New("missing one or more partition columns")
	ErrNoDataColumns  = errors.New("no data left to save outside partition columns")
)

// PlanPartitions validates the partition columns and groups the rows of frame by the distinct
// combinations of their values. It does no I/O, so every validation failure happens before a
// file is written.
func PlanPartitions(frame *dataset.Frame, partitionCols []string, preserveIndex bool) (*Plan, error) {
	schema := frame.Schema()
	if err := validatePartitionCols(schema, partitionCols); err != nil {
		return nil, err
	}

	plan := &Plan{
		PartitionCols: append([]string{}, partitionCols...),
		Partitioned:   len(partitionCols) > 0,
	}

	dataCols := 0
	for _, col := range schema {
		if utils.ContainsString(partitionCols, col.Name) {
			continue
		}
		if dataset.IsIndexColumn(col.Name) {
			if preserveIndex {
				plan.FileSchema = append(plan.FileSchema, col)
			}
			continue
		}
		dataCols++
		plan.FileSchema = append(plan.FileSchema, col)
	}
	if dataCols == 0 {
		return nil, &utils.ValidationError{Reason: ErrNoDataColumns.Error()}
	}
	ps, err := parquet_schema.FromSchema(plan.FileSchema)
	if err != nil {
		return nil, utils.NewValidationError("%s", err)
	}
	plan.Parquet = ps

	if !plan.Partitioned {
		rows := make([]int, frame.NumRows())
		for i := range rows {
			rows[i] = i
		}
		plan.Groups = []Group{{Rows: rows}}
		return plan, nil
	}

	keyCols := make([][]any, len(partitionCols))
	keyTypes := make([]dataset.Type, len(partitionCols))
	for i, name := range partitionCols {
		keyCols[i], _ = frame.Values(name)
		keyTypes[i] = schema[schema.Index(name)].Type
	}

	groupIndex := map[string]int{}
	for row := 0; row < frame.NumRows(); row++ {
		values := make([]string, len(partitionCols))
		for i := range partitionCols {
			values[i] = formatKey(keyTypes[i], keyCols[i][row])
		}
		// unit separator cannot collide with formatted values joined this way
		key := strings.Join(values, "\x1f")
		gi, exists := groupIndex[key]
		if !exists {
			gi = len(plan.Groups)
			groupIndex[key] = gi
			plan.Groups = append(plan.Groups, Group{
				Values: values,
				Subdir: PartitionPath(partitionCols, values),
			})
		}
		plan.Groups[gi].Rows = append(plan.Groups[gi].Rows, row)
	}

	return plan, nil
}

func validatePartitionCols(schema dataset.Schema, partitionCols []string) error {
	seen := map[string]struct{}{}
	for _, name := range partitionCols {
		if name == "" || strings.ContainsAny(name, "/=") {
			return utils.NewValidationError("invalid partition column name %q", name)
		}
		if _, dup := seen[name]; dup {
			return utils.NewValidationError("partition column %s declared twice", name)
		}
		seen[name] = struct{}{}
		if schema.Index(name) < 0 {
			return utils.NewValidationError("%s: %s", ErrMissingColumns, name)
		}
		if dataset.IsIndexColumn(name) {
			return utils.NewValidationError("index column %s can not be a partition column", name)
		}
	}
	return nil
}

func formatKey(t dataset.Type, v any) string {
	if v == nil {
		return DefaultPartitionValue
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return DefaultPartitionValue
	}
	if f, ok := v.(float32); ok && math.IsNaN(float64(f)) {
		return DefaultPartitionValue
	}
	return dataset.FormatValue(t, v)
}

// PartitionPath joins `name=value` segments in key order, escaping each value
func PartitionPath(partitionCols []string, values []string) string {
	var finalParts []string
	for i, name := range partitionCols {
		finalParts = append(finalParts, fmt.Sprintf("%s=%s", name, EscapePathValue(values[i])))
	}
	return strings.Join(finalParts, "/")
}

// EscapePathValue percent-encodes the characters Hive escapes in partition directory names
func EscapePathValue(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&sb, "%%%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}
