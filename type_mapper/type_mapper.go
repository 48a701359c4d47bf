package type_mapper

import (
	"strings"

	"github.com/danthegoodman1/glueexport/dataset"
	"github.com/danthegoodman1/glueexport/table"
	"github.com/danthegoodman1/glueexport/utils"
)

// ToCatalogType maps an in-memory type tag to the catalog type vocabulary. Tags without a
// mapping pass through lower-cased, the catalog decides at create time whether it accepts them.
func ToCatalogType(t dataset.Type) string {
	switch strings.ToLower(string(t)) {
	case "int32", "int64":
		return "bigint"
	case "bool":
		return "boolean"
	case "timestamp", "date", "binary":
		// the files keep the precise type, the catalog sees the textual form
		return "string"
	default:
		return strings.ToLower(string(t))
	}
}

// BuildCatalogSchema derives the catalog columns from the dataset schema, dropping partition
// key columns and synthetic index columns and keeping the original order.
func BuildCatalogSchema(schema dataset.Schema, partitionCols []string) []table.Column {
	cols := make([]table.Column, 0, len(schema))
	for _, col := range schema {
		if dataset.IsIndexColumn(col.Name) || utils.ContainsString(partitionCols, col.Name) {
			continue
		}
		cols = append(cols, table.Column{
			Name: col.Name,
			Type: ToCatalogType(col.Type),
		})
	}
	return cols
}
