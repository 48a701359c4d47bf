package table

// Hive/Parquet identifiers used in the catalog storage descriptors
const (
	TableTypeExternal = "EXTERNAL_TABLE"

	ParquetInputFormat  = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetInputFormat"
	ParquetOutputFormat = "org.apache.hadoop.hive.ql.io.parquet.MapredParquetOutputFormat"
	ParquetSerDe        = "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"

	Classification  = "parquet"
	CompressionType = "none"
	TypeOfData      = "file"

	// PartitionKeyType is the catalog type every partition key is declared with
	PartitionKeyType = "string"
)

type (
	// Column is a catalog column, its type drawn from the catalog's type vocabulary
	Column struct {
		Name string
		Type string
	}

	// Definition describes the table created in the catalog on first write
	Definition struct {
		Database string
		Name     string
		// Location is the storage root of the table, always with a trailing slash
		Location string
		Columns  []Column
		// PartitionKeys in declaration order, the order partition values are registered in
		PartitionKeys []string
	}
)

// Parameters returns the table level parameters map
func Parameters() map[string]string {
	return map[string]string{
		"classification":  Classification,
		"compressionType": CompressionType,
		"typeOfData":      TypeOfData,
	}
}

// StorageParameters returns the storage descriptor parameters map
func StorageParameters() map[string]string {
	p := Parameters()
	p["CrawlerSchemaDeserializerVersion"] = "1.0"
	return p
}
