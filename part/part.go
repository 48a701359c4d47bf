package part

type (
	// WrittenPartition is the unit registered with the catalog
	WrittenPartition struct {
		// Location is the storage path of the partition directory, with a trailing slash
		Location string
		// Values are the raw partition key values, in partition key declaration order
		Values []string
	}

	WrittenFile struct {
		Path string
		// PartitionLocation is empty for unpartitioned writes
		PartitionLocation string
		Rows              int64
		Bytes             int64
	}
)

// Batches splits partitions into consecutive pages of at most size entries, preserving order
func Batches(parts []WrittenPartition, size int) [][]WrittenPartition {
	if size <= 0 || len(parts) == 0 {
		return nil
	}
	batches := make([][]WrittenPartition, 0, (len(parts)+size-1)/size)
	for start := 0; start < len(parts); start += size {
		end := start + size
		if end > len(parts) {
			end = len(parts)
		}
		batches = append(batches, parts[start:end])
	}
	return batches
}
