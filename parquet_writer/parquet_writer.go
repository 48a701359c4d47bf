package parquet_writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/danthegoodman1/glueexport/dataset"
	"github.com/danthegoodman1/glueexport/datastore"
	"github.com/danthegoodman1/glueexport/parquet_schema"
	"github.com/danthegoodman1/glueexport/part"
	"github.com/danthegoodman1/glueexport/partitioner"
	"github.com/danthegoodman1/glueexport/table"
	"github.com/danthegoodman1/glueexport/type_mapper"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/rs/zerolog"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const FileExtension = ".parquet"

type (
	Writer struct {
		store datastore.DataStore
		// Parallel is the number of goroutines marshalling rows inside parquet-go
		Parallel int64
	}

	Result struct {
		CatalogSchema []table.Column
		// Partitions is nil for unpartitioned writes
		Partitions []part.WrittenPartition
		Files      []part.WrittenFile
		Rows       int64
	}

	countingWriter struct {
		w io.Writer
		n int64
	}
)

func NewWriter(store datastore.DataStore) *Writer {
	return &Writer{
		store:    store,
		Parallel: 4,
	}
}

// Write plans the partitions of frame and writes one parquet file per partition group under
// root. Validation happens before any I/O.
func (w *Writer) Write(ctx context.Context, frame *dataset.Frame, root string, partitionCols []string, preserveIndex bool) (*Result, error) {
	plan, err := partitioner.PlanPartitions(frame, partitionCols, preserveIndex)
	if err != nil {
		return nil, err
	}
	return w.WritePlan(ctx, frame, plan, root)
}

// WritePlan writes the groups of an already validated plan. Files written before a failing
// group are left in place and reported in the partial result returned with the error.
func (w *Writer) WritePlan(ctx context.Context, frame *dataset.Frame, plan *partitioner.Plan, root string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	ps := plan.Parquet
	if ps == nil {
		var err error
		if ps, err = parquet_schema.FromSchema(plan.FileSchema); err != nil {
			return nil, utils.NewValidationError("%s", err)
		}
	}

	res := &Result{
		CatalogSchema: type_mapper.BuildCatalogSchema(frame.Schema(), plan.PartitionCols),
	}
	logger.Debug().Int("groups", len(plan.Groups)).Strs("partitionCols", plan.PartitionCols).Int("rows", frame.NumRows()).Msg("writing partition plan")

	if err := ensureDir(ctx, w.store, root); err != nil {
		return res, err
	}

	for _, group := range plan.Groups {
		dir := datastore.Join(root, group.Subdir)
		if plan.Partitioned {
			if err := ensureDir(ctx, w.store, dir); err != nil {
				return res, err
			}
		}

		file, err := w.writeGroup(ctx, frame.Take(group.Rows), ps, dir)
		if err != nil {
			return res, err
		}
		res.Rows += file.Rows

		if plan.Partitioned {
			file.PartitionLocation = datastore.DirPath(dir)
			res.Partitions = append(res.Partitions, part.WrittenPartition{
				Location: file.PartitionLocation,
				Values:   group.Values,
			})
		}
		res.Files = append(res.Files, *file)
	}

	return res, nil
}

func (w *Writer) writeGroup(ctx context.Context, frame *dataset.Frame, ps *parquet_schema.ParquetSchema, dir string) (*part.WrittenFile, error) {
	logger := zerolog.Ctx(ctx)
	s := time.Now()

	fullPath := datastore.Join(dir, utils.GenKSortedID("")+FileExtension)
	f, err := w.store.Create(ctx, fullPath)
	if err != nil {
		return nil, &utils.StorageError{Op: "create", Path: fullPath, Err: err}
	}

	cw := &countingWriter{w: f}
	if err := writeParquet(cw, frame, ps, w.Parallel); err != nil {
		f.Close()
		return nil, &utils.StorageError{Op: "write", Path: fullPath, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &utils.StorageError{Op: "close", Path: fullPath, Err: err}
	}

	d := time.Since(s)
	logger.Debug().Str("path", fullPath).Int("rows", frame.NumRows()).Int64("bytes", cw.n).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("wrote parquet file")

	return &part.WrittenFile{
		Path:  fullPath,
		Rows:  int64(frame.NumRows()),
		Bytes: cw.n,
	}, nil
}

func writeParquet(out io.Writer, frame *dataset.Frame, ps *parquet_schema.ParquetSchema, np int64) error {
	pw, err := writer.NewCSVWriterFromWriter(ps.Metadata(), out, np)
	if err != nil {
		return fmt.Errorf("error in NewCSVWriterFromWriter: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED

	for row := 0; row < frame.NumRows(); row++ {
		values, err := ps.Row(frame, row)
		if err != nil {
			return fmt.Errorf("error in Row: %w", err)
		}
		if err := pw.Write(values); err != nil {
			return fmt.Errorf("error in pw.Write for row %d: %w", row, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	return nil
}

// ensureDir creates the directory on file stores. A concurrent creator winning the race is not
// an error as long as the directory exists afterwards.
func ensureDir(ctx context.Context, store datastore.DataStore, path string) error {
	if !store.IsFileStore() {
		return nil
	}
	exists, err := store.Exists(ctx, path)
	if err != nil {
		return &utils.StorageError{Op: "stat", Path: path, Err: err}
	}
	if exists {
		return nil
	}
	err = store.Mkdir(ctx, path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		if exists, statErr := store.Exists(ctx, path); statErr == nil && exists {
			return nil
		}
	}
	return &utils.StorageError{Op: "mkdir", Path: path, Err: err}
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
