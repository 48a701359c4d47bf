package parquet_writer

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danthegoodman1/glueexport/dataset"
	"github.com/danthegoodman1/glueexport/datastore"
	"github.com/danthegoodman1/glueexport/table"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func bigMac() *dataset.Frame {
	return dataset.MustNewFrame(
		dataset.Series{Column: dataset.Column{Name: "name", Type: dataset.String}, Values: []any{"Brazil", "Argentina", "Brazil"}},
		dataset.Series{Column: dataset.Column{Name: "date", Type: dataset.String}, Values: []any{"2016-01-01", "2016-01-01", "2016-01-01"}},
		dataset.Series{Column: dataset.Column{Name: "value", Type: dataset.Double}, Values: []any{4.28, 3.35, nil}},
		dataset.Series{Column: dataset.Column{Name: "count", Type: dataset.Int32}, Values: []any{int32(1), int32(2), int32(3)}},
	)
}

// readBack returns the row count and the lower-cased column names stored in a parquet file
func readBack(t *testing.T, path string) (int64, []string) {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	var names []string
	for _, el := range pr.Footer.Schema[1:] {
		names = append(names, strings.ToLower(el.Name))
	}
	return pr.GetNumRows(), names
}

func listParquet(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, FileExtension) {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestWritePartitioned(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(datastore.NewDiskDataStore())

	res, err := w.Write(context.Background(), bigMac(), root+"/", []string{"name", "date"}, false)
	require.NoError(t, err)

	assert.Equal(t, []table.Column{{Name: "value", Type: "double"}, {Name: "count", Type: "bigint"}}, res.CatalogSchema)
	require.Len(t, res.Partitions, 2)
	assert.Equal(t, root+"/name=Brazil/date=2016-01-01/", res.Partitions[0].Location)
	assert.Equal(t, []string{"Brazil", "2016-01-01"}, res.Partitions[0].Values)
	assert.Equal(t, root+"/name=Argentina/date=2016-01-01/", res.Partitions[1].Location)
	assert.Equal(t, int64(3), res.Rows)

	require.Len(t, res.Files, 2)
	assert.Equal(t, res.Partitions[0].Location, res.Files[0].PartitionLocation)
	assert.True(t, strings.HasPrefix(res.Files[0].Path, res.Partitions[0].Location))
	assert.True(t, strings.HasSuffix(res.Files[0].Path, ".parquet"))

	files := listParquet(t, root)
	assert.Len(t, files, 2)

	rows, names := readBack(t, res.Files[0].Path)
	assert.Equal(t, int64(2), rows)
	assert.Equal(t, []string{"value", "count"}, names)
	st, err := os.Stat(res.Files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, st.Size(), res.Files[0].Bytes)
}

func TestWriteUnpartitioned(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(datastore.NewDiskDataStore())

	res, err := w.Write(context.Background(), bigMac().WithIndex(), root, nil, false)
	require.NoError(t, err)
	assert.Nil(t, res.Partitions)
	require.Len(t, res.Files, 1)
	assert.Len(t, res.CatalogSchema, 4)

	rows, names := readBack(t, res.Files[0].Path)
	assert.Equal(t, int64(3), rows)
	assert.Equal(t, []string{"name", "date", "value", "count"}, names)
}

func TestWriteUniqueFileNames(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(datastore.NewDiskDataStore())

	first, err := w.Write(context.Background(), bigMac(), root, []string{"name"}, false)
	require.NoError(t, err)
	second, err := w.Write(context.Background(), bigMac(), root, []string{"name"}, false)
	require.NoError(t, err)

	assert.Equal(t, first.Partitions, second.Partitions)
	assert.NotEqual(t, first.Files[0].Path, second.Files[0].Path)
	assert.Len(t, listParquet(t, root), 4)
}

func TestWriteValidationBeforeIO(t *testing.T) {
	root := filepath.Join(t.TempDir(), "never")
	w := NewWriter(datastore.NewDiskDataStore())

	_, err := w.Write(context.Background(), bigMac(), root, []string{"name", "date", "value", "count"}, false)
	var verr *utils.ValidationError
	require.True(t, errors.As(err, &verr))

	_, statErr := os.Stat(root)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
}

type racingStore struct {
	*datastore.DiskDataStore
	raced bool
}

// Mkdir creates the directory then reports it already existed, like a concurrent creator winning
func (r *racingStore) Mkdir(ctx context.Context, path string) error {
	if err := r.DiskDataStore.Mkdir(ctx, path); err != nil {
		return err
	}
	r.raced = true
	return fs.ErrExist
}

func TestEnsureDirTreatsExistAsSuccess(t *testing.T) {
	store := &racingStore{DiskDataStore: datastore.NewDiskDataStore()}
	dir := filepath.Join(t.TempDir(), "x")
	require.NoError(t, ensureDir(context.Background(), store, dir))
	assert.True(t, store.raced)
}

type failingStore struct {
	*datastore.DiskDataStore
}

func (f *failingStore) Mkdir(_ context.Context, _ string) error {
	return fs.ErrPermission
}

func TestEnsureDirStorageError(t *testing.T) {
	err := ensureDir(context.Background(), &failingStore{datastore.NewDiskDataStore()}, filepath.Join(t.TempDir(), "x"))
	var serr *utils.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "mkdir", serr.Op)
}

type typedRow struct {
	I8  *int32   `parquet:"name=i8, type=INT32, convertedtype=INT_8, repetitiontype=OPTIONAL"`
	I16 *int32   `parquet:"name=i16, type=INT32, convertedtype=INT_16, repetitiontype=OPTIONAL"`
	I32 *int32   `parquet:"name=i32, type=INT32, repetitiontype=OPTIONAL"`
	I64 *int64   `parquet:"name=i64, type=INT64, repetitiontype=OPTIONAL"`
	F   *float32 `parquet:"name=f, type=FLOAT, repetitiontype=OPTIONAL"`
	D   *float64 `parquet:"name=d, type=DOUBLE, repetitiontype=OPTIONAL"`
	B   *bool    `parquet:"name=b, type=BOOLEAN, repetitiontype=OPTIONAL"`
	S   *string  `parquet:"name=s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Bin *string  `parquet:"name=bin, type=BYTE_ARRAY, repetitiontype=OPTIONAL"`
	Ts  *int64   `parquet:"name=ts, type=INT64, convertedtype=TIMESTAMP_MICROS, repetitiontype=OPTIONAL"`
	Day *int32   `parquet:"name=day, type=INT32, convertedtype=DATE, repetitiontype=OPTIONAL"`
}

func TestWriteRoundTripsValues(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 123456789, time.UTC)
	day := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := dataset.MustNewFrame(
		dataset.Series{Column: dataset.Column{Name: "i8", Type: dataset.Int8}, Values: []any{int8(-128), nil}},
		dataset.Series{Column: dataset.Column{Name: "i16", Type: dataset.Int16}, Values: []any{int16(32767), nil}},
		dataset.Series{Column: dataset.Column{Name: "i32", Type: dataset.Int32}, Values: []any{int32(-7), nil}},
		dataset.Series{Column: dataset.Column{Name: "i64", Type: dataset.Int64}, Values: []any{int64(9007199254740993), nil}},
		dataset.Series{Column: dataset.Column{Name: "f", Type: dataset.Float}, Values: []any{float32(1.5), nil}},
		dataset.Series{Column: dataset.Column{Name: "d", Type: dataset.Double}, Values: []any{4.28, math.NaN()}},
		dataset.Series{Column: dataset.Column{Name: "b", Type: dataset.Bool}, Values: []any{true, nil}},
		dataset.Series{Column: dataset.Column{Name: "s", Type: dataset.String}, Values: []any{"Brazil", nil}},
		dataset.Series{Column: dataset.Column{Name: "bin", Type: dataset.Binary}, Values: []any{[]byte{0xff, 0x00, 0x80}, nil}},
		dataset.Series{Column: dataset.Column{Name: "ts", Type: dataset.Timestamp}, Values: []any{ts, nil}},
		dataset.Series{Column: dataset.Column{Name: "day", Type: dataset.Date}, Values: []any{day, nil}},
	)

	res, err := NewWriter(datastore.NewDiskDataStore()).Write(context.Background(), frame, t.TempDir(), nil, false)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)

	fr, err := local.NewLocalFileReader(res.Files[0].Path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(typedRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]typedRow, pr.GetNumRows())
	require.NoError(t, pr.Read(&rows))
	require.Len(t, rows, 2)

	got := rows[0]
	require.NotNil(t, got.I8)
	assert.Equal(t, int32(-128), *got.I8)
	assert.Equal(t, int32(32767), *got.I16)
	assert.Equal(t, int32(-7), *got.I32)
	assert.Equal(t, int64(9007199254740993), *got.I64)
	assert.Equal(t, float32(1.5), *got.F)
	assert.Equal(t, 4.28, *got.D)
	assert.True(t, *got.B)
	assert.Equal(t, "Brazil", *got.S)
	assert.Equal(t, []byte{0xff, 0x00, 0x80}, []byte(*got.Bin))
	assert.Equal(t, ts.Truncate(time.Microsecond).UnixMicro(), *got.Ts)
	assert.Equal(t, int32(day.Unix()/86400), *got.Day)

	assert.Equal(t, typedRow{}, rows[1])
}

func TestWritePartitionedRowsAddUp(t *testing.T) {
	root := t.TempDir()
	frame := bigMac()
	res, err := NewWriter(datastore.NewDiskDataStore()).Write(context.Background(), frame, root, []string{"name"}, false)
	require.NoError(t, err)

	var total int64
	for _, path := range listParquet(t, root) {
		rows, _ := readBack(t, path)
		total += rows
	}
	assert.EqualValues(t, frame.NumRows(), total)
	assert.EqualValues(t, frame.NumRows(), res.Rows)
}

func TestWriteRejectsUnknownTypeBeforeIO(t *testing.T) {
	root := filepath.Join(t.TempDir(), "never")
	frame := dataset.MustNewFrame(
		dataset.Series{Column: dataset.Column{Name: "a", Type: dataset.Int64}, Values: []any{int64(1)}},
		dataset.Series{Column: dataset.Column{Name: "b", Type: "struct"}, Values: []any{nil}},
	)
	_, err := NewWriter(datastore.NewDiskDataStore()).Write(context.Background(), frame, root, nil, false)
	var verr *utils.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NoDirExists(t, root)
}
