package metastore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/danthegoodman1/glueexport/crdb"
	"github.com/danthegoodman1/glueexport/migrations"
	"github.com/danthegoodman1/glueexport/part"
	"github.com/danthegoodman1/glueexport/table"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *CRDBMetaStore {
	t.Helper()
	dsn := os.Getenv("CRDB_DSN")
	if dsn == "" {
		t.Skip("CRDB_DSN not set")
	}
	_, err := migrations.RunMigrations(dsn)
	require.NoError(t, err)
	pool, err := crdb.ConnectToDB(context.Background(), dsn)
	require.NoError(t, err)
	cms := NewCRDBMetaStore(pool)
	t.Cleanup(func() {
		cms.Shutdown(context.Background())
	})
	return cms
}

func TestCRDBMetaStoreLifecycle(t *testing.T) {
	cms := newTestStore(t)
	ctx := context.Background()
	tableName := utils.GenRandomID("t_")

	exp := Export{
		ID: utils.GenRandomID("exp_"),
		Definition: table.Definition{
			Database:      "db",
			Name:          tableName,
			Location:      "s3://bucket/bigmac/",
			Columns:       []table.Column{{Name: "value", Type: "double"}},
			PartitionKeys: []string{"name"},
		},
	}
	require.NoError(t, cms.CreateExport(ctx, exp))
	assert.True(t, errors.Is(cms.CreateExport(ctx, exp), ErrExportExists))

	parts := []part.WrittenPartition{
		{Location: "s3://bucket/bigmac/name=a/", Values: []string{"a"}},
		{Location: "s3://bucket/bigmac/name=b/", Values: []string{"b"}},
	}
	require.NoError(t, cms.RecordFiles(ctx, exp.ID, []part.WrittenFile{
		{Path: "s3://bucket/bigmac/name=a/x.parquet", PartitionLocation: parts[0].Location, Rows: 1, Bytes: 10},
	}))
	require.NoError(t, cms.RecordPartitions(ctx, exp.ID, parts))
	require.NoError(t, cms.MarkRegistered(ctx, exp.ID, parts[:1]))

	pending, err := cms.ListPending(ctx, "db", tableName)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, exp.ID, pending[0].ID)
	assert.Equal(t, exp.Definition, pending[0].Definition)
	assert.Equal(t, parts[1:], pending[0].Partitions)

	require.NoError(t, cms.MarkRegistered(ctx, exp.ID, parts[1:]))
	require.NoError(t, cms.FinishExport(ctx, exp.ID, StatusSucceeded, ""))
	pending, err = cms.ListPending(ctx, "db", tableName)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
