package metastore

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/danthegoodman1/glueexport/crdb"
	"github.com/danthegoodman1/glueexport/part"
	"github.com/danthegoodman1/glueexport/table"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

type (
	CRDBMetaStore struct {
		pool    *pgxpool.Pool
		timeout time.Duration
	}
)

func NewCRDBMetaStore(pool *pgxpool.Pool) *CRDBMetaStore {
	return &CRDBMetaStore{
		pool:    pool,
		timeout: crdb.StandardContextTimeout,
	}
}

func (cms *CRDBMetaStore) CreateExport(ctx context.Context, export Export) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("exportID", export.ID).Msg("creating export")

	var cols pgtype.JSONB
	if err := cols.Set(export.Definition.Columns); err != nil {
		return fmt.Errorf("error in JSONB.Set: %w", err)
	}
	status := export.Status
	if status == "" {
		status = StatusRunning
	}

	err := crdb.ReliableExec(ctx, cms.pool, cms.timeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO exports (id, database_name, table_name, location, partition_keys, columns, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, export.ID, export.Definition.Database, export.Definition.Name, export.Definition.Location,
			nonNil(export.Definition.PartitionKeys), cols, string(status))
		return err
	})
	if crdb.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrExportExists, export.ID)
	}
	if err != nil {
		return fmt.Errorf("error inserting export: %w", err)
	}
	return nil
}

func (cms *CRDBMetaStore) RecordFiles(ctx context.Context, exportID string, files []part.WrittenFile) error {
	if len(files) == 0 {
		return nil
	}
	err := crdb.ReliableExec(ctx, cms.pool, cms.timeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
			batch := &pgx.Batch{}
			for _, f := range files {
				batch.Queue(`
					INSERT INTO export_files (export_id, path, partition_location, num_rows, num_bytes)
					VALUES ($1, $2, $3, $4, $5)
					ON CONFLICT (export_id, path) DO NOTHING
				`, exportID, f.Path, f.PartitionLocation, f.Rows, f.Bytes)
			}
			return sendBatch(ctx, tx, batch)
		})
	})
	if err != nil {
		return fmt.Errorf("error recording files: %w", err)
	}
	return nil
}

func (cms *CRDBMetaStore) RecordPartitions(ctx context.Context, exportID string, partitions []part.WrittenPartition) error {
	if len(partitions) == 0 {
		return nil
	}
	err := crdb.ReliableExec(ctx, cms.pool, cms.timeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
			batch := &pgx.Batch{}
			for _, p := range partitions {
				batch.Queue(`
					INSERT INTO export_partitions (export_id, location, vals)
					VALUES ($1, $2, $3)
					ON CONFLICT (export_id, location) DO NOTHING
				`, exportID, p.Location, p.Values)
			}
			return sendBatch(ctx, tx, batch)
		})
	})
	if err != nil {
		return fmt.Errorf("error recording partitions: %w", err)
	}
	return nil
}

func (cms *CRDBMetaStore) MarkRegistered(ctx context.Context, exportID string, partitions []part.WrittenPartition) error {
	if len(partitions) == 0 {
		return nil
	}
	locations := make([]string, len(partitions))
	for i, p := range partitions {
		locations[i] = p.Location
	}
	err := crdb.ReliableExec(ctx, cms.pool, cms.timeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE export_partitions
			SET registered = true, updated_at = now()
			WHERE export_id = $1 AND location = ANY($2)
		`, exportID, locations)
		return err
	})
	if err != nil {
		return fmt.Errorf("error marking partitions registered: %w", err)
	}
	return nil
}

func (cms *CRDBMetaStore) FinishExport(ctx context.Context, exportID string, status ExportStatus, errMsg string) error {
	var errText pgtype.Text
	if err := errText.Set(errMsg); err != nil {
		return fmt.Errorf("error in Text.Set: %w", err)
	}
	if errMsg == "" {
		errText.Status = pgtype.Null
	}
	err := crdb.ReliableExec(ctx, cms.pool, cms.timeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE exports SET status = $2, error = $3, updated_at = now() WHERE id = $1
		`, exportID, string(status), errText)
		return err
	})
	if err != nil {
		return fmt.Errorf("error finishing export: %w", err)
	}
	return nil
}

func (cms *CRDBMetaStore) ListPending(ctx context.Context, database, tableName string) ([]PendingExport, error) {
	var pending []PendingExport
	err := crdb.ReliableExec(ctx, cms.pool, cms.timeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		pending = nil
		rows, err := conn.Query(ctx, `
			SELECT e.id, e.location, e.partition_keys, e.columns, e.status, e.created_at, p.location, p.vals
			FROM exports e
			JOIN export_partitions p ON p.export_id = e.id
			WHERE e.database_name = $1 AND e.table_name = $2 AND p.registered = false
			ORDER BY e.created_at, e.id, p.created_at, p.location
		`, database, tableName)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				exp          Export
				status       string
				cols         pgtype.JSONB
				partKeys     []string
				location     string
				partitionLoc string
				vals         []string
			)
			if err := rows.Scan(&exp.ID, &location, &partKeys, &cols, &status, &exp.CreatedAt, &partitionLoc, &vals); err != nil {
				return fmt.Errorf("error scanning pending partition: %w", err)
			}
			if n := len(pending); n == 0 || pending[n-1].ID != exp.ID {
				var columns []table.Column
				if err := cols.AssignTo(&columns); err != nil {
					return fmt.Errorf("error in JSONB.AssignTo: %w", err)
				}
				exp.Status = ExportStatus(status)
				exp.Definition = table.Definition{
					Database:      database,
					Name:          tableName,
					Location:      location,
					Columns:       columns,
					PartitionKeys: partKeys,
				}
				pending = append(pending, PendingExport{Export: exp})
			}
			last := &pending[len(pending)-1]
			last.Partitions = append(last.Partitions, part.WrittenPartition{Location: partitionLoc, Values: vals})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("error listing pending partitions: %w", err)
	}
	return pending, nil
}

func (cms *CRDBMetaStore) Shutdown(_ context.Context) error {
	cms.pool.Close()
	return nil
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
