package metastore

import (
	"context"
	"errors"
	"time"

	"github.com/danthegoodman1/glueexport/part"
	"github.com/danthegoodman1/glueexport/table"
)

var (
	ErrExportExists = errors.New("export already exists")
)

type ExportStatus string

const (
	StatusRunning   ExportStatus = "running"
	StatusSucceeded ExportStatus = "succeeded"
	StatusFailed    ExportStatus = "failed"
)

type (
	// MetaStore is the ledger of what each export wrote and what the catalog has registered,
	// so partitions left unregistered by a failure can be reconciled later
	MetaStore interface {
		CreateExport(ctx context.Context, export Export) error
		RecordFiles(ctx context.Context, exportID string, files []part.WrittenFile) error
		// RecordPartitions stores written partitions as pending registration
		RecordPartitions(ctx context.Context, exportID string, partitions []part.WrittenPartition) error
		MarkRegistered(ctx context.Context, exportID string, partitions []part.WrittenPartition) error
		FinishExport(ctx context.Context, exportID string, status ExportStatus, errMsg string) error
		// ListPending returns exports of the table that still have unregistered partitions, oldest first
		ListPending(ctx context.Context, database, tableName string) ([]PendingExport, error)

		Shutdown(ctx context.Context) error
	}

	Export struct {
		ID string
		// Definition is the table the export creates when missing
		Definition table.Definition
		Status     ExportStatus
		CreatedAt  time.Time
	}

	PendingExport struct {
		Export
		Partitions []part.WrittenPartition
	}
)
