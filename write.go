package glueexport

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/glueexport/aws_session"
	"github.com/danthegoodman1/glueexport/dataset"
	"github.com/danthegoodman1/glueexport/datastore"
	"github.com/danthegoodman1/glueexport/glue_catalog"
	"github.com/danthegoodman1/glueexport/gologger"
	"github.com/danthegoodman1/glueexport/metastore"
	"github.com/danthegoodman1/glueexport/parquet_writer"
	"github.com/danthegoodman1/glueexport/part"
	"github.com/danthegoodman1/glueexport/partitioner"
	"github.com/danthegoodman1/glueexport/table"
	"github.com/danthegoodman1/glueexport/type_mapper"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/rs/zerolog"
)

type WriteInput struct {
	Database string `validate:"required"`
	Table    string `validate:"required"`
	// Path is the storage root of the table
	Path string `validate:"required"`
	// PartitionCols are copied per call, nil writes an unpartitioned table
	PartitionCols []string
	// PreserveIndex writes the synthetic row index column into the files
	PreserveIndex bool
	Connection    aws_session.ConnectionParams
}

// WriteSummary describes what one Write produced
type WriteSummary struct {
	ExportID   string
	Files      []part.WrittenFile
	Partitions []part.WrittenPartition
	Rows       int64
}

// Write exports frame as parquet files under in.Path, creates the catalog table on first write
// and registers every written partition. There is no atomicity across files and catalog: on
// failure whatever was written or registered stays, and with a metastore configured the
// unregistered partitions can be picked up by Reconcile.
func (e *Exporter) Write(ctx context.Context, frame *dataset.Frame, in WriteInput) (*WriteSummary, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, utils.NewValidationError("%s", err)
	}
	partitionCols := append(make([]string, 0, len(in.PartitionCols)), in.PartitionCols...)
	if in.PreserveIndex {
		frame = frame.WithIndex()
	}

	plan, err := partitioner.PlanPartitions(frame, partitionCols, in.PreserveIndex)
	if err != nil {
		return nil, err
	}

	summary := &WriteSummary{ExportID: utils.GenRandomID("exp_")}
	ctx = gologger.WithExportID(ctx, summary.ExportID)
	logger := zerolog.Ctx(ctx)

	def := table.Definition{
		Database:      in.Database,
		Name:          in.Table,
		Location:      datastore.DirPath(in.Path),
		Columns:       type_mapper.BuildCatalogSchema(frame.Schema(), partitionCols),
		PartitionKeys: partitionCols,
	}

	clients, err := e.newClients(ctx, in.Connection)
	if err != nil {
		return nil, fmt.Errorf("error creating clients: %w", err)
	}

	if e.meta != nil {
		err = e.meta.CreateExport(ctx, metastore.Export{ID: summary.ExportID, Definition: def, Status: metastore.StatusRunning})
		if err != nil {
			return nil, fmt.Errorf("error in CreateExport: %w", err)
		}
	}

	err = e.write(ctx, clients, frame, plan, def, summary)
	if e.meta != nil {
		status, msg := metastore.StatusSucceeded, ""
		if err != nil {
			status, msg = metastore.StatusFailed, err.Error()
		}
		if finishErr := e.meta.FinishExport(ctx, summary.ExportID, status, msg); finishErr != nil {
			logger.Error().Err(finishErr).Msg("error finishing export in metastore")
			if err == nil {
				err = fmt.Errorf("error in FinishExport: %w", finishErr)
			}
		}
	}
	if err != nil {
		logger.Error().Err(err).Int("filesWritten", len(summary.Files)).Msg("write failed")
		return summary, err
	}

	logger.Info().Str("database", in.Database).Str("table", in.Table).Int64("rows", summary.Rows).Int("files", len(summary.Files)).Int("partitions", len(summary.Partitions)).Msg("write finished")
	return summary, nil
}

func (e *Exporter) write(ctx context.Context, clients *Clients, frame *dataset.Frame, plan *partitioner.Plan, def table.Definition, summary *WriteSummary) error {
	res, err := parquet_writer.NewWriter(clients.Store).WritePlan(ctx, frame, plan, def.Location)
	if res != nil {
		summary.Files = res.Files
		summary.Partitions = res.Partitions
		summary.Rows = res.Rows
	}
	if e.meta != nil && res != nil {
		if recErr := e.meta.RecordFiles(ctx, summary.ExportID, res.Files); recErr != nil && err == nil {
			err = fmt.Errorf("error in RecordFiles: %w", recErr)
		}
		if recErr := e.meta.RecordPartitions(ctx, summary.ExportID, res.Partitions); recErr != nil && err == nil {
			err = fmt.Errorf("error in RecordPartitions: %w", recErr)
		}
	}
	if err != nil {
		return err
	}

	var hook glue_catalog.BatchHook
	if e.meta != nil {
		hook = func(ctx context.Context, batch []part.WrittenPartition) error {
			return e.meta.MarkRegistered(ctx, summary.ExportID, batch)
		}
	}
	return e.synchronizer(clients.Catalog, hook).Sync(ctx, def, res.Partitions)
}
