package glueexport

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/glueexport/aws_session"
	"github.com/danthegoodman1/glueexport/gologger"
	"github.com/danthegoodman1/glueexport/metastore"
	"github.com/danthegoodman1/glueexport/part"
	"github.com/rs/zerolog"
)

// Reconcile registers the partitions earlier exports wrote but never got into the catalog,
// creating the table first when it is missing. It returns how many partitions it registered.
func (e *Exporter) Reconcile(ctx context.Context, conn aws_session.ConnectionParams, database, tableName string) (int, error) {
	if e.meta == nil {
		return 0, ErrNoMetaStore
	}

	pending, err := e.meta.ListPending(ctx, database, tableName)
	if err != nil {
		return 0, fmt.Errorf("error in ListPending: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	clients, err := e.newClients(ctx, conn)
	if err != nil {
		return 0, fmt.Errorf("error creating clients: %w", err)
	}

	registered := 0
	for _, exp := range pending {
		ctx := gologger.WithExportID(ctx, exp.ID)
		exportID := exp.ID
		sync := e.synchronizer(clients.Catalog, func(ctx context.Context, batch []part.WrittenPartition) error {
			if err := e.meta.MarkRegistered(ctx, exportID, batch); err != nil {
				return err
			}
			registered += len(batch)
			return nil
		})
		if err := sync.Sync(ctx, exp.Definition, exp.Partitions); err != nil {
			return registered, err
		}
		if err := e.meta.FinishExport(ctx, exp.ID, metastore.StatusSucceeded, ""); err != nil {
			return registered, fmt.Errorf("error in FinishExport: %w", err)
		}
		zerolog.Ctx(ctx).Info().Int("partitions", len(exp.Partitions)).Msg("reconciled export")
	}
	return registered, nil
}
