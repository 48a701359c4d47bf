package glueexport

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/glueexport/athena_query"
	"github.com/danthegoodman1/glueexport/aws_session"
	"github.com/danthegoodman1/glueexport/dataset"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/rs/zerolog"
)

type ReadInput struct {
	Query    string `validate:"required"`
	Database string `validate:"required"`
	// OutputLocation is where the query service writes its result files
	OutputLocation string `validate:"required"`
	Connection     aws_session.ConnectionParams
}

// Read runs the query, waits for it with bounded backoff and loads the delimited result
func (e *Exporter) Read(ctx context.Context, in ReadInput) (*dataset.Frame, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, utils.NewValidationError("%s", err)
	}
	logger := zerolog.Ctx(ctx)

	clients, err := e.newClients(ctx, in.Connection)
	if err != nil {
		return nil, fmt.Errorf("error creating clients: %w", err)
	}

	qc := athena_query.NewClient(clients.Query, e.poll)
	executionID, err := qc.Submit(ctx, in.Query, in.Database, in.OutputLocation)
	if err != nil {
		return nil, err
	}
	if err := qc.WaitForCompletion(ctx, executionID); err != nil {
		return nil, err
	}

	location := athena_query.ResultLocation(in.OutputLocation, executionID)
	r, err := clients.Store.Open(ctx, location)
	if err != nil {
		return nil, &utils.StorageError{Op: "open", Path: location, Err: err}
	}
	defer r.Close()

	frame, err := dataset.ReadCSV(r)
	if err != nil {
		return nil, &utils.StorageError{Op: "read", Path: location, Err: err}
	}
	logger.Debug().Str("executionID", executionID).Int("rows", frame.NumRows()).Int("columns", frame.NumColumns()).Msg("read query result")
	return frame, nil
}
