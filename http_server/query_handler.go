package http_server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danthegoodman1/glueexport"
	"github.com/danthegoodman1/glueexport/utils"
)

type (
	QueryReqBody struct {
		Query          string `validate:"required"`
		Database       string `validate:"required"`
		OutputLocation string `validate:"required"`
		Connection     ConnectionDef
	}

	QueryResult struct {
		Columns []ColumnDef
		Rows    []map[string]any
	}

	ReconcileReqBody struct {
		Database   string `validate:"required"`
		Table      string `validate:"required"`
		Connection ConnectionDef
	}

	ReconcileStats struct {
		PartitionsRegistered int
		TimeMS               int64
	}
)

func (s *HTTPServer) QueryHandler(c *CustomContext) error {
	// polling is bounded by its own max wait
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Duration(utils.QUERY_MAX_WAIT_SEC+30)*time.Second)
	defer cancel()

	var reqBody QueryReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	frame, err := s.exporter.Read(ctx, glueexport.ReadInput{
		Query:          reqBody.Query,
		Database:       reqBody.Database,
		OutputLocation: reqBody.OutputLocation,
		Connection:     connectionParams(reqBody.Connection),
	})
	if err != nil {
		return c.ExportError(err, "error running query")
	}

	res := QueryResult{Rows: make([]map[string]any, 0, frame.NumRows())}
	for _, col := range frame.Schema() {
		res.Columns = append(res.Columns, ColumnDef{Name: col.Name, Type: string(col.Type)})
	}
	for i := 0; i < frame.NumRows(); i++ {
		res.Rows = append(res.Rows, frame.Row(i))
	}
	return c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) ReconcileHandler(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Minute*5)
	defer cancel()

	start := time.Now()

	var reqBody ReconcileReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	n, err := s.exporter.Reconcile(ctx, connectionParams(reqBody.Connection), reqBody.Database, reqBody.Table)
	if errors.Is(err, glueexport.ErrNoMetaStore) {
		return c.String(http.StatusNotImplemented, err.Error())
	}
	if err != nil {
		return c.ExportError(err, "error reconciling partitions")
	}

	return c.JSON(http.StatusOK, ReconcileStats{
		PartitionsRegistered: n,
		TimeMS:               time.Since(start).Milliseconds(),
	})
}
