package http_server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danthegoodman1/glueexport"
	"github.com/danthegoodman1/glueexport/aws_session"
	"github.com/danthegoodman1/glueexport/dataset"
	"github.com/danthegoodman1/glueexport/utils"
)

type (
	ColumnDef struct {
		Name string `validate:"required"`
		// One of the dataset type names, e.g. int64, double, timestamp
		Type string `validate:"required"`
	}

	ConnectionDef struct {
		Region  string
		Profile string
	}

	WriteReqBody struct {
		Database string `validate:"required"`
		Table    string `validate:"required"`
		// Storage root of the table, e.g. s3://bucket/bigmac/
		Path string `validate:"required"`
		// Line-delimited JSON (NDJSON)
		RowsString *string
		// Array of JSON
		Rows []map[string]any
		// Declared column types, columns not listed here are inferred from the rows
		Columns       []ColumnDef `validate:"dive"`
		PartitionCols []string
		// Default true
		PreserveIndex *bool
		Connection    ConnectionDef
	}

	WriteStats struct {
		ExportID      string
		NumRows       int64
		NumFiles      int
		NumPartitions int
		BytesWritten  int64
		TimeMS        int64
	}
)

func (s *HTTPServer) WriteHandler(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*60)
	defer cancel()

	start := time.Now()

	var reqBody WriteReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	records := reqBody.Rows
	if reqBody.RowsString != nil {
		var err error
		records, err = parseNDJSON(*reqBody.RowsString)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
	}
	if len(records) == 0 {
		return c.String(http.StatusBadRequest, "no rows found")
	}

	declared := make(dataset.Schema, 0, len(reqBody.Columns))
	for _, col := range reqBody.Columns {
		t, err := dataset.ParseType(col.Type)
		if err != nil {
			return c.String(http.StatusBadRequest, fmt.Sprintf("column %s: %s", col.Name, err))
		}
		declared = append(declared, dataset.Column{Name: col.Name, Type: t})
	}

	frame, err := dataset.FromRecords(records, declared)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	summary, err := s.exporter.Write(ctx, frame, glueexport.WriteInput{
		Database:      reqBody.Database,
		Table:         reqBody.Table,
		Path:          reqBody.Path,
		PartitionCols: reqBody.PartitionCols,
		PreserveIndex: utils.Deref(reqBody.PreserveIndex, true),
		Connection:    connectionParams(reqBody.Connection),
	})
	if err != nil {
		return c.ExportError(err, "error writing export")
	}

	stats := WriteStats{
		ExportID:      summary.ExportID,
		NumRows:       summary.Rows,
		NumFiles:      len(summary.Files),
		NumPartitions: len(summary.Partitions),
		TimeMS:        time.Since(start).Milliseconds(),
	}
	for _, f := range summary.Files {
		stats.BytesWritten += f.Bytes
	}

	return c.JSON(http.StatusAccepted, stats)
}

func parseNDJSON(rows string) ([]map[string]any, error) {
	var records []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(rows))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record map[string]any
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&record); err != nil {
			return nil, fmt.Errorf("line %d was not a JSON object: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning rows: %w", err)
	}
	return records, nil
}

// connectionParams resolves credentials once per request, the profile wins over the process keys
func connectionParams(def ConnectionDef) aws_session.ConnectionParams {
	params := aws_session.ParamsFromEnv()
	if def.Region != "" {
		params.Region = def.Region
	}
	if def.Profile != "" {
		params.Credentials = aws_session.NamedProfile{Name: def.Profile}
	}
	return params
}
