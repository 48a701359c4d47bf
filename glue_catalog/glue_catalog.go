package glue_catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/danthegoodman1/glueexport/part"
	"github.com/danthegoodman1/glueexport/table"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/rs/zerolog"
)

// MaxPartitionsPerBatch is the most partitions sent in one BatchCreatePartition call
const MaxPartitionsPerBatch = 100

type (
	// GlueAPI is the part of glueiface.GlueAPI the synchronizer calls
	GlueAPI interface {
		GetTableWithContext(ctx aws.Context, input *glue.GetTableInput, opts ...request.Option) (*glue.GetTableOutput, error)
		CreateTableWithContext(ctx aws.Context, input *glue.CreateTableInput, opts ...request.Option) (*glue.CreateTableOutput, error)
		BatchCreatePartitionWithContext(ctx aws.Context, input *glue.BatchCreatePartitionInput, opts ...request.Option) (*glue.BatchCreatePartitionOutput, error)
	}

	// BatchHook runs after each batch registers, in registration order
	BatchHook func(ctx context.Context, batch []part.WrittenPartition) error

	Synchronizer struct {
		client    GlueAPI
		batchSize int
		onBatch   BatchHook
	}

	Option func(*Synchronizer)
)

func WithBatchSize(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 && n <= MaxPartitionsPerBatch {
			s.batchSize = n
		}
	}
}

func WithBatchHook(h BatchHook) Option {
	return func(s *Synchronizer) {
		s.onBatch = h
	}
}

func NewSynchronizer(client GlueAPI, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		client:    client,
		batchSize: MaxPartitionsPerBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync creates the table when it does not exist yet, then registers every partition.
// Nothing is rolled back: batches registered before a failure stay registered.
func (s *Synchronizer) Sync(ctx context.Context, def table.Definition, partitions []part.WrittenPartition) error {
	logger := zerolog.Ctx(ctx)

	exists, err := s.TableExists(ctx, def.Database, def.Name)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug().Str("database", def.Database).Str("table", def.Name).Msg("table exists, skipping create")
	} else {
		if err := s.CreateTable(ctx, def); err != nil {
			return err
		}
	}

	if len(partitions) == 0 {
		return nil
	}
	return s.RegisterPartitions(ctx, def.Database, def.Name, partitions)
}

func (s *Synchronizer) TableExists(ctx context.Context, database, tableName string) (bool, error) {
	_, err := s.client.GetTableWithContext(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(tableName),
	})
	if err == nil {
		return true, nil
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == glue.ErrCodeEntityNotFoundException {
		return false, nil
	}
	return false, &utils.CatalogAccessError{Op: "GetTable", Database: database, Table: tableName, Err: err}
}

func (s *Synchronizer) CreateTable(ctx context.Context, def table.Definition) error {
	logger := zerolog.Ctx(ctx)
	st := time.Now()
	_, err := s.client.CreateTableWithContext(ctx, CreateTableInput(def))
	if err != nil {
		return &utils.CatalogAccessError{Op: "CreateTable", Database: def.Database, Table: def.Name, Err: err}
	}
	logger.Info().Str("database", def.Database).Str("table", def.Name).Str("location", def.Location).Int("columns", len(def.Columns)).Strs("partitionKeys", def.PartitionKeys).Str("durationHuman", time.Since(st).String()).Msg("created catalog table")
	return nil
}

// RegisterPartitions registers partitions in consecutive batches, one call per batch.
// Entries the catalog already knows are tolerated, any other per-entry error fails the batch.
func (s *Synchronizer) RegisterPartitions(ctx context.Context, database, tableName string, partitions []part.WrittenPartition) error {
	logger := zerolog.Ctx(ctx)
	batches := part.Batches(partitions, s.batchSize)
	for i, batch := range batches {
		out, err := s.client.BatchCreatePartitionWithContext(ctx, &glue.BatchCreatePartitionInput{
			DatabaseName:       aws.String(database),
			TableName:          aws.String(tableName),
			PartitionInputList: PartitionInputs(batch),
		})
		if err != nil {
			return &utils.CatalogAccessError{Op: "BatchCreatePartition", Database: database, Table: tableName, Err: err}
		}
		if err := checkPartitionErrors(ctx, out.Errors); err != nil {
			return &utils.CatalogAccessError{Op: "BatchCreatePartition", Database: database, Table: tableName, Err: err}
		}
		logger.Debug().Int("batch", i+1).Int("batches", len(batches)).Int("partitions", len(batch)).Msg("registered partition batch")

		if s.onBatch != nil {
			if err := s.onBatch(ctx, batch); err != nil {
				return fmt.Errorf("error in batch hook: %w", err)
			}
		}
	}
	return nil
}

func checkPartitionErrors(ctx context.Context, errs []*glue.PartitionError) error {
	logger := zerolog.Ctx(ctx)
	var failed []string
	for _, pe := range errs {
		if pe == nil || pe.ErrorDetail == nil {
			continue
		}
		values := strings.Join(aws.StringValueSlice(pe.PartitionValues), "/")
		code := aws.StringValue(pe.ErrorDetail.ErrorCode)
		if code == glue.ErrCodeAlreadyExistsException {
			logger.Debug().Str("values", values).Msg("partition already registered")
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s %s", values, code, aws.StringValue(pe.ErrorDetail.ErrorMessage)))
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d partitions failed to register: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// CreateTableInput describes an external, uncompressed parquet table partitioned by string keys
func CreateTableInput(def table.Definition) *glue.CreateTableInput {
	partitionKeys := make([]*glue.Column, 0, len(def.PartitionKeys))
	for _, key := range def.PartitionKeys {
		partitionKeys = append(partitionKeys, &glue.Column{
			Name: aws.String(key),
			Type: aws.String(table.PartitionKeyType),
		})
	}
	columns := make([]*glue.Column, 0, len(def.Columns))
	for _, col := range def.Columns {
		columns = append(columns, &glue.Column{
			Name: aws.String(col.Name),
			Type: aws.String(col.Type),
		})
	}

	return &glue.CreateTableInput{
		DatabaseName: aws.String(def.Database),
		TableInput: &glue.TableInput{
			Name:          aws.String(def.Name),
			PartitionKeys: partitionKeys,
			TableType:     aws.String(table.TableTypeExternal),
			Parameters:    aws.StringMap(table.Parameters()),
			StorageDescriptor: &glue.StorageDescriptor{
				Columns:         columns,
				Location:        aws.String(def.Location),
				InputFormat:     aws.String(table.ParquetInputFormat),
				OutputFormat:    aws.String(table.ParquetOutputFormat),
				Compressed:      aws.Bool(false),
				NumberOfBuckets: aws.Int64(-1),
				SerdeInfo: &glue.SerDeInfo{
					SerializationLibrary: aws.String(table.ParquetSerDe),
					Parameters:           aws.StringMap(map[string]string{"serialization.format": "1"}),
				},
				StoredAsSubDirectories: aws.Bool(false),
				SortColumns:            []*glue.Order{},
				Parameters:             aws.StringMap(table.StorageParameters()),
			},
		},
	}
}

// PartitionInputs builds one partition entry per written partition, values in key order
func PartitionInputs(partitions []part.WrittenPartition) []*glue.PartitionInput {
	inputs := make([]*glue.PartitionInput, 0, len(partitions))
	for _, p := range partitions {
		inputs = append(inputs, &glue.PartitionInput{
			StorageDescriptor: &glue.StorageDescriptor{
				InputFormat:  aws.String(table.ParquetInputFormat),
				OutputFormat: aws.String(table.ParquetOutputFormat),
				Location:     aws.String(p.Location),
				SerdeInfo: &glue.SerDeInfo{
					SerializationLibrary: aws.String(table.ParquetSerDe),
					Parameters:           aws.StringMap(map[string]string{"serialization.format": "1"}),
				},
				StoredAsSubDirectories: aws.Bool(false),
			},
			Values: aws.StringSlice(p.Values),
		})
	}
	return inputs
}
