// Package glueexport writes in-memory tables as partitioned parquet datasets and keeps a Glue
// catalog table in sync with what was written, so the data can be queried through Athena.
package glueexport

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/danthegoodman1/glueexport/athena_query"
	"github.com/danthegoodman1/glueexport/aws_session"
	"github.com/danthegoodman1/glueexport/datastore"
	"github.com/danthegoodman1/glueexport/glue_catalog"
	"github.com/danthegoodman1/glueexport/metastore"
	"github.com/go-playground/validator/v10"
)

var (
	ErrNoMetaStore = errors.New("no metastore configured")
)

type (
	// Clients are the collaborators one invocation talks to, built from its connection params
	Clients struct {
		Store   datastore.DataStore
		Catalog glue_catalog.GlueAPI
		Query   athena_query.AthenaAPI
	}

	ClientFactory func(ctx context.Context, params aws_session.ConnectionParams) (*Clients, error)

	Exporter struct {
		newClients ClientFactory
		meta       metastore.MetaStore
		poll       athena_query.PollConfig
		batchSize  int
		validate   *validator.Validate
	}

	Option func(*Exporter)
)

func WithClientFactory(f ClientFactory) Option {
	return func(e *Exporter) {
		e.newClients = f
	}
}

// WithMetaStore records every export in ms, enabling Reconcile
func WithMetaStore(ms metastore.MetaStore) Option {
	return func(e *Exporter) {
		e.meta = ms
	}
}

func WithPollConfig(pc athena_query.PollConfig) Option {
	return func(e *Exporter) {
		e.poll = pc
	}
}

// WithBatchSize lowers the partition registration batch size, it never exceeds glue_catalog.MaxPartitionsPerBatch
func WithBatchSize(n int) Option {
	return func(e *Exporter) {
		e.batchSize = n
	}
}

func New(opts ...Option) *Exporter {
	e := &Exporter{
		newClients: AWSClients,
		poll:       athena_query.DefaultPollConfig(),
		batchSize:  glue_catalog.MaxPartitionsPerBatch,
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AWSClients resolves the credentials once and builds S3, Glue and Athena clients on one session
func AWSClients(_ context.Context, params aws_session.ConnectionParams) (*Clients, error) {
	sess, err := aws_session.NewSession(params)
	if err != nil {
		return nil, err
	}
	s3Client := s3.New(sess, aws_session.S3Config(params))
	return &Clients{
		Store:   datastore.NewS3DataStore(s3Client, s3manager.NewUploaderWithClient(s3Client)),
		Catalog: glue.New(sess),
		Query:   athena.New(sess),
	}, nil
}

func (e *Exporter) synchronizer(catalog glue_catalog.GlueAPI, hook glue_catalog.BatchHook) *glue_catalog.Synchronizer {
	opts := []glue_catalog.Option{glue_catalog.WithBatchSize(e.batchSize)}
	if hook != nil {
		opts = append(opts, glue_catalog.WithBatchHook(hook))
	}
	return glue_catalog.NewSynchronizer(catalog, opts...)
}
