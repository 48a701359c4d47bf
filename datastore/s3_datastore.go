package datastore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/danthegoodman1/glueexport/s3_helper"
	"github.com/rs/zerolog"
)

type (
	// S3DataStore writes to s3:// uris. Objects are buffered in memory and uploaded on Close.
	S3DataStore struct {
		client   s3iface.S3API
		uploader s3manageriface.UploaderAPI
	}

	s3Object struct {
		ctx    context.Context
		store  *S3DataStore
		uri    string
		buf    bytes.Buffer
		closed bool
	}
)

func NewS3DataStore(client s3iface.S3API, uploader s3manageriface.UploaderAPI) *S3DataStore {
	return &S3DataStore{
		client:   client,
		uploader: uploader,
	}
}

// IsFileStore is false, S3 has no directories to create
func (sds *S3DataStore) IsFileStore() bool {
	return false
}

func (sds *S3DataStore) Exists(ctx context.Context, path string) (bool, error) {
	return s3_helper.ObjectExists(ctx, sds.client, path)
}

func (sds *S3DataStore) Mkdir(_ context.Context, path string) error {
	if _, _, err := s3_helper.ParseURI(path); err != nil {
		return err
	}
	return nil
}

func (sds *S3DataStore) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if _, _, err := s3_helper.ParseURI(path); err != nil {
		return nil, err
	}
	return &s3Object{ctx: ctx, store: sds, uri: path}, nil
}

func (sds *S3DataStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	b, err := s3_helper.ReadBytesFromS3(ctx, sds.client, path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (o *s3Object) Write(p []byte) (int, error) {
	if o.closed {
		return 0, fmt.Errorf("write to closed object %s", o.uri)
	}
	return o.buf.Write(p)
}

func (o *s3Object) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	logger := zerolog.Ctx(o.ctx)
	size := o.buf.Len()
	_, err := s3_helper.WriteBytesToS3(o.ctx, o.store.uploader, o.uri, &o.buf, aws.String("application/octet-stream"))
	if err != nil {
		return err
	}
	logger.Debug().Str("uri", o.uri).Int("bytes", size).Msg("closed s3 object")
	return nil
}
