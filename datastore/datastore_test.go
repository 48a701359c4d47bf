package datastore

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "s3://bucket/bigmac/name=a/f.parquet", Join("s3://bucket/bigmac/", "name=a", "f.parquet"))
	assert.Equal(t, "/tmp/out/x", Join("/tmp/out", "", "x"))
	assert.Equal(t, "s3://bucket/bigmac/", DirPath("s3://bucket/bigmac"))
	assert.Equal(t, "s3://bucket/bigmac/", DirPath("s3://bucket/bigmac//"))
}

func TestDiskDataStore(t *testing.T) {
	ctx := context.Background()
	dds := NewDiskDataStore()
	dir := filepath.Join(t.TempDir(), "a", "b")

	exists, err := dds.Exists(ctx, dir)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, dds.Mkdir(ctx, dir))
	require.NoError(t, dds.Mkdir(ctx, dir))
	exists, err = dds.Exists(ctx, dir)
	require.NoError(t, err)
	assert.True(t, exists)

	w, err := dds.Create(ctx, filepath.Join(dir, "f.bin"))
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := dds.Open(ctx, filepath.Join(dir, "f.bin"))
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

type fakeUploader struct {
	uploads map[string][]byte
}

func (f *fakeUploader) Upload(input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), input, opts...)
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, input *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	b, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.uploads[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)] = b
	return &s3manager.UploadOutput{}, nil
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	b := f.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)]
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3DataStore(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{uploads: map[string][]byte{}}
	client := &fakeS3{objects: map[string][]byte{"bucket/athena/q.csv": []byte("a\n1\n")}}
	sds := NewS3DataStore(client, up)

	assert.False(t, sds.IsFileStore())
	assert.NoError(t, sds.Mkdir(ctx, "s3://bucket/x/"))
	assert.Error(t, sds.Mkdir(ctx, "/local/x"))

	w, err := sds.Create(ctx, "s3://bucket/bigmac/name=a/f.parquet")
	require.NoError(t, err)
	_, err = w.Write([]byte("PAR1"))
	require.NoError(t, err)
	assert.Empty(t, up.uploads)
	require.NoError(t, w.Close())
	assert.Equal(t, []byte("PAR1"), up.uploads["bucket/bigmac/name=a/f.parquet"])

	r, err := sds.Open(ctx, "s3://bucket/athena/q.csv")
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(b))
}
