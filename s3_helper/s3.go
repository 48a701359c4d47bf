package s3_helper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/danthegoodman1/glueexport/gologger"
	"github.com/rs/zerolog"
)

var (
	logger = gologger.NewLogger()

	ErrNotS3URI = errors.New("not an s3:// uri")
)

// ParseURI splits s3://bucket/key into bucket and key
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := cutPrefix(uri, "s3://")
	if !ok {
		rest, ok = cutPrefix(uri, "s3a://")
	}
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrNotS3URI, uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: missing bucket in %s", ErrNotS3URI, uri)
	}
	return bucket, key, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func WriteBytesToS3(ctx context.Context, uploader s3manageriface.UploaderAPI, uri string, byteStream io.Reader, contentType *string) (*s3manager.UploadOutput, error) {
	ctx = logger.WithContext(ctx)
	logger := zerolog.Ctx(ctx)

	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	input := &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        byteStream,
		ContentType: contentType,
	}

	s := time.Now()
	output, err := uploader.UploadWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("error uploading to s3: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("uri", uri).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded file to s3")

	return output, nil
}

func ReadBytesFromS3(ctx context.Context, client s3iface.S3API, uri string) ([]byte, error) {
	ctx = logger.WithContext(ctx)
	logger := zerolog.Ctx(ctx)

	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	s := time.Now()
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading from s3: %w", err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("error reading s3 object body: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("uri", uri).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("downloaded file from s3")

	return buf.Bytes(), nil
}

// ObjectExists reports whether an object exists at the uri, or any object under it when the
// uri is a prefix ending in a slash
func ObjectExists(ctx context.Context, client s3iface.S3API, uri string) (bool, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return false, err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		out, err := client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(key),
			MaxKeys: aws.Int64(1),
		})
		if err != nil {
			return false, fmt.Errorf("error listing s3 prefix: %w", err)
		}
		return aws.Int64Value(out.KeyCount) > 0, nil
	}
	_, err = client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error in HeadObject: %w", err)
	}
	return true, nil
}
