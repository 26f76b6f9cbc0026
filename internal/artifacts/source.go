package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source opens an artifact object for reading.
type Source interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads artifacts from S3.
type S3Source struct {
	client S3API
}

// NewS3Source returns a Source backed by client.
func NewS3Source(client S3API) *S3Source {
	return &S3Source{client: client}
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// DirSource reads artifacts from a local directory laid out as <root>/<bucket>/<key>.
type DirSource struct {
	Root string
}

// Open implements Source.
func (d DirSource) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	path := filepath.Join(d.Root, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(d.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact path %s/%s escapes %s", bucket, key, d.Root)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

var (
	_ Source = (*S3Source)(nil)
	_ Source = DirSource{}
)
