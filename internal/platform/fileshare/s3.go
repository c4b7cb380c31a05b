package fileshare

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Share serves files from an S3-compatible object store (MinIO). Share
// paths map to object keys with forward slashes.
type S3Share struct {
	client *minio.Client
	bucket string
}

func NewS3Share(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*S3Share, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Share{client: client, bucket: bucket}, nil
}

func (s *S3Share) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	key := toSlash(path)

	// GetObject defers errors to the first read; stat first so a missing key
	// is reported as not-found up front.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUnavailable, path, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, path, err)
	}
	return obj, nil
}

func (s *S3Share) List(ctx context.Context, path string) ([]Entry, error) {
	prefix := toSlash(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, path, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		isDir := strings.HasSuffix(name, "/")
		entries = append(entries, Entry{
			Name:  strings.TrimSuffix(name, "/"),
			IsDir: isDir,
			Size:  obj.Size,
		})
	}
	return entries, nil
}
