// Package storage uploads exports to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// LinkTTL is how long a download link stays valid.
const LinkTTL = 24 * time.Hour

// Options locate the bucket.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Store writes objects to a single bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the endpoint and creates the bucket if it is missing.
func New(ctx context.Context, opts Options) (*Store, error) {
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &Store{client: cli, bucket: opts.Bucket}, nil
}

// Upload stores data under key and returns a presigned download link.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (*url.URL, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	link, err := s.client.PresignedGetObject(ctx, s.bucket, key, LinkTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to sign link for %s: %w", key, err)
	}
	return link, nil
}

// ExportKey places an export file under the owner's prefix.
func ExportKey(owner, filename string) string {
	if owner == "" {
		owner = "anonymous"
	}
	return path.Join("exports", url.PathEscape(owner), filename)
}
