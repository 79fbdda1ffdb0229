// Package objectstore stores attachment blobs in an S3 compatible bucket. Clients
// upload and download directly with presigned URLs; the API never proxies bytes.
package objectstore

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"workhub/api/internal/config"
	"workhub/api/internal/util"
)

type Store struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// New builds a client without contacting the endpoint. Region must be set for
// presigning to work offline.
func New(cfg config.S3Config) (*Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("object store is not configured")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{client: client, bucket: cfg.Bucket, ttl: ttl}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("ping object store: %w", err)
	}
	return nil
}

// Upload is a presigned PUT for a new object.
type Upload struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// PresignUpload allocates a new key under the work item and signs a PUT for it.
func (s *Store) PresignUpload(ctx context.Context, workItemID int64, fileName string) (Upload, error) {
	key := util.NewObjectKey(workItemID, fileName)
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return Upload{}, fmt.Errorf("presign upload: %w", err)
	}
	return Upload{Key: key, URL: u.String(), ExpiresAt: time.Now().Add(s.ttl).UTC()}, nil
}

// PresignDownload signs a GET that makes browsers save the object as fileName.
func (s *Store) PresignDownload(ctx context.Context, key, fileName string) (string, error) {
	params := url.Values{}
	if fileName != "" {
		params.Set("response-content-disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u.String(), nil
}

// ObjectURL is the unsigned location of key, stored on the attachment row.
func (s *Store) ObjectURL(key string) string {
	endpoint := s.client.EndpointURL()
	return strings.TrimRight(endpoint.String(), "/") + "/" + s.bucket + "/" + key
}

// Owns reports whether key was allocated for the given work item.
func (s *Store) Owns(workItemID int64, key string) bool {
	return strings.HasPrefix(key, util.ObjectKeyPrefix(workItemID)) && !strings.Contains(key, "..")
}
