// Package minio provides object storage for uploaded script documents.
package minio

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
)

// Client wraps a MinIO connection bound to the script document bucket.
type Client struct {
	api    *minio.Client
	bucket string
	logger logging.Logger
}

// NewClient connects to MinIO, verifies reachability and ensures the script
// bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := api.BucketExists(probeCtx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}
	if !exists {
		if err := api.MakeBucket(probeCtx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create script bucket")
		}
	}

	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL),
	)

	return &Client{
		api:    api,
		bucket: cfg.Bucket,
		logger: log,
	}, nil
}

// Bucket returns the script document bucket name.
func (c *Client) Bucket() string { return c.bucket }

// HealthCheck verifies the bucket is still reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "minio health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageError, "script bucket is missing")
	}
	return nil
}
