package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
)

// ScriptStore reads and writes raw script documents in the configured
// bucket.  It implements the pipeline's ObjectStore port.
type ScriptStore struct {
	client *Client
	logger logging.Logger
}

var _ revision.ObjectStore = (*ScriptStore)(nil)

// NewScriptStore creates an object store over the given client.
func NewScriptStore(client *Client, log logging.Logger) *ScriptStore {
	return &ScriptStore{
		client: client,
		logger: log.Named("script_store"),
	}
}

// Put stores a script document under the given storage key.
func (s *ScriptStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.api.PutObject(ctx, s.client.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		s.logger.Error("Failed to store script document", logging.String("key", key), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to store script document")
	}
	return nil
}

// Get fetches the raw bytes of a script document.
func (s *ScriptStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.api.GetObject(ctx, s.client.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open script document")
	}
	defer obj.Close() //nolint:errcheck

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.New(errors.ErrCodeObjectNotFound, "script document not found").
				WithDetail(fmt.Sprintf("key=%s", key))
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read script document")
	}
	return data, nil
}

// Exists reports whether a script document is present.
func (s *ScriptStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.api.StatObject(ctx, s.client.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat script document")
	}
	return true, nil
}

// Delete removes a script document.
func (s *ScriptStore) Delete(ctx context.Context, key string) error {
	err := s.client.api.RemoveObject(ctx, s.client.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete script document")
	}
	return nil
}
