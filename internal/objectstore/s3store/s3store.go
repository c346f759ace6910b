// Package s3store implements objectstore.Store against any S3-compatible
// endpoint via github.com/minio/minio-go/v7, the same client storj-storj's
// pkg/miniogw wraps for its own gateway.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/snapctl/snapctl/internal/objectstore"
)

// Store is an S3-compatible objectstore.Store backed by a minio-go client.
type Store struct {
	client *minio.Client
	bucket string
}

// Config carries the connection parameters for an S3-compatible endpoint.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseTLS          bool
}

// New dials endpoint and returns a Store scoped to bucket. It does not
// create the bucket; callers are expected to provision it out of band.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: connect to %s: %w", cfg.Endpoint, err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	info, err := withRetry(ctx, func() (minio.UploadInfo, error) {
		if seeker, ok := r.(io.Seeker); ok {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return minio.UploadInfo{}, backoff.Permanent(fmt.Errorf("rewind before retry: %w", err))
			}
		}
		return s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{})
	})
	if err != nil {
		return "", fmt.Errorf("s3store: put %s: %w", key, err)
	}
	return info.ETag, nil
}

// PutIfMatch is best-effort: minio-go v7 has no portable way to send an
// If-Match precondition header through PutObject, so the check is a
// stat-then-put race window rather than an atomic compare-and-swap. This
// is the documented single-writer limitation of spec.md §9 ("Catalog
// concurrency"), not a bug to fix here.
func (s *Store) PutIfMatch(ctx context.Context, key string, ifMatchETag string, r io.Reader, size int64) (string, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	switch {
	case err == nil:
		if ifMatchETag == "" || info.ETag != ifMatchETag {
			return "", fmt.Errorf("s3store: put %s: %w", key, objectstore.ErrPreconditionFailed)
		}
	case isNotFound(err):
		if ifMatchETag != "" {
			return "", fmt.Errorf("s3store: put %s: %w", key, objectstore.ErrPreconditionFailed)
		}
	default:
		return "", fmt.Errorf("s3store: stat %s before conditional put: %w", key, err)
	}
	return s.Put(ctx, key, r, size)
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := withRetry(ctx, func() (*minio.Object, error) {
		obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		if _, err := obj.Stat(); err != nil {
			obj.Close()
			if isNotFound(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return obj, nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3store: get %s: %w", key, objectstore.ErrNotExist)
		}
		return nil, fmt.Errorf("s3store: get %s: %w", key, err)
	}
	return obj, nil
}

func (s *Store) Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	info, err := withRetry(ctx, func() (minio.ObjectInfo, error) {
		info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
		if err != nil && isNotFound(err) {
			return minio.ObjectInfo{}, backoff.Permanent(err)
		}
		return info, err
	})
	if err != nil {
		if isNotFound(err) {
			return objectstore.ObjectInfo{}, fmt.Errorf("s3store: stat %s: %w", key, objectstore.ErrNotExist)
		}
		return objectstore.ObjectInfo{}, fmt.Errorf("s3store: stat %s: %w", key, err)
	}
	return objectstore.ObjectInfo{Key: key, ETag: info.ETag, Size: info.Size, ModTime: info.LastModified}, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := withRetry(ctx, func() ([]string, error) {
		var keys []string
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				return nil, obj.Err
			}
			keys = append(keys, obj.Key)
		}
		return keys, nil
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: list %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := withRetry(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil {
		return fmt.Errorf("s3store: delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// withRetry retries op against transient object-store errors with
// exponential backoff and jitter (spec.md §5: "retry-with-backoff on
// transient errors (default 3 retries, exponential backoff with jitter)"),
// stopping immediately on context cancellation or an op that marks its
// error as backoff.Permanent (not-found, precondition failures: retrying
// those can't change the outcome).
func withRetry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	var result T
	err := backoff.Retry(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, policy)
	return result, err
}
