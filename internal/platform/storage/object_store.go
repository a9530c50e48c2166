// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage provides access to the S3-compatible object store holding
uploaded manuscripts and the images extracted from them.

Objects are addressed by key only; callers decide the key layout
(e.g. "imports/<importId>/source.docx").
*/
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectTooLarge is returned by [MinioStore.Get] when an object exceeds the read ceiling.
var ErrObjectTooLarge = errors.New("storage: object exceeds read limit")

// bucketCheckTimeout bounds the startup bucket probe.
const bucketCheckTimeout = 5 * time.Second

// ObjectStore provides access to object storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string, maxBytes int64) ([]byte, error)
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

// Options configures a [MinioStore].
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStore implements ObjectStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(ctx context.Context, opts Options, logger *slog.Logger) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
		logger.Info("storage_bucket_created", slog.String("bucket", opts.Bucket))
	}

	logger.Info("object store connected",
		slog.String("endpoint", opts.Endpoint),
		slog.String("bucket", opts.Bucket),
	)

	return &MinioStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: client.EndpointURL().String(),
	}, nil
}

// Put uploads an object.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("storage: put object %s: %w", key, err)
	}
	return nil
}

// Get downloads an object fully into memory, refusing objects larger than maxBytes.
func (m *MinioStore) Get(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: get object %s: %w", key, err)
	}
	defer object.Close()

	var buffer bytes.Buffer
	read, err := io.Copy(&buffer, io.LimitReader(object, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read object %s: %w", key, err)
	}
	if read > maxBytes {
		return nil, ErrObjectTooLarge
	}

	return buffer.Bytes(), nil
}

// PublicURL returns the path-style URL of an object.
func (m *MinioStore) PublicURL(key string) string {
	return PathStyleURL(m.baseURL, m.bucket, key)
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: delete object %s: %w", key, err)
	}
	return nil
}

// Ping verifies that the bucket is reachable.
func (m *MinioStore) Ping(ctx context.Context) error {
	if _, err := m.client.BucketExists(ctx, m.bucket); err != nil {
		return fmt.Errorf("storage: ping failed: %w", err)
	}
	return nil
}

// PathStyleURL joins a base URL, bucket and key, escaping each key segment.
func PathStyleURL(baseURL, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(baseURL, "/") + "/" + bucket + "/" + strings.Join(segments, "/")
}
