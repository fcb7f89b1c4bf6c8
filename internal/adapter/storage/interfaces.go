// Package storage defines the object storage used for forecast exports.
// Local directories and GCS buckets are accessed through the same interface.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines the object operations of a storage backend.
type StorageExecutor interface {
	// Upload writes data to bucket/objectName. An empty bucket uses the configured bucket.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens bucket/objectName. The caller closes the reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes bucket/objectName. Missing objects are not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named storage backend.
type StorageConnection interface {
	StorageExecutor
	Type() string
	Name() string
	Close() error
}

// StorageConnectionResolver resolves a storage connection by name.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}
