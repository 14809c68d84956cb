// Package core defines the blob storage abstraction run folders are read
// through.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem reads run folders from a local directory tree.
	DriverFilesystem Driver = "fs"
	// DriverS3 reads run folders from an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps objects in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the S3-like surface run folders and archived reports live behind.
// Keys are slash separated and relative to the store root.
type Store interface {
	// Put stores a new object at key and fails if the key already exists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the object contents. Missing keys yield an error matching ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns object metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// List returns objects whose key has the prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is wrapped by every backend when a key does not exist.
var ErrNotFound = errors.New("blob not found")
