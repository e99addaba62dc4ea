// Package blob abstracts where call recordings live. The production
// implementation is S3 (or any S3-compatible store such as MinIO); tests use
// the in-memory store.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by [Store.Get] when no object exists under the
// requested key.
var ErrNotFound = errors.New("blob: not found")

// Store reads and writes call recordings by key.
type Store interface {
	// Get returns a reader for the object stored under key. The caller must
	// close the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put stores the contents of r under key, overwriting any existing
	// object. contentType may be empty.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Delete removes the object stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error
}
