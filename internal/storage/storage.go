// Package storage defines the object store gateway used for originals and thumbnails.
// Swap implementations by changing the concrete type injected at startup;
// the MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Storage is the interface for storing and retrieving objects by key.
type Storage interface {
	// Put stores data under key, replacing any existing object. Durable once it returns nil.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the object bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Presign returns a time-bounded bearer URL for reading key. It does not check existence.
	// Caching wrappers may return a URL issued earlier, see CachedPresigner.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}
