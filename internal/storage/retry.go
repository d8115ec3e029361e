package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/simplrflow/service/internal/logger"
)

// RetryStorage retries Put and Delete with exponential backoff. Get and Presign pass through.
type RetryStorage struct {
	next     Storage
	log      *logger.Logger
	attempts uint

	// InitialInterval is the first backoff delay. Tests shrink it.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NewRetryStorage wraps next with at most attempts tries per Put/Delete.
func NewRetryStorage(next Storage, attempts int, log *logger.Logger) *RetryStorage {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryStorage{
		next:            next,
		log:             log.With("service", "RetryStorage"),
		attempts:        uint(attempts),
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (r *RetryStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return r.retry(ctx, "put", key, func() error {
		return r.next.Put(ctx, key, data, contentType)
	})
}

func (r *RetryStorage) Delete(ctx context.Context, key string) error {
	return r.retry(ctx, "delete", key, func() error {
		return r.next.Delete(ctx, key)
	})
}

func (r *RetryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	return r.next.Get(ctx, key)
}

func (r *RetryStorage) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return r.next.Presign(ctx, key, ttl)
}

func (r *RetryStorage) retry(ctx context.Context, op, key string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.MaxInterval = r.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.Warn("storage operation failed, retrying", "op", op, "key", key, "error", err, "backoff", next)
		}),
	)
	return err
}
