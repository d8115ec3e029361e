package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/storage"
	"github.com/simplrflow/service/internal/storage/storagetest"
)

func TestMemoryStoragePutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage("bucket")

	require.NoError(t, s.Put(ctx, "images/a.jpg", []byte("one"), "image/jpeg"))
	require.NoError(t, s.Put(ctx, "images/a.jpg", []byte("two"), "image/png"))

	got, err := s.Get(ctx, "images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
	ct, ok := s.ContentType("images/a.jpg")
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, 1, s.Len())

	_, err = s.Get(ctx, "images/missing.jpg")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStorageDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage("bucket")
	require.NoError(t, s.Put(ctx, "k", []byte("x"), "text/plain"))

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "never-existed"))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStoragePresignDoesNotRequireObject(t *testing.T) {
	u, err := storage.NewMemoryStorage("bucket").Presign(context.Background(), "images/x.jpg", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "memory://bucket/images/x.jpg?expires="), u)
}

func TestRetryStorageRecoversFromTransientPutFailures(t *testing.T) {
	ctx := context.Background()
	inner := storagetest.NewFaulty()
	inner.FailPutTimes(2)

	r := storage.NewRetryStorage(inner, 3, logger.Nop())
	r.InitialInterval = time.Millisecond
	r.MaxInterval = 2 * time.Millisecond

	require.NoError(t, r.Put(ctx, "images/a.jpg", []byte("x"), "image/jpeg"))
	assert.Equal(t, 3, inner.Puts())
	got, err := r.Get(ctx, "images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestRetryStorageGivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	inner := storagetest.NewFaulty()
	inner.FailPutTimes(10)

	r := storage.NewRetryStorage(inner, 2, logger.Nop())
	r.InitialInterval = time.Millisecond
	r.MaxInterval = 2 * time.Millisecond

	err := r.Put(ctx, "images/a.jpg", []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, storagetest.ErrInjected)
	assert.Equal(t, 2, inner.Puts())
	assert.Zero(t, inner.Len())
}

func TestRetryStorageSingleAttempt(t *testing.T) {
	inner := storagetest.NewFaulty()
	inner.FailDeletes()

	r := storage.NewRetryStorage(inner, 0, logger.Nop())
	err := r.Delete(context.Background(), "k")
	assert.ErrorIs(t, err, storagetest.ErrInjected)
	assert.Len(t, inner.Deletes(), 1)
}

func TestCachedPresignerServesFromCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := storagetest.NewFaulty()
	c := storage.NewCachedPresigner(inner, rdb, logger.Nop())

	first, err := c.Presign(ctx, "images/a.jpg", time.Hour)
	require.NoError(t, err)

	// Once cached, the backend is not consulted.
	inner.FailPresign()
	second, err := c.Presign(ctx, "images/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different TTL is a miss.
	_, err = c.Presign(ctx, "images/a.jpg", time.Minute)
	assert.ErrorIs(t, err, storagetest.ErrInjected)

	// Cached entries live for half the URL lifetime.
	assert.Equal(t, 30*time.Minute, mr.TTL("presign:images/a.jpg"))
	mr.FastForward(31 * time.Minute)
	_, err = c.Presign(ctx, "images/a.jpg", time.Hour)
	assert.ErrorIs(t, err, storagetest.ErrInjected)
}

func TestCachedPresignerHonoursRemainingLifetime(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inner := storagetest.NewFaulty()
	c := storage.NewCachedPresigner(inner, rdb, logger.Nop())
	c.SetClock(func() time.Time { return clock })

	first, err := c.Presign(ctx, "images/a.jpg", time.Hour)
	require.NoError(t, err)
	inner.FailPresign()

	clock = clock.Add(29 * time.Minute)
	second, err := c.Presign(ctx, "images/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// The Redis entry is still present, but less than half the lifetime remains.
	clock = clock.Add(2 * time.Minute)
	require.True(t, mr.Exists("presign:images/a.jpg"))
	_, err = c.Presign(ctx, "images/a.jpg", time.Hour)
	assert.ErrorIs(t, err, storagetest.ErrInjected)
}

func TestCachedPresignerDeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := storagetest.NewFaulty()
	c := storage.NewCachedPresigner(inner, rdb, logger.Nop())
	require.NoError(t, c.Put(ctx, "images/a.jpg", []byte("x"), "image/jpeg"))

	_, err := c.Presign(ctx, "images/a.jpg", time.Hour)
	require.NoError(t, err)
	require.True(t, mr.Exists("presign:images/a.jpg"))

	require.NoError(t, c.Delete(ctx, "images/a.jpg"))
	assert.False(t, mr.Exists("presign:images/a.jpg"))
	assert.Zero(t, inner.Len())
}

func TestCachedPresignerFallsThroughWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	c := storage.NewCachedPresigner(storage.NewMemoryStorage("bucket"), rdb, logger.Nop())
	u, err := c.Presign(context.Background(), "images/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, u)
}
