package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simplrflow/service/internal/logger"
)

const presignCachePrefix = "presign:"

// MinPresignRemaining is the least fraction of the requested ttl a cached URL still has
// when CachedPresigner returns it.
const MinPresignRemaining = 0.5

type cachedURL struct {
	URL       string        `json:"url"`
	TTL       time.Duration `json:"ttl"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// CachedPresigner memoizes presigned URLs in Redis. A hit is served only while the URL has
// at least MinPresignRemaining of the requested ttl left, so callers may get a URL valid
// for less than ttl. A hit does not contact the wrapped Storage. Redis failures fall
// through to it.
type CachedPresigner struct {
	Storage
	rdb *redis.Client
	log *logger.Logger
	now func() time.Time
}

// NewCachedPresigner wraps next with a Redis-backed presign cache.
func NewCachedPresigner(next Storage, rdb *redis.Client, log *logger.Logger) *CachedPresigner {
	return &CachedPresigner{
		Storage: next,
		rdb:     rdb,
		log:     log.With("service", "CachedPresigner"),
		now:     time.Now,
	}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Presign returns a cached URL for key when one is fresh enough, otherwise a new one.
func (c *CachedPresigner) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	cacheKey := presignCachePrefix + key
	minRemaining := time.Duration(float64(ttl) * MinPresignRemaining)

	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var hit cachedURL
		if json.Unmarshal(raw, &hit) == nil && hit.TTL == ttl && hit.URL != "" &&
			hit.ExpiresAt.Sub(c.now()) >= minRemaining {
			return hit.URL, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.Warn("presign cache read failed", "key", key, "error", err)
	}

	issued := c.now()
	u, err := c.Storage.Presign(ctx, key, ttl)
	if err != nil {
		return "", err
	}

	if keep := ttl - minRemaining; keep > 0 {
		val, _ := json.Marshal(cachedURL{URL: u, TTL: ttl, ExpiresAt: issued.Add(ttl)})
		if err := c.rdb.Set(ctx, cacheKey, val, keep).Err(); err != nil {
			c.log.Warn("presign cache write failed", "key", key, "error", err)
		}
	}
	return u, nil
}

// Delete removes the object and drops any cached URL for it.
func (c *CachedPresigner) Delete(ctx context.Context, key string) error {
	if err := c.Storage.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, presignCachePrefix+key).Err(); err != nil {
		c.log.Warn("presign cache invalidate failed", "key", key, "error", err)
	}
	return nil
}
