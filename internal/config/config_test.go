package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"MAX_UPLOAD_SIZE", "THUMBNAIL_SIZE", "THUMBNAIL_QUALITY", "PRESIGN_TTL", "ALLOWED_IMAGE_TYPES", "STORAGE_RETRY_ATTEMPTS", "UPLOAD_CONCURRENCY", "DB_MAX_CONNS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, 300, cfg.ThumbnailWidth)
	assert.Equal(t, 300, cfg.ThumbnailHeight)
	assert.Equal(t, 85, cfg.ThumbnailQuality)
	assert.Equal(t, time.Hour, cfg.PresignTTL)
	assert.Equal(t, 3, cfg.StorageRetryAttempts)
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/jpg"}, cfg.AllowedImageTypes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_SIZE", "2048")
	t.Setenv("THUMBNAIL_SIZE", "128X64")
	t.Setenv("PRESIGN_TTL", "15m")
	t.Setenv("ALLOWED_IMAGE_TYPES", " image/png , image/webp ")
	t.Setenv("STORAGE_RETRY_ATTEMPTS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), cfg.MaxUploadSize)
	assert.Equal(t, 128, cfg.ThumbnailWidth)
	assert.Equal(t, 64, cfg.ThumbnailHeight)
	assert.Equal(t, 15*time.Minute, cfg.PresignTTL)
	assert.Equal(t, []string{"image/png", "image/webp"}, cfg.AllowedImageTypes)
	assert.Equal(t, 1, cfg.StorageRetryAttempts)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"MAX_UPLOAD_SIZE":   "ten",
		"THUMBNAIL_SIZE":    "300",
		"PRESIGN_TTL":       "-1s",
		"THUMBNAIL_QUALITY": "101",
		"DB_MAX_CONNS":      "many",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
