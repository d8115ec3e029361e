package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]interface{}{"key", "images/a.jpg", "jwt_token", "abc", "STORAGE_SECRET_KEY", "x"})
	assert.Equal(t, []interface{}{"key", "images/a.jpg", "jwt_token", "[REDACTED]", "STORAGE_SECRET_KEY", "[REDACTED]"}, got)
}

func TestSanitizeKVsOddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"dataset_id", "d1", "dangling"})
	assert.Equal(t, []interface{}{"dataset_id", "d1", "dangling"}, got)
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "password", "hunter2")
	l.Sync()
}
