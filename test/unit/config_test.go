// Package unit contains unit tests for individual components of the roomchat
// server.
package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/server"
)

// TestNewConfigDefaults verifies the default configuration values.
func TestNewConfigDefaults(t *testing.T) {
	cfg := server.NewConfig()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(512), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.BlockedWords)
}

// TestNewConfigFromEnv verifies environment variables override defaults.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9191")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example.com,http://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BLOCKED_WORDS", "foo,bar")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	cfg, err := server.NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9191", cfg.Addr)
	assert.Equal(t, []string{"http://a.example.com", "http://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"foo", "bar"}, cfg.BlockedWords)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

// TestNewConfigFromEnvValidation verifies invalid values are rejected.
func TestNewConfigFromEnvValidation(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := server.NewConfigFromEnv()
	assert.Error(t, err)
}
