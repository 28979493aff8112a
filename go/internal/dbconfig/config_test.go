package dbconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("REDIS_PASSWORD", "")

	cfg := NewConfigFromEnv()

	assert.Equal(t, "redis://localhost:6379/0", cfg.URL())
}

func TestNewConfigFromEnv_Parts(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_PASSWORD", "pw")

	cfg := NewConfigFromEnv()
	assert.Equal(t, "redis://:pw@cache:6380/2", cfg.URL())

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
}

func TestURLTakesPrecedence(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://example:7000/4")
	t.Setenv("REDIS_HOST", "ignored")

	opts, err := NewConfigFromEnv().Options()
	require.NoError(t, err)
	assert.Equal(t, "example:7000", opts.Addr)
	assert.Equal(t, 4, opts.DB)
}
