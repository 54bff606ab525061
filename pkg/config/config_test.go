package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.RoleCache.TTL)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, 3, cfg.Notifications.Retries)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROLE_CACHE_ENABLED", "true")
	t.Setenv("ROLE_CACHE_TTL", "90s")
	t.Setenv("NOTIFY_RETRY_DELAY", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " https://ppdb.example.com, ,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.RoleCache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.RoleCache.TTL)
	assert.Equal(t, 5*time.Second, cfg.Notifications.RetryDelay)
	assert.Equal(t, []string{"https://ppdb.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
}
