package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "dev-secret-change-me", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, "postgres://carelink:pw@localhost:5432/carelink?sslmode=disable", cfg.Database.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "90")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "3")
	t.Setenv("SERVER_ENABLE_METRICS", "false")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,192.0.2.1 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.JWT.TokenTTL)
	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, 3, cfg.RateLimit.LoginPerMinute)
	assert.False(t, cfg.HTTP.EnableMetrics)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.HTTP.TrustedProxies)
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateAdmin(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{Secret: "x", TokenTTL: time.Hour}}
	assert.NoError(t, cfg.Validate())

	cfg.Admin.Email = "root@example.org"
	assert.Error(t, cfg.Validate())

	cfg.Admin.Password = "short"
	assert.Error(t, cfg.Validate())

	cfg.Admin.Password = "long-enough"
	assert.NoError(t, cfg.Validate())
}
