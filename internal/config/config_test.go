package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSecret(t *testing.T) {
	dev := Config{Env: "dev"}
	require.NoError(t, dev.resolveSecret())
	assert.Equal(t, devJWTSecret, dev.JWTSecret)

	prod := Config{Env: "production"}
	assert.Error(t, prod.resolveSecret())
	assert.Empty(t, prod.JWTSecret)

	set := Config{Env: "production", JWTSecret: "s3cret"}
	require.NoError(t, set.resolveSecret())
	assert.Equal(t, "s3cret", set.JWTSecret)
}

func TestLoad_ReleaseModeMeansProduction(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "from-env")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, "from-env", cfg.JWTSecret)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RESET_RATE_MAX", "7")

	cfg := Load()
	assert.False(t, cfg.Production())
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 7, cfg.ResetMaxInWin)
	assert.Equal(t, "8080", cfg.Port)
}
