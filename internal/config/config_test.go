package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_ENV", "unit")
	t.Setenv("CHAT_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("CHAT_REDIS_ADDR", "redis:6380")
	t.Setenv("CHAT_RECONCILE_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "unit", cfg.Environment)
	require.Equal(t, "3000", cfg.Port)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	require.Equal(t, "redis:6380", cfg.Redis.Addr)
	require.Equal(t, "rooms:", cfg.Redis.KeyPrefix)
	require.Equal(t, 30*time.Second, cfg.Reconcile.Interval)
	require.False(t, cfg.Auth.EnforceCallerIdentity)
	require.False(t, cfg.Rooms.ValidatePublicJoin)
}

func TestLoadRequiresVerifierKey(t *testing.T) {
	t.Setenv("CONFIG_ENV", "unit")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{Port: "3000", Auth: AuthConfig{JWTSecret: "x"}}
	require.NoError(t, cfg.Validate())

	cfg.Port = ""
	require.Error(t, cfg.Validate())

	cfg.Port = "3000"
	cfg.Reconcile.Interval = -time.Second
	require.Error(t, cfg.Validate())
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("CONFIG_ENV", "unit")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.unit.yaml"),
		[]byte("port: \"8080\"\nauth:\n  jwt_secret: from-file\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "from-file", cfg.Auth.JWTSecret)
}

func TestLoadRejectsMalformedConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("CONFIG_ENV", "unit")
	t.Setenv("CHAT_AUTH_JWT_SECRET", "s3cret")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.unit.yaml"),
		[]byte("port: [unclosed\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
}
