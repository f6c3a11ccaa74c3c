package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("SPENDGRID_DATABASE_URL", "")
	t.Setenv("SPENDGRID_ADDR", "")
	t.Setenv("SPENDGRID_DEV_USER", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "X-User-Id", cfg.Server.UserHeader)
	assert.Equal(t, "USD", cfg.Spend.Currency)
	assert.Equal(t, cfg.Database.Path, cfg.DSN())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("SPENDGRID_DATABASE_URL", "")
	t.Setenv("SPENDGRID_ADDR", "")
	t.Setenv("SPENDGRID_DEV_USER", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":9000"
	cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	cfg.Database.Path = "/tmp/spend.db"
	require.NoError(t, Save(path, cfg))
	assert.True(t, Exists(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SPENDGRID_DATABASE_URL", "postgres://spend@localhost/spend")
	t.Setenv("SPENDGRID_ADDR", ":7000")
	t.Setenv("SPENDGRID_DEV_USER", "dev_user")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://spend@localhost/spend", cfg.DSN())
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "dev_user", cfg.Server.DevUser)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\naddr ="), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.UserHeader = ""
	assert.Error(t, cfg.Validate())
}
