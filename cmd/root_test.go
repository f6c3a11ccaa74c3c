package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DBFlag(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SPENDGRID_DATABASE_URL", "")
	t.Cleanup(func() { flagDB = "" })

	flagDB = filepath.Join(t.TempDir(), "x.db")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, flagDB, cfg.DSN())

	flagDB = "postgres://u:p@localhost/spend"
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, flagDB, cfg.DSN())
}

func TestMaskURL(t *testing.T) {
	assert.Equal(t, "postgres://u:****@h:5432/db", maskURL("postgres://u:secret@h:5432/db"))
	assert.Equal(t, "postgres://u@h/db", maskURL("postgres://u@h/db"))
	assert.Equal(t, "/var/lib/x.db", maskURL("/var/lib/x.db"))
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"serve", "--detach", "--addr", ":9000", "--detach=true"})
	assert.Equal(t, []string{"serve", "--addr", ":9000"}, got)
}

func TestActingUser(t *testing.T) {
	t.Cleanup(func() { flagAs = "" })

	t.Setenv("SPENDGRID_USER", "env-user")
	assert.Equal(t, "env-user", actingUser())

	flagAs = "flag-user"
	assert.Equal(t, "flag-user", actingUser())
}
