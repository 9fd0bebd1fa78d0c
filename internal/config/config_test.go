package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	setupFs(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 1, cfg.Processes)
	assert.False(t, cfg.Verbose)
}

func TestLoadEnv(t *testing.T) {
	setupFs(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("REDPANDA_FORMAT", "json")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/db", cfg.DatabaseURL)
	assert.Equal(t, "json", cfg.Format)

	// prefixed variable wins
	t.Setenv("REDPANDA_DATABASE_URL", "mysql://localhost/db")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "mysql://localhost/db", cfg.DatabaseURL)
}

func TestLoadDotenv(t *testing.T) {
	fs := setupFs(t)
	require.NoError(t, afero.WriteFile(fs, ".env", []byte("DATABASE_URL=sqlite:///tmp/a.sqlite3\nREDPANDA_PROCESSES=4\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("REDPANDA_PROCESSES=8\n"), 0644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/a.sqlite3", cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.Processes)
}

func TestLoadDotenvKeepsEnvironment(t *testing.T) {
	fs := setupFs(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/env")
	require.NoError(t, afero.WriteFile(fs, ".env", []byte("DATABASE_URL=postgres://localhost/dotenv\n"), 0644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/env", cfg.DatabaseURL)
}

func TestLoadConfigFile(t *testing.T) {
	fs := setupFs(t)
	dir, err := filepath.Abs(".")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, ".redpanda.yaml"), []byte("database_url: sqlite:///tmp/b.sqlite3\nformat: csv\n"), 0644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/b.sqlite3", cfg.DatabaseURL)
	assert.Equal(t, "csv", cfg.Format)
}

func TestLoadFlags(t *testing.T) {
	setupFs(t)
	t.Setenv("REDPANDA_FORMAT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "text", "")
	flags.Int("processes", 1, "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--format", "parquet", "--verbose"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "parquet", cfg.Format)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 1, cfg.Processes)
}

// helpers

func setupFs(t *testing.T) afero.Fs {
	for _, key := range []string{"DATABASE_URL", "REDPANDA_DATABASE_URL", "REDPANDA_FORMAT", "REDPANDA_PROCESSES", "REDPANDA_VERBOSE", "REDPANDA_OUTPUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	fs := afero.NewMemMapFs()
	previous := AppFs
	AppFs = fs
	t.Cleanup(func() { AppFs = previous })
	return fs
}
