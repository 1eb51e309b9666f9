package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadPartialConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"listen_addr": ":9999", "convert_workers": 8}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.GetListenAddr())
	assert.Equal(t, 8, cfg.GetConvertWorkers())

	// Omitted fields fall back to defaults.
	assert.Equal(t, "cocoset.db", cfg.GetDBPath())
	assert.Equal(t, "migrations", cfg.GetMigrationsDir())
	assert.Equal(t, "plots", cfg.GetPlotDir())
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := Empty()
	assert.Equal(t, ":8080", cfg.GetListenAddr())
	assert.Equal(t, 4, cfg.GetConvertWorkers())
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `{}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json extension")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"convert_workers": 0}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "convert_workers")

	path = writeConfig(t, "config.json", `{"db_path": ""}`)
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_path")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
