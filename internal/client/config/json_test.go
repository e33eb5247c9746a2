package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"remote_url":      "https://dav.example",
		"remote_kind":     "minio",
		"debounce":        "5s",
		"recycle_bin_ttl": 3600000000000,
		"auto_backup":     false,
		"history_cap":     10,
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "https://dav.example", cfg.RemoteURL)
		assert.Equal(t, "minio", cfg.RemoteKind)
		assert.Equal(t, 5*time.Second, cfg.Debounce)
		assert.Equal(t, time.Hour, cfg.RecycleBinTTL)
		assert.False(t, cfg.AutoBackup)
		assert.Equal(t, 10, cfg.HistoryCap)

		// absent keys keep defaults
		assert.Equal(t, 200, cfg.RecycleBinCap)
		assert.Equal(t, 30*time.Second, cfg.RemoteTimeout)
		assert.Equal(t, "vault.db", cfg.DBFile)
	})

	t.Run("flags override json", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag, "-r", "https://other"}

		cfg := LoadConfig()
		assert.Equal(t, "https://other", cfg.RemoteURL)
		assert.Equal(t, "minio", cfg.RemoteKind)
	})

	t.Run("no config flag, no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{RemoteURL: "defaults", Debounce: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "defaults", cfg.RemoteURL)
		assert.Equal(t, 42*time.Second, cfg.Debounce)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
