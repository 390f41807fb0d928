package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  workers: 9\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Batch.Workers)
	assert.Equal(t, 1000, cfg.Batch.PaceMS)
	assert.Equal(t, 8*time.Second, cfg.FetcherConfig().Timeout)
	assert.Equal(t, time.Second, cfg.Pace())
}

func TestRepoDefaultFileMatchesDefault(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnsureUserConfig(t *testing.T) {
	t.Run("copies default file", func(t *testing.T) {
		dir := t.TempDir()
		def := filepath.Join(dir, "default.yml")
		require.NoError(t, os.WriteFile(def, []byte("app:\n  port: 9000\n"), 0o644))

		userDir := filepath.Join(dir, "data")
		p, err := EnsureUserConfig(userDir, def)
		require.NoError(t, err)

		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.App.Port)
	})

	t.Run("writes defaults when no default file", func(t *testing.T) {
		dir := t.TempDir()
		p, err := EnsureUserConfig(dir, filepath.Join(dir, "missing.yml"))
		require.NoError(t, err)

		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("keeps existing user file", func(t *testing.T) {
		dir := t.TempDir()
		p := filepath.Join(dir, "config.yml")
		require.NoError(t, os.WriteFile(p, []byte("app:\n  port: 1234\n"), 0o644))

		got, err := EnsureUserConfig(dir, "unused.yml")
		require.NoError(t, err)
		assert.Equal(t, p, got)

		b, _ := os.ReadFile(p)
		assert.Contains(t, string(b), "1234")
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDataDir, "/var/lib/careerscan")
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvWorkers, "not-a-number")
	t.Setenv(EnvLogLevel, "debug")

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, "/var/lib/careerscan", cfg.App.DataDir)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join("/var/lib/careerscan", "results"), cfg.ResultsPath())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("CAREERSCAN_WORKERS=7\n"), 0o644))
	t.Setenv(EnvWorkers, "")

	LoadEnv(nil, file, filepath.Join(dir, "absent.env"))

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, 7, cfg.Batch.Workers)
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Export.Format = " XLSX "
	cfg.Log.Level = ""
	out, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), v.Errors)
	assert.Equal(t, "xlsx", out.Export.Format)
	assert.Equal(t, "info", out.Log.Level)

	bad := Default()
	bad.App.Port = 0
	bad.Batch.Workers = 0
	bad.Fetch.TimeoutSeconds = 0
	bad.Export.Format = "pdf"
	bad.Log.Level = "loud"
	_, v = NormalizeAndValidate(bad)
	assert.False(t, v.OK())
	assert.Len(t, v.Errors, 5)

	low := Default()
	low.Batch.PaceMS = 10
	_, v = NormalizeAndValidate(low)
	assert.True(t, v.OK())
	assert.NotEmpty(t, v.Warnings)
}

func TestSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	first := Default()
	require.NoError(t, SaveAtomic(path, first))

	second := Default()
	second.Batch.Workers = 2
	require.NoError(t, SaveAtomic(path, second))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Batch.Workers)

	bak, err := Load(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, 4, bak.Batch.Workers)

	invalid := Default()
	invalid.App.Port = -1
	assert.Error(t, SaveAtomic(path, invalid))
	got, _ = Load(path)
	assert.Equal(t, 2, got.Batch.Workers)
}
