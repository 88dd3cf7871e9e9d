package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"artcollector/pkg/config"
	"artcollector/pkg/runstate"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configFile, statePath = "", ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestMaskConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tumblr.APIKey = "consumer_key_1234567890"
	cfg.Tumblr.Token = "short"
	cfg.Archive.Password = "hunter2hunter2"
	cfg.Archive.Email = "me@example.com"

	masked := maskConfig(cfg)
	assert.Equal(t, "cons...7890", masked.Tumblr.APIKey)
	assert.Equal(t, "***", masked.Tumblr.Token)
	assert.Equal(t, "hunt...ter2", masked.Archive.Password)
	assert.Equal(t, "me@example.com", masked.Archive.Email)
	assert.Empty(t, masked.Archive.AuthCode)

	assert.Equal(t, "consumer_key_1234567890", cfg.Tumblr.APIKey, "original left untouched")
}

func TestRunFlags(t *testing.T) {
	workers, noArchive = 5, true
	defer func() { workers, noArchive = 0, false }()

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(runFlags())
	assert.Equal(t, 5, cfg.Download.Workers)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, 50, cfg.Tumblr.FilesPerSource, "unset flags keep config values")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artcollector.yaml")

	_, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, config.DefaultConfig().Limits, cfg.Limits)

	_, err = execute(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artcollector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tumblr:\n  api_key: consumer_key_1234567890\n"), 0600))

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "cons...7890")
	assert.NotContains(t, out, "consumer_key_1234567890")
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artcollector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  workers: 0\n"), 0600))

	_, err := execute(t, "config", "validate", "--config", path)
	assert.ErrorContains(t, err, "workers must be positive")
}

func TestStateShowAndReset(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "artcollector.yaml")
	require.NoError(t, config.DefaultConfig().Save(cfgPath))
	path := filepath.Join(dir, "state.json")

	out, err := execute(t, "state", "show", "--config", cfgPath, "--state", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No previous run recorded")

	store := runstate.NewStore(afero.NewOsFs(), path, nil)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(runstate.NewState(started, []string{"foo", "bar"})))

	out, err = execute(t, "state", "show", "--config", cfgPath, "--state", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-01 12:00:00 UTC")
	assert.Contains(t, out, "  - bar\n  - foo\n")

	_, err = execute(t, "state", "reset", "--config", cfgPath, "--state", path)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "artcollector "+version)
}
