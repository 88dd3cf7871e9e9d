package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 50, config.Tumblr.FilesPerSource)
	assert.Equal(t, 20, config.Tumblr.PageSize)
	assert.Equal(t, []string{AllSources}, config.Tumblr.BlogsToCrawl)
	assert.Equal(t, 10*time.Second, config.Tumblr.ProbeTimeout)
	assert.Equal(t, 3, config.Download.Workers)
	assert.Equal(t, "art_collector", config.Archive.RemotePath)
	assert.Equal(t, int64(10*1024*1024), config.Limits.FileSize.Bytes())
	assert.Equal(t, int64(1000*1024*1024), config.Limits.RemoteFolderSize.Bytes())
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ARTCOLLECTOR_TUMBLR_API_KEY", "key")
	t.Setenv("ARTCOLLECTOR_TUMBLR_BLOGS_TO_CRAWL", " foo, bar ,")
	t.Setenv("ARTCOLLECTOR_TUMBLR_BLOGS_TO_IGNORE", "baz")
	t.Setenv("ARTCOLLECTOR_TUMBLR_COLLECT_VIDEOS", "false")
	t.Setenv("ARTCOLLECTOR_MEGA_REMOTE_PATH", "art/")
	t.Setenv("ARTCOLLECTOR_FILE_SIZE_LIMIT", "5MiB")
	t.Setenv("ARTCOLLECTOR_WORKERS", "7")
	t.Setenv("ARTCOLLECTOR_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "key", config.Tumblr.APIKey)
	assert.Equal(t, []string{"foo", "bar"}, config.Tumblr.BlogsToCrawl)
	assert.Equal(t, []string{"baz"}, config.Tumblr.BlogsToIgnore)
	assert.False(t, config.Tumblr.CollectVideos)
	assert.Equal(t, "art", config.Archive.RemotePath)
	assert.Equal(t, 5*MiB, config.Limits.FileSize)
	assert.Equal(t, 7, config.Download.Workers)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("ARTCOLLECTOR_WORKERS", "many")
	t.Setenv("ARTCOLLECTOR_KEEP_FILES", "maybe")
	t.Setenv("ARTCOLLECTOR_FILE_SIZE_LIMIT", "huge")

	err := DefaultConfig().LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARTCOLLECTOR_WORKERS")
	assert.Contains(t, err.Error(), "ARTCOLLECTOR_KEEP_FILES")
	assert.Contains(t, err.Error(), "ARTCOLLECTOR_FILE_SIZE_LIMIT")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tumblr:
  blogs_to_crawl: [foo]
  files_per_source: 10
limits:
  file_size: 2MiB
  local_folder_size: 1048576
  remote_folder_size: 1GB
download:
  workers: 4
  timeout: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, []string{"foo"}, config.Tumblr.BlogsToCrawl)
	assert.Equal(t, 10, config.Tumblr.FilesPerSource)
	assert.Equal(t, 2*MiB, config.Limits.FileSize)
	assert.Equal(t, MiB, config.Limits.LocalFolderSize)
	assert.Equal(t, ByteSize(1000*1000*1000), config.Limits.RemoteFolderSize)
	assert.Equal(t, 4, config.Download.Workers)
	assert.Equal(t, time.Minute, config.Download.Timeout)
	// untouched fields keep their defaults
	assert.Equal(t, 20, config.Tumblr.PageSize)
}

func TestLoadFromFileErrors(t *testing.T) {
	config := DefaultConfig()
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  file_size: lots\n"), 0644))
	assert.Error(t, config.LoadFromFile(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero workers", func(c *Config) { c.Download.Workers = 0 }, "workers must be positive"},
		{"too many workers", func(c *Config) { c.Download.Workers = 64 }, "workers should not exceed 32"},
		{"page size", func(c *Config) { c.Tumblr.PageSize = 50 }, "page size"},
		{"files per source", func(c *Config) { c.Tumblr.FilesPerSource = 0 }, "files per source"},
		{"empty crawl list", func(c *Config) { c.Tumblr.BlogsToCrawl = nil }, "blogs to crawl"},
		{"bad auth code", func(c *Config) { c.Archive.AuthCode = "12ab" }, "six digits"},
		{"negative limit", func(c *Config) { c.Limits.FileSize = -1 }, "negative"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"no upload dir", func(c *Config) {
			c.Archive.Enabled = false
			c.Local.UploadDir = ""
		}, "upload directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	config := DefaultConfig()
	err := config.ValidateCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tumblr")
	assert.Contains(t, err.Error(), "archive")

	config.Tumblr.Token = "token"
	config.Archive.Email = "me@example.com"
	config.Archive.Password = "secret"
	assert.NoError(t, config.ValidateCredentials())

	config.Archive.Enabled = false
	config.Archive.Password = ""
	assert.NoError(t, config.ValidateCredentials())
}

func TestLocalDirAndQueueCapacity(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "temp", config.LocalDir())
	config.Local.KeepFiles = true
	assert.Equal(t, "downloads", config.LocalDir(), "kept archive copies live outside temp")
	config.Local.KeepFiles = false
	config.Archive.Enabled = false
	assert.Equal(t, "downloads", config.LocalDir())

	config.Download.QueueSize = 0
	config.Download.Workers = 4
	assert.Equal(t, 8, config.QueueCapacity())
	config.Download.QueueSize = 3
	assert.Equal(t, 3, config.QueueCapacity())
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"workers":    5,
		"no-archive": true,
		"keep-local": true,
		"log-level":  "warn",
		"state":      "/tmp/state.json",
	})

	assert.Equal(t, 5, config.Download.Workers)
	assert.False(t, config.Archive.Enabled)
	assert.True(t, config.Local.KeepFiles)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "/tmp/state.json", config.State.Path)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := DefaultConfig()
	config.Limits.FileSize = 3 * MiB

	require.NoError(t, config.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 3*MiB, loaded.Limits.FileSize)
	assert.Equal(t, config.Archive.RemotePath, loaded.Archive.RemotePath)
}

func TestParseByteSize(t *testing.T) {
	size, err := ParseByteSize("1000 MiB")
	require.NoError(t, err)
	assert.Equal(t, 1000*MiB, size)

	_, err = ParseByteSize("ten")
	assert.Error(t, err)

	assert.Equal(t, "10 MiB", (10 * MiB).String())
	assert.Equal(t, "0", ByteSize(0).String())
}
