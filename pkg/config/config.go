package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AllSources is the blogs_to_crawl sentinel meaning "no allow-list"
const AllSources = "all"

const envPrefix = "ARTCOLLECTOR_"

var authCodePattern = regexp.MustCompile(`^\d{6}$`)

// Config holds all configuration options for a collection run
type Config struct {
	// Upstream content source
	Tumblr TumblrConfig `yaml:"tumblr" json:"tumblr"`

	// Remote archive destination
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Local directories
	Local LocalConfig `yaml:"local" json:"local"`

	// Byte budgets
	Limits LimitsConfig `yaml:"limits" json:"limits"`

	// Worker pool settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Persisted run state
	State StateConfig `yaml:"state" json:"state"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TumblrConfig holds upstream API and scanning configuration
type TumblrConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	APIKey            string        `yaml:"api_key" json:"api_key"`
	Token             string        `yaml:"token" json:"token"`
	BlogsToCrawl      []string      `yaml:"blogs_to_crawl" json:"blogs_to_crawl"`
	BlogsToIgnore     []string      `yaml:"blogs_to_ignore" json:"blogs_to_ignore"`
	FilesPerSource    int           `yaml:"files_per_source" json:"files_per_source"`
	CollectVideos     bool          `yaml:"collect_videos" json:"collect_videos"`
	PageSize          int           `yaml:"page_size" json:"page_size"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// ArchiveConfig holds MEGA destination configuration
type ArchiveConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	Email          string        `yaml:"email" json:"email"`
	Password       string        `yaml:"password" json:"password"`
	AuthCode       string        `yaml:"auth_code" json:"auth_code"`
	RemotePath     string        `yaml:"remote_path" json:"remote_path"`
	CommandTimeout time.Duration `yaml:"command_timeout" json:"command_timeout"`
}

// LocalConfig holds local directory configuration
type LocalConfig struct {
	// TempDir receives downloads that are archived and then removed
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
	// UploadDir receives downloads when archiving is disabled or files are kept
	UploadDir string `yaml:"upload_dir" json:"upload_dir"`
	KeepFiles bool   `yaml:"keep_files" json:"keep_files"`
}

// LimitsConfig holds the three byte budgets. Zero means unlimited.
type LimitsConfig struct {
	FileSize         ByteSize `yaml:"file_size" json:"file_size"`
	LocalFolderSize  ByteSize `yaml:"local_folder_size" json:"local_folder_size"`
	RemoteFolderSize ByteSize `yaml:"remote_folder_size" json:"remote_folder_size"`
}

// DownloadConfig holds worker pool configuration
type DownloadConfig struct {
	Workers   int           `yaml:"workers" json:"workers"`
	QueueSize int           `yaml:"queue_size" json:"queue_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// StateConfig holds run state persistence configuration
type StateConfig struct {
	// Path of the state file, empty for the platform data directory
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tumblr: TumblrConfig{
			BaseURL:           "https://api.tumblr.com",
			BlogsToCrawl:      []string{AllSources},
			BlogsToIgnore:     []string{},
			FilesPerSource:    50,
			CollectVideos:     true,
			PageSize:          20,
			ProbeTimeout:      10 * time.Second,
			RequestTimeout:    10 * time.Second,
			RequestsPerMinute: 60,
		},
		Archive: ArchiveConfig{
			Enabled:        true,
			RemotePath:     "art_collector",
			CommandTimeout: 5 * time.Minute,
		},
		Local: LocalConfig{
			TempDir:   "temp",
			UploadDir: "downloads",
			KeepFiles: false,
		},
		Limits: LimitsConfig{
			FileSize:         10 * MiB,
			LocalFolderSize:  1000 * MiB,
			RemoteFolderSize: 1000 * MiB,
		},
		Download: DownloadConfig{
			Workers:   3,
			QueueSize: 6,
			Timeout:   30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	setSize := func(name string, dst *ByteSize) {
		if v := os.Getenv(envPrefix + name); v != "" {
			size, err := ParseByteSize(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = size
		}
	}
	setList := func(name string, dst *[]string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = splitList(v)
		}
	}

	// Tumblr
	setString("TUMBLR_API_KEY", &c.Tumblr.APIKey)
	setString("TUMBLR_TOKEN", &c.Tumblr.Token)
	setList("TUMBLR_BLOGS_TO_CRAWL", &c.Tumblr.BlogsToCrawl)
	setList("TUMBLR_BLOGS_TO_IGNORE", &c.Tumblr.BlogsToIgnore)
	setInt("TUMBLR_FILES_PER_SOURCE", &c.Tumblr.FilesPerSource)
	setBool("TUMBLR_COLLECT_VIDEOS", &c.Tumblr.CollectVideos)

	// Archive
	setBool("ARCHIVE_ENABLED", &c.Archive.Enabled)
	setString("MEGA_EMAIL", &c.Archive.Email)
	setString("MEGA_PASSWORD", &c.Archive.Password)
	setString("MEGA_AUTH_CODE", &c.Archive.AuthCode)
	setString("MEGA_REMOTE_PATH", &c.Archive.RemotePath)

	// Local
	setString("TEMP_DIR", &c.Local.TempDir)
	setString("UPLOAD_DIR", &c.Local.UploadDir)
	setBool("KEEP_FILES", &c.Local.KeepFiles)

	// Limits
	setSize("FILE_SIZE_LIMIT", &c.Limits.FileSize)
	setSize("LOCAL_FOLDER_SIZE_LIMIT", &c.Limits.LocalFolderSize)
	setSize("REMOTE_FOLDER_SIZE_LIMIT", &c.Limits.RemoteFolderSize)

	// Download
	setInt("WORKERS", &c.Download.Workers)
	setInt("QUEUE_SIZE", &c.Download.QueueSize)

	// State and logging
	setString("STATE_PATH", &c.State.Path)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)

	c.Archive.RemotePath = strings.TrimRight(c.Archive.RemotePath, "/")

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"artcollector.yaml",
		".artcollector.yaml",
		".artcollector.yml",
		filepath.Join(home, ".config", "artcollector", "config.yaml"),
		filepath.Join(home, ".config", "artcollector", "config.yml"),
		filepath.Join(home, ".artcollector.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are checked
// separately by ValidateCredentials since they may come from the keyring.
func (c *Config) Validate() error {
	var errs []error

	if c.Tumblr.BaseURL == "" {
		errs = append(errs, errors.New("tumblr base URL is required"))
	}
	if c.Tumblr.FilesPerSource <= 0 {
		errs = append(errs, errors.New("files per source must be positive"))
	}
	if c.Tumblr.PageSize <= 0 || c.Tumblr.PageSize > 20 {
		errs = append(errs, errors.New("page size must be between 1 and 20"))
	}
	if c.Tumblr.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("probe timeout must be positive"))
	}
	if c.Tumblr.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Tumblr.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if len(c.Tumblr.BlogsToCrawl) == 0 {
		errs = append(errs, fmt.Errorf("blogs to crawl must list blogs or %q", AllSources))
	}

	if c.Archive.Enabled {
		if c.Archive.RemotePath == "" {
			errs = append(errs, errors.New("archive remote path is required"))
		}
		if c.Archive.AuthCode != "" && !authCodePattern.MatchString(c.Archive.AuthCode) {
			errs = append(errs, errors.New("archive auth code must be six digits"))
		}
		if c.Archive.CommandTimeout <= 0 {
			errs = append(errs, errors.New("archive command timeout must be positive"))
		}
		if c.Local.TempDir == "" {
			errs = append(errs, errors.New("local temp directory is required"))
		}
	} else if c.Local.UploadDir == "" {
		errs = append(errs, errors.New("local upload directory is required when archiving is disabled"))
	}

	if c.Limits.FileSize < 0 || c.Limits.LocalFolderSize < 0 || c.Limits.RemoteFolderSize < 0 {
		errs = append(errs, errors.New("size limits cannot be negative"))
	}

	if c.Download.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Download.Workers > 32 {
		errs = append(errs, errors.New("workers should not exceed 32"))
	}
	if c.Download.QueueSize < 0 {
		errs = append(errs, errors.New("queue size cannot be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateCredentials checks the secrets a run needs
func (c *Config) ValidateCredentials() error {
	var errs []error
	if c.Tumblr.APIKey == "" && c.Tumblr.Token == "" {
		errs = append(errs, errors.New("tumblr API key or token is required"))
	}
	if c.Archive.Enabled && (c.Archive.Email == "" || c.Archive.Password == "") {
		errs = append(errs, errors.New("archive email and password are required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LocalDir returns the directory downloads are written to. Archived files
// that are kept go to UploadDir so the temp cleanup never removes them.
func (c *Config) LocalDir() string {
	if c.Archive.Enabled && !c.Local.KeepFiles {
		return c.Local.TempDir
	}
	return c.Local.UploadDir
}

// QueueCapacity returns the bounded queue capacity, defaulting to twice the worker count
func (c *Config) QueueCapacity() int {
	if c.Download.QueueSize > 0 {
		return c.Download.QueueSize
	}
	return c.Download.Workers * 2
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Download.Workers = workers
	}
	if queueSize, ok := flags["queue-size"].(int); ok && queueSize > 0 {
		c.Download.QueueSize = queueSize
	}
	if limit, ok := flags["files-per-source"].(int); ok && limit > 0 {
		c.Tumblr.FilesPerSource = limit
	}
	if noArchive, ok := flags["no-archive"].(bool); ok && noArchive {
		c.Archive.Enabled = false
	}
	if keep, ok := flags["keep-local"].(bool); ok && keep {
		c.Local.KeepFiles = true
	}
	if statePath, ok := flags["state"].(string); ok && statePath != "" {
		c.State.Path = statePath
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".artcollector.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// splitList splits a comma separated list, trimming blanks
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
