package pipeline

import (
	"artcollector/internal/downloader"
	"artcollector/pkg/archive"
	"artcollector/pkg/config"
	"artcollector/pkg/logger"
	"artcollector/pkg/metadata"
	"artcollector/pkg/ratelimit"
	"artcollector/pkg/runstate"
	"artcollector/pkg/tumblr"

	"github.com/spf13/afero"
)

// UserAgent is sent with every probe and download
const UserAgent = "artcollector/1.0"

// Build creates a pipeline backed by the Tumblr API, plain HTTP downloads,
// the local filesystem and MEGAcmd. Credentials must already be merged into cfg.
func Build(cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}

	statePath, err := StatePath(cfg)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	deps := Deps{
		Upstream: tumblr.NewClient(tumblr.Options{
			BaseURL:  cfg.Tumblr.BaseURL,
			APIKey:   cfg.Tumblr.APIKey,
			Token:    cfg.Tumblr.Token,
			PageSize: cfg.Tumblr.PageSize,
			Timeout:  cfg.Tumblr.RequestTimeout,
			Limiter:  ratelimit.PerMinute(cfg.Tumblr.RequestsPerMinute),
		}, log),
		Resolver: metadata.NewResolver(nil, metadata.Options{
			Timeout:   cfg.Tumblr.ProbeTimeout,
			LocalDir:  cfg.LocalDir(),
			RemoteDir: cfg.Archive.RemotePath,
			UserAgent: UserAgent,
		}, log),
		Fetcher: downloader.NewHTTPFetcher(cfg.Download.Timeout, UserAgent),
		Fs:      fs,
		State:   runstate.NewStore(fs, statePath, log),
	}

	if cfg.Archive.Enabled {
		deps.Sink = archive.NewMegaCmd(archive.ExecRunner{}, archive.Credentials{
			Email:    cfg.Archive.Email,
			Password: cfg.Archive.Password,
			AuthCode: cfg.Archive.AuthCode,
		}, archive.Options{CommandTimeout: cfg.Archive.CommandTimeout}, log)
	}

	return New(cfg, deps, log)
}

// StatePath returns the configured state file, or the platform default
func StatePath(cfg *config.Config) (string, error) {
	if cfg.State.Path != "" {
		return cfg.State.Path, nil
	}
	return runstate.DefaultPath()
}
