package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"artcollector/internal/downloader"
	"artcollector/pkg/auth"
	"artcollector/pkg/config"
	"artcollector/pkg/logger"
	"artcollector/pkg/pipeline"
	"artcollector/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	workers        int
	queueSize      int
	filesPerSource int
	accountName    string
	statePath      string
	dryRun         bool
	noArchive      bool
	keepLocal      bool
)

// runCmd performs one collection run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect new media from followed blogs",
	Long: `Run lists the blogs you follow, scans their posts for images and videos,
downloads each new file and uploads it to MEGA.

Credentials are taken from the config file, the environment or the stored
account (see 'artcollector auth login'), in that order.`,
	Example: `  # Regular run
  artcollector run

  # See what would be collected without downloading anything
  artcollector run --dry-run

  # Keep files in the upload directory instead of archiving them
  artcollector run --no-archive --files-per-source 10`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent workers (default from config)")
	runCmd.Flags().IntVar(&queueSize, "queue-size", 0, "bounded queue capacity (default twice the workers)")
	runCmd.Flags().IntVarP(&filesPerSource, "files-per-source", "n", 0, "maximum files accepted per blog")
	runCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	runCmd.Flags().StringVar(&statePath, "state", "", "run state file (default in the platform data directory)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "scan and list files without downloading or saving state")
	runCmd.Flags().BoolVar(&noArchive, "no-archive", false, "keep downloads in the upload directory instead of MEGA")
	runCmd.Flags().BoolVar(&keepLocal, "keep-local", false, "keep the local copy after a successful upload")
}

func runFlags() map[string]interface{} {
	return map[string]interface{}{
		"workers":          workers,
		"queue-size":       queueSize,
		"files-per-source": filesPerSource,
		"no-archive":       noArchive,
		"keep-local":       keepLocal,
		"state":            statePath,
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runFlags())
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		return err
	}
	log := logger.GetLogger().WithField("version", version)

	if err := applyStoredCredentials(cfg, accountName, log); err != nil {
		ui.PrintError("Credentials unavailable", err)
		return err
	}

	p, err := pipeline.Build(cfg, log)
	if err != nil {
		ui.PrintError("Cannot start run", err)
		if cfg.ValidateCredentials() != nil {
			fmt.Fprintln(os.Stderr, "\nStore credentials with:\n  artcollector auth login")
		}
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printRunInfo(cfg)

	results := make(chan downloader.Result, cfg.Download.Workers)
	progress := ui.NewProgress(os.Stderr, verbose)
	done := make(chan ui.Tally, 1)
	go func() {
		done <- progress.Consume(results)
	}()

	report, err := p.Run(ctx, pipeline.RunOptions{DryRun: dryRun, Results: results})
	<-done

	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Run interrupted, state kept from the previous run")
		} else {
			ui.PrintError("Run failed", err)
		}
		return err
	}

	ui.PrintSummary(report)
	return nil
}

// applyStoredCredentials fills credentials missing from cfg with the named
// account, or the default one. A missing store is not an error since the
// config or environment may already carry everything.
func applyStoredCredentials(cfg *config.Config, name string, log logger.Logger) error {
	manager, err := auth.NewManager()
	if err != nil {
		if name != "" {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		log.WithError(err).Warn("Credential manager unavailable")
		return nil
	}

	var account *auth.Account
	if name != "" {
		account, err = manager.Retrieve(name)
		if err != nil {
			return err
		}
	} else if account, err = manager.RetrieveDefault(); err != nil {
		log.Debug("No stored account found")
		return nil
	}

	account.Apply(cfg)
	log.WithField("account", account.Name).Info("Using stored credentials")
	return nil
}

func printRunInfo(cfg *config.Config) {
	if cfg.Archive.Enabled {
		ui.PrintInfo("Archive", cfg.Archive.RemotePath)
	} else {
		ui.PrintInfo("Upload directory", cfg.Local.UploadDir)
	}
	ui.PrintInfo("Workers", fmt.Sprintf("%d (queue %d)", cfg.Download.Workers, cfg.QueueCapacity()))
	if dryRun {
		ui.PrintHighlight("[DRY RUN] nothing will be downloaded")
	}
}
