package main

import (
	"fmt"
	"os"
	"runtime"

	"artcollector/pkg/config"
	"artcollector/pkg/logger"
	"artcollector/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "artcollector",
	Short: "Collect media from followed Tumblr blogs into a MEGA archive",
	Long: `artcollector walks the blogs you follow on Tumblr, finds the images and
videos in their posts and copies each file into a folder on MEGA.

Each run only looks at posts newer than the previous run for blogs it has
already seen. Files already present locally are skipped, and byte budgets
cap single files and the local and remote folders.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
		ui.SetQuiet(quiet)

		switch cmd.Name() {
		case "version", "help", "show", "list":
		default:
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Red("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./artcollector.yaml or ~/.config/artcollector/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print one line per file instead of a progress spinner")

	rootCmd.SetVersionTemplate(`artcollector {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "artcollector %s\n", rootCmd.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\nOS/Arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// loadConfig loads the configuration with the global flags merged on top of flags
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if quiet && logLevel == "" && cfg.Logging.File == "" {
		cfg.Logging.Level = "error"
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
