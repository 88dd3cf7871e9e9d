package main

import (
	"errors"
	"fmt"
	"os"

	"artcollector/pkg/config"
	"artcollector/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "artcollector.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage artcollector configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (ARTCOLLECTOR_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option set to its default.

The file is created as 'artcollector.yaml' in the current directory unless
a different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and check it.

Credentials missing from the configuration are reported as warnings since
they may come from a stored account at run time.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		err := fmt.Errorf("configuration file already exists: %s", path)
		ui.PrintError("Refusing to overwrite", err)
		return err
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to create configuration file", err)
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Store your Tumblr and MEGA credentials with 'artcollector auth login'")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'artcollector config validate' to check the configuration")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start collecting with 'artcollector run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		return err
	}

	data, err := yaml.Marshal(maskConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// maskConfig returns a copy of cfg with every secret masked
func maskConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	masked.Tumblr.APIKey = mask(cfg.Tumblr.APIKey)
	masked.Tumblr.Token = mask(cfg.Tumblr.Token)
	masked.Archive.Password = mask(cfg.Archive.Password)
	masked.Archive.AuthCode = mask(cfg.Archive.AuthCode)
	return &masked
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return err
	}

	var warnings []string
	if err := cfg.ValidateCredentials(); err != nil {
		warnings = append(warnings, err.Error())
	}
	if cfg.Logging.File != "" {
		if _, err := os.Stat(cfg.Logging.File); err != nil && !errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("log file not accessible: %v", err))
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", w)
		}
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Sources", fmt.Sprintf("%v (ignoring %v)", cfg.Tumblr.BlogsToCrawl, cfg.Tumblr.BlogsToIgnore))
	ui.PrintInfo("Files per source", fmt.Sprintf("%d", cfg.Tumblr.FilesPerSource))
	ui.PrintInfo("Local directory", cfg.LocalDir())
	ui.PrintInfo("Limits", fmt.Sprintf("file %s, local %s, remote %s",
		cfg.Limits.FileSize, cfg.Limits.LocalFolderSize, cfg.Limits.RemoteFolderSize))
	ui.PrintInfo("Workers", fmt.Sprintf("%d (queue %d)", cfg.Download.Workers, cfg.QueueCapacity()))
	return nil
}
