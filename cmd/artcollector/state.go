package main

import (
	"fmt"

	"artcollector/pkg/logger"
	"artcollector/pkg/pipeline"
	"artcollector/pkg/runstate"
	"artcollector/pkg/ui"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the persisted run state",
	Long: `The run state records when the last run started and which blogs it
scanned. The next run only lists posts newer than that time for those blogs.`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last run timestamp and tracked sources",
	Args:  cobra.NoArgs,
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the run state so the next run scans every blog from the newest post",
	Args:  cobra.NoArgs,
	RunE:  runStateReset,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)

	stateCmd.PersistentFlags().StringVar(&statePath, "state", "", "run state file (default in the platform data directory)")
}

func openStateStore(fs afero.Fs) (*runstate.Store, error) {
	cfg, err := loadConfig(map[string]interface{}{"state": statePath})
	if err != nil {
		return nil, err
	}
	path, err := pipeline.StatePath(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path: %w", err)
	}
	return runstate.NewStore(fs, path, logger.GetLogger()), nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	store, err := openStateStore(afero.NewOsFs())
	if err != nil {
		ui.PrintError("Failed to open run state", err)
		return err
	}

	st, err := store.Load()
	if err != nil {
		ui.PrintError("Failed to read run state", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "State file: %s\n", store.Path())
	if st == nil {
		fmt.Fprintln(out, "No previous run recorded")
		return nil
	}
	fmt.Fprintf(out, "Last run:   %s\n", st.LastRunTimestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Sources:    %d\n", len(st.TrackedSources))
	for _, source := range st.TrackedSources {
		fmt.Fprintf(out, "  - %s\n", source)
	}
	return nil
}

func runStateReset(cmd *cobra.Command, args []string) error {
	store, err := openStateStore(afero.NewOsFs())
	if err != nil {
		ui.PrintError("Failed to open run state", err)
		return err
	}
	if err := store.Reset(); err != nil {
		ui.PrintError("Failed to reset run state", err)
		return err
	}
	ui.PrintSuccess("Run state deleted: " + store.Path())
	return nil
}
