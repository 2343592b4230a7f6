// Package cli is the cumpli command line. With no subcommand it opens the
// terminal UI; the subcommands script the same operations.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd(version string) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "cumpli",
		Short: "cumpli - personal task manager",
		Long: `cumpli keeps your activities, reminders and focus sessions in one place.

Run it without arguments to open the terminal UI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, g)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/cumpli/config.yaml)")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "database file (overrides db_path)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newAddCmd(g),
		newListCmd(g),
		newDoneCmd(g),
		newReopenCmd(g),
		newRmCmd(g),
		newFocusCmd(g),
		newStatsCmd(g),
		newExportCmd(g),
		newPrefsCmd(g),
		newConfigCmd(g),
		newVersionCmd(version),
	)
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cumpli %s\n", version)
		},
	}
}
