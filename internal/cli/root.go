// Package cli wires the batch pipeline into the noteweave command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagFormat  string
)

// NewRootCommand builds the noteweave command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "noteweave",
		Short: "Insert dated candidate notes into chronologically ordered ledgers",
		Long: `noteweave merges synthetic candidate notes into an existing,
chronologically ordered note ledger. A batch spec names the workbook, the
candidate sources and the placement policy; the engine inserts each
candidate at the position the policy selects, inheriting group key, date
and presentation from its neighbors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagFormat != "text" && flagFormat != "json" {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q (want text or json)", flagFormat), nil)
			}
			configureLogging(flagVerbose)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&flagFormat, "format", "f", "text", "output format (text or json)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newReportCommand())
	return root
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: flagFormat, Writer: cmd.OutOrStdout()}
}
