package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noteweave/noteweave/internal/store"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(newReportRunsCommand())
	cmd.AddCommand(newReportPlacementsCommand())
	return cmd
}

func newReportRunsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open audit db", err)
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "list runs", err)
			}
			return formatter(cmd).Emit(runs, func(w io.Writer) error {
				if len(runs) == 0 {
					fmt.Fprintln(w, "no runs recorded")
					return nil
				}
				for _, r := range runs {
					fmt.Fprintf(w, "%s  %s  %-13s seed=%-6d placed=%d unplaced=%d\n",
						r.ID, r.StartedAt.Format(time.RFC3339), r.Policy, r.Seed, r.Placed, r.Unplaced)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "audit database path")
	cobra.CheckErr(cmd.MarkFlagRequired("db"))
	return cmd
}

func newReportPlacementsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "placements <run-id>",
		Short: "List a run's placements in insertion order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open audit db", err)
			}
			defer st.Close()

			placements, err := st.ListPlacements(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "list placements", err)
			}
			return formatter(cmd).Emit(placements, func(w io.Writer) error {
				if len(placements) == 0 {
					fmt.Fprintln(w, "no placements recorded for this run")
					return nil
				}
				for _, p := range placements {
					if p.Placed {
						fmt.Fprintf(w, "%4d  %-36s %-12s group=%-6s position=%d\n",
							p.Seq, p.CandidateID, p.OriginTag, p.GroupKey, p.Position)
						continue
					}
					fmt.Fprintf(w, "%4d  %-36s %-12s skipped (%s)\n",
						p.Seq, p.CandidateID, p.OriginTag, p.Reason)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "audit database path")
	cobra.CheckErr(cmd.MarkFlagRequired("db"))
	return cmd
}
