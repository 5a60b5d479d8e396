package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noteweave/noteweave/internal/engine"
	"github.com/noteweave/noteweave/internal/ledger"
	"github.com/noteweave/noteweave/internal/policy"
	"github.com/noteweave/noteweave/internal/sheet"
	"github.com/noteweave/noteweave/internal/source"
	"github.com/noteweave/noteweave/internal/store"
)

type runSummary struct {
	RunID      string `json:"run_id"`
	Policy     string `json:"policy"`
	Seed       int64  `json:"seed"`
	Candidates int    `json:"candidates"`
	Placed     int    `json:"placed"`
	Unplaced   int    `json:"unplaced"`
	Output     string `json:"output"`
}

func newRunCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "run <batch-spec.cue>",
		Short: "Apply a candidate batch to a ledger workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "record the run in an audit database at this path")
	return cmd
}

func runBatch(cmd *cobra.Command, specPath, dbPath string) error {
	spec, err := LoadBatchSpec(specPath)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid batch spec", err)
	}

	led, err := sheet.Load(spec.Ledger.File, sheetOptions(spec))
	if err != nil {
		return classifyLoadError("load ledger", err)
	}

	batch, err := buildBatch(spec)
	if err != nil {
		return err
	}

	sel, err := buildSelector(spec)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid policy configuration", err)
	}

	eng := engine.New(sel, spec.RandomSeed, engine.WithSampleSize(spec.SampleSize))
	res, err := eng.InsertBatch(led, batch)
	if err != nil {
		return WrapExitError(ExitFailure, "apply batch", err)
	}

	if err := sheet.Save(spec.OutputPath(), led, sheetOptions(spec)); err != nil {
		return WrapExitError(ExitCommandError, "save workbook", err)
	}

	runID := store.NewRunID()
	if dbPath != "" {
		if err := recordRun(cmd, dbPath, runID, spec, res); err != nil {
			return err
		}
	}

	summary := runSummary{
		RunID:      runID,
		Policy:     spec.Policy,
		Seed:       spec.RandomSeed,
		Candidates: len(res.Records),
		Placed:     res.Placed,
		Unplaced:   res.Unplaced,
		Output:     spec.OutputPath(),
	}
	return formatter(cmd).Emit(summary, func(w io.Writer) error {
		fmt.Fprintf(w, "run %s (%s, seed %d)\n", summary.RunID, summary.Policy, summary.Seed)
		fmt.Fprintf(w, "  placed %d of %d candidates, %d skipped\n",
			summary.Placed, summary.Candidates, summary.Unplaced)
		fmt.Fprintf(w, "  wrote %s\n", summary.Output)
		return nil
	})
}

func recordRun(cmd *cobra.Command, dbPath, runID string, spec *BatchSpec, res *engine.Result) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open audit db", err)
	}
	defer st.Close()

	run := store.Run{
		ID:        runID,
		StartedAt: time.Now().UTC(),
		Policy:    spec.Policy,
		Seed:      spec.RandomSeed,
		Reference: spec.ReferenceDate,
	}
	if err := st.RecordBatch(cmd.Context(), run, res); err != nil {
		return WrapExitError(ExitCommandError, "record run", err)
	}
	return nil
}

// buildBatch loads candidates and resolves the reference date context.
func buildBatch(spec *BatchSpec) (engine.Batch, error) {
	candidates, err := source.Load(spec.Sources)
	if err != nil {
		return engine.Batch{}, WrapExitError(ExitCommandError, "load candidates", err)
	}

	batch := engine.Batch{Candidates: candidates}
	if spec.ReferenceDate != "" {
		// Validated at spec load time; parse cannot fail here.
		ref, _ := ledger.ParseDate(spec.ReferenceDate)
		batch.Reference = ref
	}
	if spec.Accounts != nil {
		dates, err := sheet.LoadGroupDates(spec.Ledger.File,
			spec.Accounts.Sheet, spec.Accounts.GroupColumn, spec.Accounts.DateColumn)
		if err != nil {
			return engine.Batch{}, classifyLoadError("load account dates", err)
		}
		batch.GroupDates = dates
	}
	return batch, nil
}

// buildSelector constructs the position selector the spec names.
func buildSelector(spec *BatchSpec) (policy.Selector, error) {
	switch spec.Policy {
	case PolicyThreshold:
		return &policy.Threshold{OffsetDays: spec.DayOffset}, nil
	case PolicyWindowMedian:
		return &policy.WindowMedian{
			WindowDays: spec.WindowDays,
			OffsetDays: spec.DayOffset,
		}, nil
	case PolicyMultiTier:
		return policy.NewTiered(spec.TierOffsets), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", spec.Policy)
	}
}

func sheetOptions(spec *BatchSpec) sheet.Options {
	return sheet.Options{
		Sheet:         spec.Ledger.Sheet,
		GroupColumn:   spec.Ledger.GroupColumn,
		DateColumn:    spec.Ledger.DateColumn,
		ContentColumn: spec.Ledger.ContentColumn,
	}
}

// classifyLoadError maps schema violations to validation failures and
// everything else (missing file, unreadable workbook) to command errors.
func classifyLoadError(msg string, err error) error {
	var schemaErr *ledger.SchemaError
	if errors.As(err, &schemaErr) {
		return WrapExitError(ExitFailure, msg, err)
	}
	return WrapExitError(ExitCommandError, msg, err)
}
