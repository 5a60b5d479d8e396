package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noteweave/noteweave/internal/ledger"
	"github.com/noteweave/noteweave/internal/sheet"
)

type validateSummary struct {
	Spec    string `json:"spec"`
	Policy  string `json:"policy"`
	Ledger  string `json:"ledger"`
	Entries int    `json:"entries"`
	Valid   bool   `json:"valid"`
	Problem string `json:"problem,omitempty"`
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <batch-spec.cue>",
		Short: "Check a batch spec and its ledger workbook without mutating anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateBatch(cmd, args[0])
		},
	}
}

func validateBatch(cmd *cobra.Command, specPath string) error {
	spec, err := LoadBatchSpec(specPath)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid batch spec", err)
	}

	summary := validateSummary{
		Spec:   specPath,
		Policy: spec.Policy,
		Ledger: spec.Ledger.File,
	}

	led, err := sheet.Load(spec.Ledger.File, sheetOptions(spec))
	if err != nil {
		var schemaErr *ledger.SchemaError
		if !errors.As(err, &schemaErr) {
			return WrapExitError(ExitCommandError, "load ledger", err)
		}
		summary.Problem = schemaErr.Error()
		if emitErr := emitValidate(cmd, summary); emitErr != nil {
			return emitErr
		}
		return WrapExitError(ExitFailure, "schema violation", schemaErr)
	}

	if spec.Accounts != nil {
		if _, err := sheet.LoadGroupDates(spec.Ledger.File,
			spec.Accounts.Sheet, spec.Accounts.GroupColumn, spec.Accounts.DateColumn); err != nil {
			return classifyLoadError("load account dates", err)
		}
	}

	summary.Entries = led.Len()
	summary.Valid = true
	return emitValidate(cmd, summary)
}

func emitValidate(cmd *cobra.Command, s validateSummary) error {
	return formatter(cmd).Emit(s, func(w io.Writer) error {
		if !s.Valid {
			fmt.Fprintf(w, "invalid: %s\n", s.Problem)
			return nil
		}
		fmt.Fprintf(w, "ok: %s policy, %d ledger entries in %s\n", s.Policy, s.Entries, s.Ledger)
		return nil
	})
}
