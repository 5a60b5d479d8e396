package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/noteweave/noteweave/internal/ledger"
)

// batchSchema constrains batch spec files. User files are unified with
// #Batch and must be concrete after defaults apply.
const batchSchema = `
#Batch: {
	policy: "threshold" | "window_median" | "multi_tier"

	// Reference date, in any accepted ledger date format. Optional when an
	// accounts sheet supplies per-group dates.
	reference_date?: string

	day_offset:   int & >0 | *45
	window_days?: int & >0
	tier_offsets?: [...int & >0]

	sample_size: int & >=0 | *0
	random_seed: int | *0

	// Directory of candidate JSONL files.
	sources: string

	ledger: {
		file:           string
		sheet:          string | *"Note Activity"
		group_column:   string | *"Case"
		date_column:    string | *"Note Date"
		content_column: string | *"Note"
	}

	accounts?: {
		sheet:        string | *"Account Activity"
		group_column: string | *"Case"
		date_column:  string | *"Queue In Date"
	}

	// Output workbook path; defaults to overwriting the input.
	output?: string
}
`

// LedgerSpec locates the note sheet and its schema columns.
type LedgerSpec struct {
	File          string `json:"file"`
	Sheet         string `json:"sheet"`
	GroupColumn   string `json:"group_column"`
	DateColumn    string `json:"date_column"`
	ContentColumn string `json:"content_column"`
}

// AccountSpec locates the per-group reference dates.
type AccountSpec struct {
	Sheet       string `json:"sheet"`
	GroupColumn string `json:"group_column"`
	DateColumn  string `json:"date_column"`
}

// BatchSpec is one decoded batch configuration. All parameters are
// explicit; nothing in the pipeline reads process-wide state.
type BatchSpec struct {
	Policy        string       `json:"policy"`
	ReferenceDate string       `json:"reference_date,omitempty"`
	DayOffset     int          `json:"day_offset"`
	WindowDays    int          `json:"window_days,omitempty"`
	TierOffsets   []int        `json:"tier_offsets,omitempty"`
	SampleSize    int          `json:"sample_size"`
	RandomSeed    int64        `json:"random_seed"`
	Sources       string       `json:"sources"`
	Ledger        LedgerSpec   `json:"ledger"`
	Accounts      *AccountSpec `json:"accounts,omitempty"`
	Output        string       `json:"output,omitempty"`
}

// Policy names accepted in batch specs.
const (
	PolicyThreshold    = "threshold"
	PolicyWindowMedian = "window_median"
	PolicyMultiTier    = "multi_tier"
)

// LoadBatchSpec loads and validates a CUE batch spec file.
func LoadBatchSpec(path string) (*BatchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch spec: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(batchSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile batch schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile batch spec %s: %w", path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Batch")).Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, fmt.Errorf("validate batch spec %s: %w", path, err)
	}

	var spec BatchSpec
	if err := unified.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode batch spec %s: %w", path, err)
	}
	if err := spec.check(); err != nil {
		return nil, fmt.Errorf("batch spec %s: %w", path, err)
	}
	return &spec, nil
}

// check enforces the policy/parameter pairings the schema alone cannot.
func (s *BatchSpec) check() error {
	switch s.Policy {
	case PolicyThreshold:
		// day_offset always has a default.
	case PolicyWindowMedian:
		if s.WindowDays <= 0 {
			return fmt.Errorf("policy %q requires window_days", s.Policy)
		}
	case PolicyMultiTier:
		if len(s.TierOffsets) == 0 {
			return fmt.Errorf("policy %q requires tier_offsets", s.Policy)
		}
	default:
		return fmt.Errorf("unknown policy %q", s.Policy)
	}

	if s.ReferenceDate != "" {
		if _, ok := ledger.ParseDate(s.ReferenceDate); !ok {
			return fmt.Errorf("unparseable reference_date %q", s.ReferenceDate)
		}
	} else if s.Accounts == nil {
		return fmt.Errorf("reference_date or accounts sheet required")
	}
	return nil
}

// OutputPath returns where the mutated workbook goes: the configured
// output, or the input file when none is set.
func (s *BatchSpec) OutputPath() string {
	if s.Output != "" {
		return s.Output
	}
	return s.Ledger.File
}
