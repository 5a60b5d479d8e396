// Package harness replays declarative insertion scenarios against golden
// snapshots. Each scenario is a YAML file pairing a small ledger and
// candidate set with a policy; the outcome is canonical JSON, so a golden
// mismatch pins down exactly which entry moved.
package harness

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noteweave/noteweave/internal/engine"
	"github.com/noteweave/noteweave/internal/ledger"
	"github.com/noteweave/noteweave/internal/policy"
)

// PolicySpec selects and parameterizes the position selector.
type PolicySpec struct {
	Kind        string `yaml:"kind"`
	DayOffset   int    `yaml:"day_offset"`
	WindowDays  int    `yaml:"window_days"`
	TierOffsets []int  `yaml:"tier_offsets"`
}

// Row is one pre-existing ledger entry.
type Row struct {
	Group   string `yaml:"group"`
	Date    string `yaml:"date"`
	Content string `yaml:"content"`
	Origin  string `yaml:"origin"`
	Fill    string `yaml:"fill"`
}

// CandidateSpec is one candidate to insert.
type CandidateSpec struct {
	ID      string `yaml:"id"`
	Origin  string `yaml:"origin"`
	Content string `yaml:"content"`
	Group   string `yaml:"group"`
}

// Scenario is a full declarative insertion case.
type Scenario struct {
	Name       string          `yaml:"name"`
	Policy     PolicySpec      `yaml:"policy"`
	Reference  string          `yaml:"reference"`
	Today      string          `yaml:"today"` // pins the no-anchor fallback date
	Seed       int64           `yaml:"seed"`
	SampleSize int             `yaml:"sample_size"`
	Shuffle    bool            `yaml:"shuffle"`
	Rows       []Row           `yaml:"rows"`
	Candidates []CandidateSpec `yaml:"candidates"`
}

// LoadScenario reads one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	return &s, nil
}

// Run executes the scenario and returns the canonical outcome bytes:
// the final ledger snapshot plus placed/unplaced counts.
func (s *Scenario) Run() ([]byte, error) {
	led, err := s.buildLedger()
	if err != nil {
		return nil, err
	}
	sel, err := s.buildSelector()
	if err != nil {
		return nil, err
	}
	batch, err := s.buildBatch()
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithSampleSize(s.SampleSize)}
	if !s.Shuffle {
		opts = append(opts, engine.WithoutShuffle())
	}
	eng := engine.New(sel, s.Seed, opts...)

	res, err := eng.InsertBatch(led, batch)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	snap := led.Snapshot()
	snap["placed"] = res.Placed
	snap["unplaced"] = res.Unplaced
	return ledger.MarshalCanonical(snap)
}

func (s *Scenario) buildLedger() (*ledger.Ledger, error) {
	led := ledger.New([]string{"Case", "Note Date", "Note"}, "Note")
	for i, row := range s.Rows {
		e := ledger.Entry{
			GroupKey:  row.Group,
			Content:   row.Content,
			OriginTag: row.Origin,
		}
		if row.Date != "" {
			d, ok := ledger.ParseDate(row.Date)
			if !ok {
				return nil, fmt.Errorf("scenario %s: row %d: bad date %q", s.Name, i, row.Date)
			}
			e.EffectiveDate = d
		}
		if row.Fill != "" {
			e.Presentation = ledger.Presentation{"Note": {Fill: row.Fill}}
		}
		led.Entries = append(led.Entries, e)
	}
	return led, nil
}

func (s *Scenario) buildSelector() (policy.Selector, error) {
	switch s.Policy.Kind {
	case "threshold":
		return policy.NewThreshold(s.Policy.DayOffset), nil
	case "window_median":
		w := &policy.WindowMedian{
			WindowDays: s.Policy.WindowDays,
			OffsetDays: s.Policy.DayOffset,
		}
		if s.Today != "" {
			today, ok := ledger.ParseDate(s.Today)
			if !ok {
				return nil, fmt.Errorf("scenario %s: bad today %q", s.Name, s.Today)
			}
			w.Now = func() time.Time { return today }
		}
		return w, nil
	case "multi_tier":
		return policy.NewTiered(s.Policy.TierOffsets), nil
	default:
		return nil, fmt.Errorf("scenario %s: unknown policy %q", s.Name, s.Policy.Kind)
	}
}

func (s *Scenario) buildBatch() (engine.Batch, error) {
	batch := engine.Batch{}
	if s.Reference != "" {
		ref, ok := ledger.ParseDate(s.Reference)
		if !ok {
			return engine.Batch{}, fmt.Errorf("scenario %s: bad reference %q", s.Name, s.Reference)
		}
		batch.Reference = ref
	}
	for _, c := range s.Candidates {
		batch.Candidates = append(batch.Candidates, ledger.Candidate{
			ID:           c.ID,
			OriginTag:    c.Origin,
			Content:      c.Content,
			SuggestedKey: c.Group,
		})
	}
	return batch, nil
}
