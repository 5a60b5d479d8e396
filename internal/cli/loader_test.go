package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.cue")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadBatchSpec_DefaultsApply(t *testing.T) {
	path := writeSpec(t, `
policy:         "threshold"
reference_date: "2024-03-10"
sources:        "./candidates"
ledger: file: "notes.xlsx"
`)

	spec, err := LoadBatchSpec(path)
	require.NoError(t, err)

	assert.Equal(t, PolicyThreshold, spec.Policy)
	assert.Equal(t, 45, spec.DayOffset)
	assert.Equal(t, 0, spec.SampleSize)
	assert.Equal(t, int64(0), spec.RandomSeed)
	assert.Equal(t, "Note Activity", spec.Ledger.Sheet)
	assert.Equal(t, "Case", spec.Ledger.GroupColumn)
	assert.Equal(t, "Note Date", spec.Ledger.DateColumn)
	assert.Equal(t, "Note", spec.Ledger.ContentColumn)
	assert.Nil(t, spec.Accounts)
	assert.Equal(t, "notes.xlsx", spec.OutputPath(), "output defaults to the input file")
}

func TestLoadBatchSpec_FullSpec(t *testing.T) {
	path := writeSpec(t, `
policy:       "multi_tier"
tier_offsets: [30, 60, 90]
sample_size:  5
random_seed:  42
sources:      "./candidates"
ledger: {
	file:  "notes.xlsx"
	sheet: "Activity"
}
accounts: {}
output: "out.xlsx"
`)

	spec, err := LoadBatchSpec(path)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 60, 90}, spec.TierOffsets)
	assert.Equal(t, 5, spec.SampleSize)
	assert.Equal(t, int64(42), spec.RandomSeed)
	assert.Equal(t, "Activity", spec.Ledger.Sheet)
	require.NotNil(t, spec.Accounts)
	assert.Equal(t, "Account Activity", spec.Accounts.Sheet)
	assert.Equal(t, "Queue In Date", spec.Accounts.DateColumn)
	assert.Equal(t, "out.xlsx", spec.OutputPath())
}

func TestLoadBatchSpec_RejectsUnknownPolicy(t *testing.T) {
	path := writeSpec(t, `
policy:         "closest_match"
reference_date: "2024-03-10"
sources:        "./candidates"
ledger: file: "notes.xlsx"
`)

	_, err := LoadBatchSpec(path)
	assert.Error(t, err)
}

func TestLoadBatchSpec_WindowMedianRequiresWindow(t *testing.T) {
	path := writeSpec(t, `
policy:         "window_median"
reference_date: "2024-03-10"
sources:        "./candidates"
ledger: file: "notes.xlsx"
`)

	_, err := LoadBatchSpec(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window_days")
}

func TestLoadBatchSpec_MultiTierRequiresOffsets(t *testing.T) {
	path := writeSpec(t, `
policy:         "multi_tier"
reference_date: "2024-03-10"
sources:        "./candidates"
ledger: file: "notes.xlsx"
`)

	_, err := LoadBatchSpec(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier_offsets")
}

func TestLoadBatchSpec_RequiresSomeReference(t *testing.T) {
	path := writeSpec(t, `
policy:  "threshold"
sources: "./candidates"
ledger: file: "notes.xlsx"
`)

	_, err := LoadBatchSpec(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference_date or accounts")
}

func TestLoadBatchSpec_RejectsBadReferenceDate(t *testing.T) {
	path := writeSpec(t, `
policy:         "threshold"
reference_date: "not a date"
sources:        "./candidates"
ledger: file: "notes.xlsx"
`)

	_, err := LoadBatchSpec(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference_date")
}

func TestLoadBatchSpec_RejectsNegativeOffset(t *testing.T) {
	path := writeSpec(t, `
policy:         "threshold"
reference_date: "2024-03-10"
day_offset:     -3
sources:        "./candidates"
ledger: file: "notes.xlsx"
`)

	_, err := LoadBatchSpec(path)
	assert.Error(t, err)
}

func TestLoadBatchSpec_MissingFile(t *testing.T) {
	_, err := LoadBatchSpec(filepath.Join(t.TempDir(), "absent.cue"))
	assert.Error(t, err)
}
