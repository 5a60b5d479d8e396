package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiered_TierPriorityDominatesDistance(t *testing.T) {
	// Offsets [10, 20] against reference 2024-03-30: tier-0 target is
	// 2024-03-20, tier-1 target 2024-03-10. An entry exactly at the tier-0
	// target scores 0; an entry 5 days after the tier-1 target (and before
	// tier-0's) scores 1*1000+5. Tier priority wins over raw distance.
	ref := date(2024, time.March, 30)
	led := caseLedger(
		entry("7", date(2024, time.March, 15), "tier1 plus 5"),
		entry("7", date(2024, time.March, 20), "tier0 exact"),
	)
	sel := NewTiered([]int{10, 20})

	pl, err := sel.Select(led, Request{Reference: ref})
	require.NoError(t, err)
	assert.Equal(t, 1, pl.Index, "tier-0 exact match outranks the closer tier-1 entry")

	pl, err = sel.Select(led, Request{Reference: ref})
	require.NoError(t, err)
	assert.Equal(t, 0, pl.Index)
}

func TestTiered_MinimumScoreAcrossTiers(t *testing.T) {
	// An entry at or after several tier targets keeps its best (lowest)
	// score: here the entry is 3 days past tier-0's target, which beats
	// its 1000+13 score against tier-1.
	ref := date(2024, time.March, 30)
	led := caseLedger(
		entry("7", date(2024, time.March, 23), "a"),
		entry("7", date(2024, time.March, 28), "b"),
	)
	sel := NewTiered([]int{10, 20})

	pl, err := sel.Select(led, Request{Reference: ref})
	require.NoError(t, err)
	assert.Equal(t, 0, pl.Index, "3 days past tier-0 beats 8 days past tier-0")
}

func TestTiered_TieBreakEarliestPosition(t *testing.T) {
	ref := date(2024, time.March, 30)
	led := caseLedger(
		entry("7", date(2024, time.March, 20), "first"),
		entry("9", date(2024, time.March, 20), "second"),
	)
	sel := NewTiered([]int{10})

	pl, err := sel.Select(led, Request{Reference: ref})
	require.NoError(t, err)
	assert.Equal(t, 0, pl.Index)
}

func TestTiered_SlotsConsumedOnce(t *testing.T) {
	ref := date(2024, time.March, 30)
	led := caseLedger(
		entry("7", date(2024, time.March, 20), "only slot"),
		entry("7", time.Time{}, "undated"),
	)
	sel := NewTiered([]int{10})

	_, err := sel.Select(led, Request{Reference: ref})
	require.NoError(t, err)

	_, err = sel.Select(led, Request{Reference: ref})
	assert.ErrorIs(t, err, ErrNoEligibleTarget, "the single slot is used up")
}

func TestTiered_AllUnscoreable_NoTarget(t *testing.T) {
	ref := date(2024, time.March, 30)
	led := caseLedger(
		entry("7", time.Time{}, "undated"),
		entry("7", date(2024, time.January, 1), "before every tier target"),
	)
	sel := NewTiered([]int{10, 20})

	_, err := sel.Select(led, Request{Reference: ref})
	assert.ErrorIs(t, err, ErrNoEligibleTarget)
}

func TestTiered_ObserveInsertShiftsRemainingSlots(t *testing.T) {
	ref := date(2024, time.March, 30)
	led := caseLedger(
		entry("7", date(2024, time.March, 20), "best"),   // score 0
		entry("7", date(2024, time.March, 22), "second"), // score 2
	)
	sel := NewTiered([]int{10})

	pl, err := sel.Select(led, Request{Reference: ref})
	require.NoError(t, err)
	require.Equal(t, 0, pl.Index)
	sel.ObserveInsert(pl.Index)

	// The remaining slot pointed at index 1 pre-insert; after the insert
	// at 0 it must have shifted to 2.
	pl, err = sel.Select(led, Request{Reference: ref})
	require.NoError(t, err)
	assert.Equal(t, 2, pl.Index)
}

func TestTiered_RanksEachGroupIndependently(t *testing.T) {
	// Candidates scoped to different groups must not share one ranking:
	// group 9 holds a finitely-scored entry, so a request for it has to
	// succeed even after group 7's slots are consumed.
	ref := date(2024, time.March, 30)
	led := caseLedger(
		entry("7", date(2024, time.March, 20), "g7 note"),
		entry("9", date(2024, time.March, 21), "g9 note"),
	)
	sel := NewTiered([]int{10})

	pl, err := sel.Select(led, Request{Reference: ref, GroupKey: "7"})
	require.NoError(t, err)
	require.Equal(t, 0, pl.Index)
	led.InsertAt(pl.Index, entry("7", date(2024, time.March, 20), "inserted"))
	sel.ObserveInsert(pl.Index)

	// Group 9's ranking forms against the shifted ledger: its entry moved
	// from index 1 to 2.
	pl, err = sel.Select(led, Request{Reference: ref, GroupKey: "9"})
	require.NoError(t, err)
	assert.Equal(t, 2, pl.Index)

	_, err = sel.Select(led, Request{Reference: ref, GroupKey: "7"})
	assert.ErrorIs(t, err, ErrNoEligibleTarget, "group 7's only slot is spent")
	_, err = sel.Select(led, Request{Reference: ref, GroupKey: "9"})
	assert.ErrorIs(t, err, ErrNoEligibleTarget, "group 9's only slot is spent")
}

func TestTiered_DistinctReferencesRankSeparately(t *testing.T) {
	// The same group under two reference dates forms two rankings: an entry
	// unusable against one reference can still anchor the other.
	led := caseLedger(
		entry("7", date(2024, time.March, 15), "only note"),
	)
	sel := NewTiered([]int{10})

	// Reference 2024-03-30 targets 2024-03-20; the entry is before it.
	_, err := sel.Select(led, Request{Reference: date(2024, time.March, 30), GroupKey: "7"})
	assert.ErrorIs(t, err, ErrNoEligibleTarget)

	// Reference 2024-03-20 targets 2024-03-10; the entry scores 5.
	pl, err := sel.Select(led, Request{Reference: date(2024, time.March, 20), GroupKey: "7"})
	require.NoError(t, err)
	assert.Equal(t, 0, pl.Index)
}

func TestNewTiered_SortsAndDeduplicates(t *testing.T) {
	sel := NewTiered([]int{45, 10, 45, 20})
	assert.Equal(t, []int{10, 20, 45}, sel.Offsets)
}
