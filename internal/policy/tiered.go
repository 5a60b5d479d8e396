package policy

import (
	"math"
	"sort"
	"time"

	"github.com/noteweave/noteweave/internal/ledger"
)

// DefaultTierWeight separates tier bands in the score space. It must exceed
// any plausible day distance within a tier so that tier priority dominates
// raw closeness.
const DefaultTierWeight = 1000

// Tiered ranks ledger slots by a multi-tier score and hands out slots in
// ascending score order, each slot usable at most once.
//
// Given day offsets sorted smallest-first (highest priority), an entry
// scores tierIndex*Weight + days(entryDate - tierTarget) against each tier
// whose target date it is on or after; its score is the minimum across
// tiers. Undated entries, and entries before every tier target, score
// +infinity and are never usable slots.
//
// Rankings are cached per (group key, reference date) context: each context
// is ranked once, against the ledger as it stands the first time a request
// for that context arrives, and consumes its own slots independently.
// Candidates from different groups therefore never starve each other.
// ObserveInsert keeps every context's remaining slot indices consistent as
// insertions shift the ledger.
type Tiered struct {
	Offsets []int // ascending day offsets; smallest = highest priority
	Weight  int

	slots map[tierContext][]int // remaining slot indices per context, best score first
}

// tierContext identifies one independent ranking: a group scope and the
// reference date its tier targets derive from.
type tierContext struct {
	group string
	ref   time.Time
}

// NewTiered creates a multi-tier selector. Offsets are deduplicated and
// sorted ascending so the smallest offset always forms tier 0.
func NewTiered(offsets []int) *Tiered {
	seen := make(map[int]bool, len(offsets))
	uniq := make([]int, 0, len(offsets))
	for _, o := range offsets {
		if !seen[o] {
			seen[o] = true
			uniq = append(uniq, o)
		}
	}
	sort.Ints(uniq)
	return &Tiered{Offsets: uniq, Weight: DefaultTierWeight}
}

type scoredSlot struct {
	score int
	index int
}

// Select implements Selector. Each call consumes the best remaining slot of
// the request's context.
func (t *Tiered) Select(led *ledger.Ledger, req Request) (Placement, error) {
	key := tierContext{group: req.GroupKey, ref: req.Reference}
	if t.slots == nil {
		t.slots = make(map[tierContext][]int)
	}
	slots, ok := t.slots[key]
	if !ok {
		slots = t.rank(led, req)
	}
	if len(slots) == 0 {
		t.slots[key] = slots
		return Placement{}, ErrNoEligibleTarget
	}
	t.slots[key] = slots[1:]
	return Placement{Index: slots[0]}, nil
}

// ObserveInsert implements Selector: in every context, remaining slots at or
// past the insertion point shift up by one so later candidates see a
// consistent view.
func (t *Tiered) ObserveInsert(index int) {
	for _, slots := range t.slots {
		for i, s := range slots {
			if s >= index {
				slots[i] = s + 1
			}
		}
	}
}

func (t *Tiered) rank(led *ledger.Ledger, req Request) []int {
	weight := t.Weight
	if weight <= 0 {
		weight = DefaultTierWeight
	}

	var scored []scoredSlot
	groupScan(led, req.GroupKey, func(i int, e ledger.Entry) bool {
		if !e.Dated() {
			return true
		}
		best := math.MaxInt
		for tier, offset := range t.Offsets {
			target := req.Reference.AddDate(0, 0, -offset)
			if e.EffectiveDate.Before(target) {
				continue // an entry only scores against tiers it is on or after
			}
			if s := tier*weight + daysBetween(target, e.EffectiveDate); s < best {
				best = s
			}
		}
		if best != math.MaxInt {
			scored = append(scored, scoredSlot{score: best, index: i})
		}
		return true
	})

	sort.Slice(scored, func(a, b int) bool {
		if scored[a].score != scored[b].score {
			return scored[a].score < scored[b].score
		}
		return scored[a].index < scored[b].index
	})

	slots := make([]int, len(scored))
	for i, s := range scored {
		slots[i] = s.index
	}
	return slots
}
