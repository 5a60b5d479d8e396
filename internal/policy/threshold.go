package policy

import "github.com/noteweave/noteweave/internal/ledger"

// Threshold places a candidate before the first entry of its group dated at
// or after the cutoff (reference date minus a fixed day offset).
//
// Defaults, in order: no such entry but the group exists - append after the
// group's last entry; the group does not exist - append at ledger end; the
// ledger is empty - no eligible target.
type Threshold struct {
	OffsetDays int
}

// NewThreshold creates a threshold selector with the given cutoff offset.
func NewThreshold(offsetDays int) *Threshold {
	return &Threshold{OffsetDays: offsetDays}
}

// Select implements Selector.
func (t *Threshold) Select(led *ledger.Ledger, req Request) (Placement, error) {
	if led.Len() == 0 {
		return Placement{}, ErrNoEligibleTarget
	}

	_, last, ok := led.GroupBounds(req.GroupKey)
	if req.GroupKey != "" && !ok {
		return Placement{Index: led.Len()}, nil
	}
	if req.GroupKey == "" {
		last = led.Len() - 1
	}

	cutoff := req.Reference.AddDate(0, 0, -t.OffsetDays)
	target := -1
	groupScan(led, req.GroupKey, func(i int, e ledger.Entry) bool {
		if !e.Dated() {
			return true // undated rows are never anchors
		}
		if !e.EffectiveDate.Before(cutoff) {
			target = i
			return false // earliest position wins
		}
		return true
	})
	if target >= 0 {
		return Placement{Index: target}, nil
	}
	return Placement{Index: last + 1}, nil
}

// ObserveInsert implements Selector. Threshold holds no slot state; every
// Select recomputes against the live ledger.
func (t *Threshold) ObserveInsert(int) {}
