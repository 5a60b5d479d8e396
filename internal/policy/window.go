package policy

import (
	"sort"
	"time"

	"github.com/noteweave/noteweave/internal/ledger"
)

// WindowMedian anchors on the date-order median of the entries falling in a
// fixed trailing window before the reference date.
//
// Fallback chain when the window is empty, each step tried in order:
//  1. the threshold cutoff (reference minus OffsetDays, first entry at or
//     after it),
//  2. the median of all dated entries in the group,
//  3. append at ledger end with today's date and no anchor.
type WindowMedian struct {
	WindowDays int
	OffsetDays int // cutoff offset for fallback step 1

	// Now supplies "today" for the terminal fallback. Defaults to
	// time.Now; tests pin it for determinism.
	Now func() time.Time
}

// NewWindowMedian creates a window-median selector.
func NewWindowMedian(windowDays, offsetDays int) *WindowMedian {
	return &WindowMedian{WindowDays: windowDays, OffsetDays: offsetDays}
}

type datedIndex struct {
	index int
	date  time.Time
}

// Select implements Selector.
func (w *WindowMedian) Select(led *ledger.Ledger, req Request) (Placement, error) {
	windowStart := req.Reference.AddDate(0, 0, -w.WindowDays)

	var inWindow []datedIndex
	groupScan(led, req.GroupKey, func(i int, e ledger.Entry) bool {
		if !e.Dated() {
			return true
		}
		d := e.EffectiveDate
		if !d.Before(windowStart) && !d.After(req.Reference) {
			inWindow = append(inWindow, datedIndex{index: i, date: d})
		}
		return true
	})
	if len(inWindow) > 0 {
		return Placement{Index: medianIndex(inWindow)}, nil
	}

	// Fallback 1: threshold cutoff.
	cutoff := req.Reference.AddDate(0, 0, -w.OffsetDays)
	target := -1
	groupScan(led, req.GroupKey, func(i int, e ledger.Entry) bool {
		if e.Dated() && !e.EffectiveDate.Before(cutoff) {
			target = i
			return false
		}
		return true
	})
	if target >= 0 {
		return Placement{Index: target}, nil
	}

	// Fallback 2: median of all dated entries in the group.
	var allDated []datedIndex
	groupScan(led, req.GroupKey, func(i int, e ledger.Entry) bool {
		if e.Dated() {
			allDated = append(allDated, datedIndex{index: i, date: e.EffectiveDate})
		}
		return true
	})
	if len(allDated) > 0 {
		return Placement{Index: medianIndex(allDated)}, nil
	}

	// Fallback 3: today's date, no anchor.
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return Placement{Index: led.Len(), NoAnchor: true, Date: ledger.Day(now())}, nil
}

// ObserveInsert implements Selector. Stateless, like Threshold.
func (w *WindowMedian) ObserveInsert(int) {}

// medianIndex returns the ledger position of the date-order median entry.
// Sorting breaks date ties by position, so equal dates resolve to the
// earliest row.
func medianIndex(entries []datedIndex) int {
	sort.Slice(entries, func(a, b int) bool {
		if !entries[a].date.Equal(entries[b].date) {
			return entries[a].date.Before(entries[b].date)
		}
		return entries[a].index < entries[b].index
	})
	return entries[len(entries)/2].index
}
