// Package policy implements the insertion-position selectors: the rule sets
// that map a reference date to an admissible slot in the live ledger.
//
// Three policies exist, selectable independently: threshold (fixed day
// offset cutoff), window-median (trailing window with a documented fallback
// chain), and multi-tier scored (prioritized day offsets with slot
// consumption). All policies share one tie-break rule: when several entries
// are equally good, the earliest ledger position wins, for determinism.
package policy

import (
	"errors"
	"time"

	"github.com/noteweave/noteweave/internal/ledger"
)

// ErrNoEligibleTarget reports that a policy found no admissible slot for a
// candidate. Non-fatal: the engine skips the candidate and continues.
var ErrNoEligibleTarget = errors.New("no eligible insertion target")

// Request carries the date context for placing one candidate.
type Request struct {
	// Reference is the date the policy measures against (e.g. the group's
	// queue-in date or the batch reference date).
	Reference time.Time

	// GroupKey restricts group-scoped policies to one case block.
	// Empty means the whole ledger.
	GroupKey string
}

// Placement is a selected insertion slot.
//
// Index is a position in the ledger as it exists at selection time: the new
// entry goes before the entry currently at Index.
type Placement struct {
	Index int

	// NoAnchor marks a slot with no dated predecessor to inherit from.
	// The engine stamps the entry with Date instead of inheriting.
	NoAnchor bool
	Date     time.Time
}

// Selector computes admissible insertion indices against the current ledger
// state. Implementations must always be queried against the live,
// already-shifted ledger, never a stale snapshot.
type Selector interface {
	// Select returns the slot for one candidate, or ErrNoEligibleTarget.
	Select(led *ledger.Ledger, req Request) (Placement, error)

	// ObserveInsert tells the selector an entry was inserted at index, so
	// any internal slot bookkeeping at or past it shifts up by one.
	// Stateless selectors may ignore it; they recompute from the live
	// ledger on every Select.
	ObserveInsert(index int)
}

// groupScan walks the entries of one group (or the whole ledger when key is
// empty) in position order, invoking fn with each index. fn returns false
// to stop early.
func groupScan(led *ledger.Ledger, key string, fn func(i int, e ledger.Entry) bool) {
	for i, e := range led.Entries {
		if key != "" && e.GroupKey != key {
			continue
		}
		if !fn(i, e) {
			return
		}
	}
}

// daysBetween returns the whole days from a to b (both normalized dates).
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
