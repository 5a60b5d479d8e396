package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/noteweave/noteweave/internal/ledger"
	"github.com/noteweave/noteweave/internal/policy"
)

// ErrNilLedger is returned when InsertBatch is handed no ledger to mutate.
var ErrNilLedger = errors.New("nil ledger")

// Batch is one set of candidates plus the date context they are placed
// against.
type Batch struct {
	Candidates []ledger.Candidate

	// Reference is the batch-level reference date.
	Reference time.Time

	// GroupDates optionally maps group keys to per-group reference dates
	// (queue-in dates). A candidate with a suggested key resolves through
	// this map first, then falls back to Reference.
	GroupDates map[string]time.Time
}

// Reason codes recorded for unplaced candidates.
const (
	ReasonNoTarget    = "no_eligible_target"
	ReasonNoReference = "no_reference_date"
)

// PlacementRecord is the audit record for one candidate.
type PlacementRecord struct {
	CandidateID string
	OriginTag   string
	GroupKey    string // inherited group key; empty when unplaced
	Position    int    // final insertion index; -1 when unplaced
	Seq         int64
	Placed      bool
	Reason      string // set when unplaced
}

// Result reports the outcome of one batch.
type Result struct {
	Placed   int
	Unplaced int
	Records  []PlacementRecord
}

// Engine applies candidate batches to a ledger under a position selector.
// An Engine is single-use per batch ordering concerns but carries no ledger
// state of its own; the same engine may run several batches sequentially.
type Engine struct {
	selector   policy.Selector
	rng        *rand.Rand
	clock      *Clock
	sampleSize int
	shuffle    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleSize caps the candidates drawn per origin tag. Zero means
// exhaustive insertion (no sampling).
func WithSampleSize(n int) Option {
	return func(e *Engine) { e.sampleSize = n }
}

// WithoutShuffle keeps the candidate order as supplied. Mostly for tests
// that need positional assertions independent of the seed.
func WithoutShuffle() Option {
	return func(e *Engine) { e.shuffle = false }
}

// WithClock supplies a pre-positioned clock, e.g. to continue a sequence
// across batches.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an Engine. The seed fully determines candidate sampling and
// shuffle order: the same seed and inputs reproduce the same ledger.
func New(sel policy.Selector, seed int64, opts ...Option) *Engine {
	e := &Engine{
		selector: sel,
		rng:      rand.New(rand.NewSource(seed)),
		clock:    NewClock(),
		shuffle:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InsertBatch applies the batch to the ledger in place and returns the
// placement outcome. The ledger mutates as the loop runs; the selector is
// queried against the current state for every candidate and told about each
// insert so its bookkeeping stays consistent.
//
// An empty batch or empty ledger is a no-op, reported, not an error.
func (e *Engine) InsertBatch(led *ledger.Ledger, batch Batch) (*Result, error) {
	if led == nil {
		return nil, ErrNilLedger
	}

	candidates := e.draw(batch.Candidates)
	res := &Result{Records: make([]PlacementRecord, 0, len(candidates))}

	if len(candidates) == 0 {
		slog.Info("empty candidate batch, nothing to insert")
		return res, nil
	}

	for _, c := range candidates {
		rec := PlacementRecord{
			CandidateID: c.ID,
			OriginTag:   c.OriginTag,
			Position:    -1,
			Seq:         e.clock.Next(),
		}

		ref, ok := referenceFor(c, batch)
		if !ok {
			rec.Reason = ReasonNoReference
			res.Unplaced++
			res.Records = append(res.Records, rec)
			slog.Warn("candidate skipped: no reference date",
				"candidate", c.ID, "origin", c.OriginTag, "group", c.SuggestedKey)
			continue
		}

		pl, err := e.selector.Select(led, policy.Request{Reference: ref, GroupKey: c.SuggestedKey})
		if err != nil {
			if !errors.Is(err, policy.ErrNoEligibleTarget) {
				return nil, fmt.Errorf("select target for candidate %s: %w", c.ID, err)
			}
			rec.Reason = ReasonNoTarget
			res.Unplaced++
			res.Records = append(res.Records, rec)
			slog.Warn("candidate skipped: no eligible target",
				"candidate", c.ID, "origin", c.OriginTag, "group", c.SuggestedKey)
			continue
		}

		entry := e.buildEntry(led, c, pl)
		led.InsertAt(pl.Index, entry)
		e.selector.ObserveInsert(pl.Index)

		rec.GroupKey = entry.GroupKey
		rec.Position = pl.Index
		rec.Placed = true
		res.Placed++
		res.Records = append(res.Records, rec)

		slog.Debug("candidate placed",
			"candidate", c.ID,
			"origin", c.OriginTag,
			"group", entry.GroupKey,
			"position", pl.Index,
			"seq", rec.Seq,
		)
	}

	slog.Info("batch applied", "placed", res.Placed, "unplaced", res.Unplaced)
	return res, nil
}

// buildEntry constructs the inserted entry: group key and effective date
// inherited from the entry immediately preceding the slot (or stamped from
// the placement when it carries no anchor), content and origin from the
// candidate, presentation via the style inheritor.
func (e *Engine) buildEntry(led *ledger.Ledger, c ledger.Candidate, pl policy.Placement) ledger.Entry {
	entry := ledger.Entry{
		Content:   c.Content,
		OriginTag: c.OriginTag,
	}

	switch {
	case pl.NoAnchor:
		entry.GroupKey = c.SuggestedKey
		entry.EffectiveDate = pl.Date
	case pl.Index > 0:
		anchor := led.Entries[pl.Index-1]
		entry.GroupKey = anchor.GroupKey
		entry.EffectiveDate = anchor.EffectiveDate
	}
	// At position 0 with no anchor data the fields stay null.

	entry.Presentation = InheritPresentation(led, pl.Index)
	return entry
}

// draw samples per origin tag when a sample size is configured, then
// shuffles the combined order. Both steps use the engine's seeded RNG, so
// the result is reproducible. Tag iteration is sorted to keep the RNG
// stream independent of map order.
func (e *Engine) draw(candidates []ledger.Candidate) []ledger.Candidate {
	out := candidates
	if e.sampleSize > 0 {
		byTag := make(map[string][]ledger.Candidate)
		tags := make([]string, 0)
		for _, c := range candidates {
			if _, seen := byTag[c.OriginTag]; !seen {
				tags = append(tags, c.OriginTag)
			}
			byTag[c.OriginTag] = append(byTag[c.OriginTag], c)
		}
		sort.Strings(tags)

		out = make([]ledger.Candidate, 0, len(candidates))
		for _, tag := range tags {
			group := byTag[tag]
			if len(group) > e.sampleSize {
				e.rng.Shuffle(len(group), func(i, j int) {
					group[i], group[j] = group[j], group[i]
				})
				group = group[:e.sampleSize]
			}
			out = append(out, group...)
		}
	} else {
		out = make([]ledger.Candidate, len(candidates))
		copy(out, candidates)
	}

	if e.shuffle {
		e.rng.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}
	return out
}

func referenceFor(c ledger.Candidate, batch Batch) (time.Time, bool) {
	if c.SuggestedKey != "" {
		if d, ok := batch.GroupDates[c.SuggestedKey]; ok && !d.IsZero() {
			return d, true
		}
	}
	if !batch.Reference.IsZero() {
		return batch.Reference, true
	}
	return time.Time{}, false
}
