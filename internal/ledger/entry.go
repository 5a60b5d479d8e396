package ledger

import (
	"time"

	"github.com/google/uuid"
)

// InsertedFill is the fill color marking the content cell of an inserted
// entry (light yellow). Only the content column receives it; every other
// attribute is inherited from the anchor row untouched.
const InsertedFill = "FFFACD"

// Style holds the presentation attributes of a single cell.
//
// Style is a comparable value type: copy it by assignment, never share it
// by pointer. The zero value means "no explicit formatting".
type Style struct {
	Fill       string // RGB hex fill color, "" = none
	FontBold   bool
	FontItalic bool
	FontColor  string // RGB hex font color, "" = default
}

// IsZero reports whether the style carries no explicit formatting.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Presentation maps column names to cell styles for one row.
type Presentation map[string]Style

// Clone returns an independent copy of the presentation.
// Returns nil for a nil receiver.
func (p Presentation) Clone() Presentation {
	if p == nil {
		return nil
	}
	out := make(Presentation, len(p))
	for col, st := range p {
		out[col] = st
	}
	return out
}

// Entry is one row of the ledger.
//
// A zero EffectiveDate means the row is undated: it is carried through the
// pipeline untouched but never considered as an insertion anchor.
type Entry struct {
	GroupKey      string
	EffectiveDate time.Time
	Content       string
	OriginTag     string // batch label; empty on original rows
	Presentation  Presentation
	Extra         map[string]string // passthrough columns, preserved verbatim
}

// Dated reports whether the entry has a usable effective date.
func (e Entry) Dated() bool {
	return !e.EffectiveDate.IsZero()
}

// Candidate is one record proposed for insertion. Candidates are read-only:
// produced once by a source, consumed exactly once by the engine.
type Candidate struct {
	ID           string
	OriginTag    string
	Content      string
	SuggestedKey string // group key hint; resolves the reference date per group
}

// NewCandidateID returns a time-ordered unique candidate ID.
func NewCandidateID() string {
	return uuid.Must(uuid.NewV7()).String()
}
