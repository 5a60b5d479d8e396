package ledger

import (
	"fmt"
	"time"
)

// Ledger is the ordered sequence of entries being modified.
//
// Columns carries the full output header, including passthrough columns the
// engine never interprets. ContentColumn names the column whose style is
// overridden on insertion (the free-text payload).
type Ledger struct {
	Columns       []string
	ContentColumn string
	Entries       []Entry
}

// DefaultContentColumn is used when the caller does not name one.
const DefaultContentColumn = "Note"

// New creates an empty ledger with the given header.
func New(columns []string, contentColumn string) *Ledger {
	if contentColumn == "" {
		contentColumn = DefaultContentColumn
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Ledger{Columns: cols, ContentColumn: contentColumn}
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// InsertAt inserts e at index i, shifting all subsequent entries up by one.
// i is clamped to [0, Len()]; an out-of-range index never drops data.
func (l *Ledger) InsertAt(i int, e Entry) {
	if i < 0 {
		i = 0
	}
	if i > len(l.Entries) {
		i = len(l.Entries)
	}
	l.Entries = append(l.Entries, Entry{})
	copy(l.Entries[i+1:], l.Entries[i:])
	l.Entries[i] = e
}

// GroupBounds returns the first and last index holding the given group key.
// ok is false when the group does not appear in the ledger.
func (l *Ledger) GroupBounds(key string) (first, last int, ok bool) {
	first = -1
	for i, e := range l.Entries {
		if e.GroupKey != key {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return 0, 0, false
	}
	return first, last, true
}

// Clone returns a deep copy: entries, presentations and passthrough maps are
// all independent of the receiver.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	out := New(l.Columns, l.ContentColumn)
	out.Entries = make([]Entry, len(l.Entries))
	for i, e := range l.Entries {
		e.Presentation = e.Presentation.Clone()
		if e.Extra != nil {
			extra := make(map[string]string, len(e.Extra))
			for k, v := range e.Extra {
				extra[k] = v
			}
			e.Extra = extra
		}
		out.Entries[i] = e
	}
	return out
}

// Snapshot renders the ledger as a canonical-JSON-friendly map, used for
// golden comparisons and the audit trail. Dates are ISO formatted; the only
// presentation attribute surfaced is the content cell's fill, which is what
// distinguishes inserted rows.
func (l *Ledger) Snapshot() map[string]any {
	entries := make([]any, len(l.Entries))
	for i, e := range l.Entries {
		m := map[string]any{
			"group":   e.GroupKey,
			"content": e.Content,
		}
		if e.Dated() {
			m["date"] = e.EffectiveDate.Format(DateLayout)
		}
		if e.OriginTag != "" {
			m["origin"] = e.OriginTag
		}
		if st, ok := e.Presentation[l.ContentColumn]; ok && st.Fill != "" {
			m["fill"] = st.Fill
		}
		entries[i] = m
	}
	return map[string]any{"entries": entries}
}

// DateLayout is the canonical textual date form used on output.
const DateLayout = "2006-01-02"

// SchemaError reports a required column missing from an input sheet.
// Schema violations are fatal: inheritance and ordering cannot be defined
// without the group and date columns, so the batch aborts before mutation.
type SchemaError struct {
	Column string
	Sheet  string
}

func (e *SchemaError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("required column %q missing from sheet %q", e.Column, e.Sheet)
	}
	return fmt.Sprintf("required column %q missing", e.Column)
}

// Day truncates t to a UTC calendar date. All effective dates in the ledger
// are stored in this normalized form so date comparisons are exact.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
