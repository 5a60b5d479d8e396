package engine

import "github.com/noteweave/noteweave/internal/ledger"

// InheritPresentation builds the presentation for an entry being inserted
// at index: a value-copy of the full attribute set of the entry at index-1
// (empty when inserting at position 0), with only the content column's fill
// overridden by the inserted-note marker.
//
// The override is selective on purpose. Inherited attributes on every other
// column - and the content column's own font attributes - pass through
// untouched; only the fill changes.
func InheritPresentation(led *ledger.Ledger, index int) ledger.Presentation {
	var p ledger.Presentation
	if index > 0 && index <= led.Len() {
		p = led.Entries[index-1].Presentation.Clone()
	}
	if p == nil {
		p = ledger.Presentation{}
	}

	st := p[led.ContentColumn]
	st.Fill = ledger.InsertedFill
	p[led.ContentColumn] = st
	return p
}
