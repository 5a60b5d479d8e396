// Package ledger defines the data model for the note ledger: ordered,
// dated entries grouped by case, plus the candidate records proposed for
// insertion.
//
// The ledger is a plain ordered sequence. Position encodes relative
// chronology; entries with a missing effective date may appear anywhere but
// are never used as insertion anchors. Insertion only ever adds rows - it
// never removes or reorders pre-existing entries.
//
// Presentation attributes are value objects. Inheriting a row's presentation
// always clones it; two rows never share a style by reference, so a later
// override on one row cannot corrupt another.
package ledger
