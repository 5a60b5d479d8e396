package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger() *Ledger {
	l := New([]string{"Case", "Note Date", "Note"}, "Note")
	l.Entries = []Entry{
		{GroupKey: "7", EffectiveDate: date(2024, time.January, 1), Content: "a"},
		{GroupKey: "7", EffectiveDate: date(2024, time.March, 1), Content: "b"},
		{GroupKey: "9", EffectiveDate: date(2024, time.February, 10), Content: "c"},
	}
	return l
}

func TestInsertAt_ShiftsWithoutReordering(t *testing.T) {
	l := testLedger()
	l.InsertAt(1, Entry{GroupKey: "7", Content: "x"})

	require.Equal(t, 4, l.Len())
	got := make([]string, 0, 4)
	for _, e := range l.Entries {
		got = append(got, e.Content)
	}
	assert.Equal(t, []string{"a", "x", "b", "c"}, got)
}

func TestInsertAt_ClampsOutOfRange(t *testing.T) {
	l := testLedger()
	l.InsertAt(-3, Entry{Content: "front"})
	l.InsertAt(99, Entry{Content: "back"})

	assert.Equal(t, "front", l.Entries[0].Content)
	assert.Equal(t, "back", l.Entries[l.Len()-1].Content)
}

func TestGroupBounds(t *testing.T) {
	l := testLedger()

	first, last, ok := l.GroupBounds("7")
	require.True(t, ok)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, last)

	_, _, ok = l.GroupBounds("42")
	assert.False(t, ok)
}

func TestPresentationClone_ValueSemantics(t *testing.T) {
	orig := Presentation{"Note": {FontBold: true}}
	clone := orig.Clone()
	clone["Note"] = Style{Fill: InsertedFill}

	assert.True(t, orig["Note"].FontBold, "mutating the clone must not touch the original")
	assert.Empty(t, orig["Note"].Fill)
	assert.Nil(t, Presentation(nil).Clone())
}

func TestClone_DeepCopies(t *testing.T) {
	l := testLedger()
	l.Entries[0].Presentation = Presentation{"Note": {FontItalic: true}}
	l.Entries[0].Extra = map[string]string{"User": "smith"}

	c := l.Clone()
	c.Entries[0].Presentation["Note"] = Style{Fill: "FF0000"}
	c.Entries[0].Extra["User"] = "jones"
	c.InsertAt(0, Entry{Content: "new"})

	assert.Equal(t, Style{FontItalic: true}, l.Entries[0].Presentation["Note"])
	assert.Equal(t, "smith", l.Entries[0].Extra["User"])
	assert.Equal(t, 3, l.Len())
}

func TestSchemaError_Message(t *testing.T) {
	err := &SchemaError{Column: "Note Date", Sheet: "Note Activity"}
	assert.EqualError(t, err, `required column "Note Date" missing from sheet "Note Activity"`)
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	v := map[string]any{
		"entries": []any{
			map[string]any{"group": "7", "content": "a", "date": "2024-01-01"},
		},
		"placed": 1,
	}
	got, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"entries":[{"content":"a","date":"2024-01-01","group":"7"}],"placed":1}`,
		string(got))

	again, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"score": 1.5})
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	l := testLedger()
	l.Entries[1].OriginTag = "batchA"
	l.Entries[1].Presentation = Presentation{"Note": {Fill: InsertedFill}}

	snap := l.Snapshot()
	entries, ok := snap["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 3)

	row := entries[1].(map[string]any)
	assert.Equal(t, "batchA", row["origin"])
	assert.Equal(t, InsertedFill, row["fill"])
	assert.Equal(t, "2024-03-01", row["date"])

	first := entries[0].(map[string]any)
	_, hasFill := first["fill"]
	assert.False(t, hasFill)
}
