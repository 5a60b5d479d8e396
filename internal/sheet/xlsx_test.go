package sheet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noteweave/noteweave/internal/ledger"
)

// buildWorkbook writes a small Note Activity workbook for load tests.
func buildWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(DefaultSheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	rows := [][]any{
		{"Case", "Note Date ", "Note", "User"}, // trailing space on purpose
		{"7", "2024-01-01", "a", "smith"},
		{"7", "3/1/2024", "b", "jones"},
		{"9", "", "undated", ""},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(DefaultSheet, cell, v))
		}
	}

	// Bold font on B2's note cell, to be read back as presentation.
	id, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(DefaultSheet, "C2", "C2", id))

	_, err = f.NewSheet(DefaultAccountSheet)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(DefaultAccountSheet, "A1", "Case"))
	require.NoError(t, f.SetCellValue(DefaultAccountSheet, "B1", "Queue In Date"))
	require.NoError(t, f.SetCellValue(DefaultAccountSheet, "A2", "7"))
	require.NoError(t, f.SetCellValue(DefaultAccountSheet, "B2", "2024-03-10"))

	require.NoError(t, f.SaveAs(path))
}

func TestLoad_MapsSchemaAndPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_data.xlsx")
	buildWorkbook(t, path)

	led, err := Load(path, Options{})
	require.NoError(t, err)

	require.Equal(t, 3, led.Len())
	assert.Equal(t, "Note", led.ContentColumn)
	assert.Contains(t, led.Columns, OriginColumn, "origin column ensured on load")
	assert.Contains(t, led.Columns, ExampleIDColumn)

	a := led.Entries[0]
	assert.Equal(t, "7", a.GroupKey)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), a.EffectiveDate)
	assert.Equal(t, "a", a.Content)
	assert.Equal(t, "smith", a.Extra["User"], "unknown columns pass through")
	assert.True(t, a.Presentation["Note"].FontBold, "cell style read into presentation")

	b := led.Entries[1]
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), b.EffectiveDate, "slash format parsed")

	assert.False(t, led.Entries[2].Dated())
}

func TestLoad_MissingRequiredColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	_, err := f.NewSheet(DefaultSheet)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(DefaultSheet, "A1", "Case"))
	require.NoError(t, f.SetCellValue(DefaultSheet, "B1", "Note"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err = Load(path, Options{})
	var schemaErr *ledger.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, DefaultDateColumn, schemaErr.Column)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.xlsx")
	out := filepath.Join(dir, "out.xlsx")
	buildWorkbook(t, in)

	led, err := Load(in, Options{})
	require.NoError(t, err)

	// Simulate one inserted entry with the content-cell marker.
	led.InsertAt(1, ledger.Entry{
		GroupKey:      "7",
		EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Content:       "x",
		OriginTag:     "batchA",
		Presentation:  ledger.Presentation{"Note": {Fill: ledger.InsertedFill}},
	})

	require.NoError(t, Save(out, led, Options{}))

	back, err := Load(out, Options{})
	require.NoError(t, err)
	require.Equal(t, 4, back.Len())

	inserted := back.Entries[1]
	assert.Equal(t, "x", inserted.Content)
	assert.Equal(t, "batchA", inserted.OriginTag)
	assert.Equal(t, "7", inserted.GroupKey)
	assert.Equal(t, ledger.InsertedFill, inserted.Presentation["Note"].Fill)

	assert.Equal(t, "smith", back.Entries[0].Extra["User"], "passthrough survives the round trip")
	assert.True(t, back.Entries[0].Presentation["Note"].FontBold)
}

func TestLoadGroupDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_data.xlsx")
	buildWorkbook(t, path)

	dates, err := LoadGroupDates(path, "", "", "")
	require.NoError(t, err)
	assert.Equal(t,
		map[string]time.Time{"7": time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)},
		dates)
}
