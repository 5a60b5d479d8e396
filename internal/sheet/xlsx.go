// Package sheet adapts XLSX workbooks to the ledger model.
//
// Loading maps the note sheet's rows onto entries, reading per-cell
// presentation into value-semantic styles; saving writes the mutated ledger
// back, re-materializing styles. Unknown columns ride along untouched in
// both directions.
//
// Header matching is forgiving: names are NFC-normalized, trimmed and
// compared case-insensitively, so "note date " still binds the date column.
// The original header text is kept for display and as the presentation key.
package sheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/noteweave/noteweave/internal/ledger"
)

// Default sheet and column names, matching the source workbooks.
const (
	DefaultSheet         = "Note Activity"
	DefaultGroupColumn   = "Case"
	DefaultDateColumn    = "Note Date"
	DefaultContentColumn = "Note"

	DefaultAccountSheet      = "Account Activity"
	DefaultAccountDateColumn = "Queue In Date"
)

// Columns ensured on load so inserted entries have somewhere to land.
const (
	OriginColumn    = "File Name"
	ExampleIDColumn = "Example ID"
)

// Options selects the sheet and the schema columns within it.
// Zero fields take the defaults above.
type Options struct {
	Sheet         string
	GroupColumn   string
	DateColumn    string
	ContentColumn string
}

func (o Options) withDefaults() Options {
	if o.Sheet == "" {
		o.Sheet = DefaultSheet
	}
	if o.GroupColumn == "" {
		o.GroupColumn = DefaultGroupColumn
	}
	if o.DateColumn == "" {
		o.DateColumn = DefaultDateColumn
	}
	if o.ContentColumn == "" {
		o.ContentColumn = DefaultContentColumn
	}
	return o
}

// Load reads a ledger from the workbook at path.
//
// The group, date and content columns are required; a missing one returns a
// *ledger.SchemaError before anything else happens (all-or-nothing entry
// into the mutation phase). Every other column is passthrough.
func Load(path string, opts Options) (*ledger.Ledger, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", opts.Sheet, err)
	}
	if len(rows) == 0 {
		return nil, &ledger.SchemaError{Column: opts.GroupColumn, Sheet: opts.Sheet}
	}

	headers := rows[0]
	lookup := headerLookup(headers)

	groupIdx, ok := lookup[normalizeHeader(opts.GroupColumn)]
	if !ok {
		return nil, &ledger.SchemaError{Column: opts.GroupColumn, Sheet: opts.Sheet}
	}
	dateIdx, ok := lookup[normalizeHeader(opts.DateColumn)]
	if !ok {
		return nil, &ledger.SchemaError{Column: opts.DateColumn, Sheet: opts.Sheet}
	}
	contentIdx, ok := lookup[normalizeHeader(opts.ContentColumn)]
	if !ok {
		return nil, &ledger.SchemaError{Column: opts.ContentColumn, Sheet: opts.Sheet}
	}

	columns := make([]string, len(headers))
	copy(columns, headers)
	for _, extra := range []string{OriginColumn, ExampleIDColumn} {
		if _, ok := lookup[normalizeHeader(extra)]; !ok {
			lookup[normalizeHeader(extra)] = len(columns)
			columns = append(columns, extra)
		}
	}
	originIdx := lookup[normalizeHeader(OriginColumn)]

	led := ledger.New(columns, headers[contentIdx])

	for r, row := range rows[1:] {
		sheetRow := r + 2 // 1-based, after the header
		e := ledger.Entry{
			GroupKey: cellAt(row, groupIdx),
			Content:  cellAt(row, contentIdx),
		}
		if d, ok := ledger.ParseDate(cellAt(row, dateIdx)); ok {
			e.EffectiveDate = d
		}
		if originIdx < len(row) {
			e.OriginTag = row[originIdx]
		}

		for i, col := range columns {
			if i == groupIdx || i == dateIdx || i == contentIdx || i == originIdx {
				continue
			}
			if v := cellAt(row, i); v != "" {
				if e.Extra == nil {
					e.Extra = make(map[string]string)
				}
				e.Extra[col] = v
			}
		}

		pres, err := readPresentation(f, opts.Sheet, sheetRow, columns)
		if err != nil {
			return nil, err
		}
		e.Presentation = pres
		led.Entries = append(led.Entries, e)
	}

	return led, nil
}

// Save writes the ledger to path as a fresh workbook holding one sheet.
// The persistence step runs exactly once, on the fully mutated in-memory
// ledger; an interrupted batch leaves no partial state behind.
func Save(path string, led *ledger.Ledger, opts Options) error {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	const placeholder = "Sheet1"
	if opts.Sheet != placeholder {
		if _, err := f.NewSheet(opts.Sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", opts.Sheet, err)
		}
		if err := f.DeleteSheet(placeholder); err != nil {
			return fmt.Errorf("drop placeholder sheet: %w", err)
		}
	}

	lookup := headerLookup(led.Columns)
	groupIdx := lookup[normalizeHeader(opts.GroupColumn)]
	dateIdx := lookup[normalizeHeader(opts.DateColumn)]
	contentIdx := lookup[normalizeHeader(opts.ContentColumn)]
	originIdx, hasOrigin := lookup[normalizeHeader(OriginColumn)]

	for i, col := range led.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(opts.Sheet, cell, col); err != nil {
			return err
		}
	}

	styleIDs := make(map[ledger.Style]int)
	for r, e := range led.Entries {
		sheetRow := r + 2
		for i, col := range led.Columns {
			var value string
			switch {
			case i == groupIdx:
				value = e.GroupKey
			case i == dateIdx:
				if e.Dated() {
					value = e.EffectiveDate.Format(ledger.DateLayout)
				}
			case i == contentIdx:
				value = e.Content
			case hasOrigin && i == originIdx:
				value = e.OriginTag
			default:
				value = e.Extra[col]
			}

			cell, err := excelize.CoordinatesToCellName(i+1, sheetRow)
			if err != nil {
				return err
			}
			if value != "" {
				if err := f.SetCellValue(opts.Sheet, cell, value); err != nil {
					return err
				}
			}
			if st, ok := e.Presentation[col]; ok && !st.IsZero() {
				id, err := styleID(f, styleIDs, st)
				if err != nil {
					return err
				}
				if err := f.SetCellStyle(opts.Sheet, cell, cell, id); err != nil {
					return err
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// LoadGroupDates reads a group-key to reference-date map from an account
// sheet (e.g. Case to Queue In Date). Rows with unparseable dates are
// skipped, not fatal.
func LoadGroupDates(path, sheetName, groupColumn, dateColumn string) (map[string]time.Time, error) {
	if sheetName == "" {
		sheetName = DefaultAccountSheet
	}
	if groupColumn == "" {
		groupColumn = DefaultGroupColumn
	}
	if dateColumn == "" {
		dateColumn = DefaultAccountDateColumn
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, &ledger.SchemaError{Column: groupColumn, Sheet: sheetName}
	}

	lookup := headerLookup(rows[0])
	groupIdx, ok := lookup[normalizeHeader(groupColumn)]
	if !ok {
		return nil, &ledger.SchemaError{Column: groupColumn, Sheet: sheetName}
	}
	dateIdx, ok := lookup[normalizeHeader(dateColumn)]
	if !ok {
		return nil, &ledger.SchemaError{Column: dateColumn, Sheet: sheetName}
	}

	out := make(map[string]time.Time)
	for _, row := range rows[1:] {
		key := cellAt(row, groupIdx)
		if key == "" {
			continue
		}
		if d, ok := ledger.ParseDate(cellAt(row, dateIdx)); ok {
			out[key] = d
		}
	}
	return out, nil
}

func readPresentation(f *excelize.File, sheetName string, row int, columns []string) (ledger.Presentation, error) {
	var pres ledger.Presentation
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return nil, err
		}
		id, err := f.GetCellStyle(sheetName, cell)
		if err != nil {
			return nil, fmt.Errorf("read style of %s!%s: %w", sheetName, cell, err)
		}
		if id == 0 {
			continue
		}
		raw, err := f.GetStyle(id)
		if err != nil || raw == nil {
			continue // styles excelize cannot express are dropped, not fatal
		}
		st := fromExcelize(raw)
		if st.IsZero() {
			continue
		}
		if pres == nil {
			pres = ledger.Presentation{}
		}
		pres[col] = st
	}
	return pres, nil
}

func fromExcelize(raw *excelize.Style) ledger.Style {
	var st ledger.Style
	if raw.Fill.Type == "pattern" && len(raw.Fill.Color) > 0 {
		st.Fill = normalizeColor(raw.Fill.Color[0])
	}
	if raw.Font != nil {
		st.FontBold = raw.Font.Bold
		st.FontItalic = raw.Font.Italic
		st.FontColor = normalizeColor(raw.Font.Color)
	}
	return st
}

// normalizeColor reduces ARGB colors to the RGB hex form used by Style.
func normalizeColor(c string) string {
	c = strings.ToUpper(strings.TrimPrefix(c, "#"))
	if len(c) == 8 {
		c = c[2:] // drop the alpha channel
	}
	return c
}

func styleID(f *excelize.File, cache map[ledger.Style]int, st ledger.Style) (int, error) {
	if id, ok := cache[st]; ok {
		return id, nil
	}
	xs := &excelize.Style{}
	if st.Fill != "" {
		xs.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{st.Fill}}
	}
	if st.FontBold || st.FontItalic || st.FontColor != "" {
		xs.Font = &excelize.Font{Bold: st.FontBold, Italic: st.FontItalic, Color: st.FontColor}
	}
	id, err := f.NewStyle(xs)
	if err != nil {
		return 0, fmt.Errorf("materialize style: %w", err)
	}
	cache[st] = id
	return id, nil
}

func headerLookup(headers []string) map[string]int {
	lookup := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, exists := lookup[key]; !exists {
			lookup[key] = i
		}
	}
	return lookup
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(h)))
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
