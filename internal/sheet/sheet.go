// Package sheet turns raw spreadsheet rows into header-keyed records.
//
// A sheet exported by hand usually carries banner rows, blank lines and
// free-form headers. Normalize locates the first usable header row, derives
// stable keys from its cells and drops empty data rows.
package sheet

import (
	"regexp"
	"strings"
)

// minHeaderCells is the length a row needs to be taken as the header row.
const minHeaderCells = 3

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}]+`)
	nonWordChars  = regexp.MustCompile(`[^\w\s]`)
)

// Table is a normalized sheet. Headers has one entry per header cell; an
// empty entry marks a column that is ignored for every row.
type Table struct {
	Headers []string
	Rows    [][]any
}

// Record maps normalized header keys to the raw cell values of one row.
type Record map[string]any

// NormalizeHeader derives a field key from a header cell: lower-cased,
// whitespace runs collapsed to "_", non-word characters removed. An empty
// result means the column has no key.
func NormalizeHeader(cell any) string {
	raw := Text(cell)
	if raw == "" {
		return ""
	}
	key := strings.ToLower(raw)
	key = whitespaceRun.ReplaceAllString(key, "_")
	key = nonWordChars.ReplaceAllString(key, "")
	return strings.TrimSpace(key)
}

// Normalize returns nil when the sheet has fewer than two rows, no non-empty
// row to use as header, or no data left after dropping empty rows. The header
// is the first row with at least three cells; narrower sheets fall back to
// their first non-empty row.
func Normalize(rows [][]any) *Table {
	if len(rows) < 2 {
		return nil
	}

	headerIdx := -1
	for i, row := range rows {
		if len(row) >= minHeaderCells {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		for i, row := range rows {
			if !isEmptyRow(row) {
				headerIdx = i
				break
			}
		}
	}
	if headerIdx < 0 {
		return nil
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, cell := range rows[headerIdx] {
		headers[i] = NormalizeHeader(cell)
	}

	data := make([][]any, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}
		data = append(data, row)
	}
	if len(data) == 0 {
		return nil
	}

	return &Table{Headers: headers, Rows: data}
}

// FromStrings adapts string rows, as returned by workbook readers, to the
// generic cell representation.
func FromStrings(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}

// Record zips the header keys with the cells of row i. Later duplicate keys
// overwrite earlier ones.
func (t *Table) Record(i int) Record {
	row := t.Rows[i]
	rec := make(Record, len(t.Headers))
	for col, key := range t.Headers {
		if key == "" {
			continue
		}
		if col < len(row) {
			rec[key] = row[col]
		} else {
			rec[key] = nil
		}
	}
	return rec
}

func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Record(i)
	}
	return out
}

// Cell returns the cell at a fixed column position, or nil when the row is
// shorter.
func (t *Table) Cell(row int, col int) any {
	cells := t.Rows[row]
	if col < 0 || col >= len(cells) {
		return nil
	}
	return cells[col]
}

func (r Record) Text(key string) string {
	return Text(r[key])
}

// TrimmedText is Text with surrounding whitespace removed.
func (r Record) TrimmedText(key string) string {
	return strings.TrimSpace(Text(r[key]))
}

func isEmptyRow(row []any) bool {
	for _, cell := range row {
		if !isEmptyCell(cell) {
			return false
		}
	}
	return true
}

func isEmptyCell(cell any) bool {
	if cell == nil {
		return true
	}
	s, ok := cell.(string)
	return ok && s == ""
}
