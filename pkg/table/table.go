// Package table holds the tabular input of an analysis job: named columns and
// the raw string cells of every row, as read from an uploaded file.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Table struct {
	Columns []string
	Rows    [][]string
	// IDColumn names the column identifying the entity of a row. It is never
	// treated as a numeric feature.
	IDColumn string
}

// missingValues mirrors the markers spreadsheet and dataframe tools write for
// an absent value.
var missingValues = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"-":    {},
}

func New(columns []string, rows [][]string) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+1, len(row), len(columns))
		}
	}
	return &Table{Columns: dedupColumns(columns), Rows: rows}, nil
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func IsMissing(cell string) bool {
	_, ok := missingValues[strings.TrimSpace(cell)]
	return ok
}

// ParseFloat parses a numeric cell. Missing cells yield NaN and ok=true.
func ParseFloat(cell string) (float64, bool) {
	if IsMissing(cell) {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NumericColumns returns the names of the columns whose every present cell is
// a number, leaving out the id column. A column with no present cell at all
// counts as numeric.
func (t *Table) NumericColumns() []string {
	var numeric []string
	for i, name := range t.Columns {
		if name == t.IDColumn {
			continue
		}
		if t.isNumeric(i) {
			numeric = append(numeric, name)
		}
	}
	return numeric
}

func (t *Table) isNumeric(col int) bool {
	for _, row := range t.Rows {
		if _, ok := ParseFloat(row[col]); !ok {
			return false
		}
	}
	return true
}

// NumericMatrix returns the numeric columns and a row-major matrix of their
// values. Missing cells are NaN.
func (t *Table) NumericMatrix() ([]string, [][]float64) {
	columns := t.NumericColumns()
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
	}

	values := make([][]float64, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = make([]float64, len(idx))
		for c, i := range idx {
			values[r][c], _ = ParseFloat(row[i])
		}
	}
	return columns, values
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		rows[r] = make([]string, len(idx))
		for c, i := range idx {
			rows[r][c] = row[i]
		}
	}
	selected := &Table{Columns: append([]string(nil), columns...), Rows: rows}
	if t.IDColumn != "" && selected.ColumnIndex(t.IDColumn) >= 0 {
		selected.IDColumn = t.IDColumn
	}
	return selected, nil
}

// dedupColumns renames repeated headers to name.1, name.2, ...
func dedupColumns(columns []string) []string {
	seen := make(map[string]int, len(columns))
	out := make([]string, len(columns))
	for i, c := range columns {
		name := strings.TrimSpace(c)
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
