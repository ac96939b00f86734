package record

import (
	"fmt"

	"cutvalid/domain/delta"
	"cutvalid/internal/errors"
)

// Column names of the deviation table
const (
	ColDeltaC = "Delta-c"
	ColDeltaW = "Delta-w"
)

// CutColumn is the true-cut count column of bin b
func CutColumn(b int) string { return fmt.Sprintf("C%d", b) }

// ParColumn is the parametrised-cut count column of bin b
func ParColumn(b int) string { return fmt.Sprintf("P%d", b) }

// Table is a column-major numeric dataset with named columns.
type Table struct {
	columns []string
	index   map[string]int
	values  [][]float64
	rows    int
}

// NewTable builds a table from a header and row-major values
func NewTable(columns []string, rows [][]float64) (*Table, error) {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		values:  make([][]float64, len(columns)),
		rows:    len(rows),
	}
	for i, name := range columns {
		if name == "" {
			return nil, errors.MalformedInput("column %d has an empty name", i)
		}
		if _, dup := t.index[name]; dup {
			return nil, errors.MalformedInput("duplicate column %q", name)
		}
		t.index[name] = i
		t.values[i] = make([]float64, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.MalformedInput("row %d has %d values, header has %d columns", r, len(row), len(columns))
		}
		for c, v := range row {
			t.values[c][r] = v
		}
	}
	return t, nil
}

// Columns returns the column names in file order
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.rows
}

// Has reports whether the table has the named column
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.MalformedInput("missing column %q", name)
	}
	return append([]float64(nil), t.values[i]...), nil
}

// Value returns a single cell
func (t *Table) Value(row int, name string) (float64, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, errors.MalformedInput("missing column %q", name)
	}
	if row < 0 || row >= t.rows {
		return 0, errors.MalformedInput("row %d out of range [0,%d)", row, t.rows)
	}
	return t.values[i][row], nil
}

// Pairs returns the (Delta-c, Delta-w) pair of every row in row order
func (t *Table) Pairs() ([]delta.Pair, error) {
	dc, err := t.Column(ColDeltaC)
	if err != nil {
		return nil, err
	}
	dw, err := t.Column(ColDeltaW)
	if err != nil {
		return nil, err
	}
	pairs := make([]delta.Pair, t.rows)
	for i := range pairs {
		pairs[i] = delta.Pair{C: dc[i], W: dw[i]}
	}
	return pairs, nil
}
