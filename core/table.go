package core

import "sort"

// Table is one tabular buffer: an ordered column list plus rows keyed by
// column name, the same row shape database/sql scans produce.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// InsertColumn adds a column at position pos with one value per row.
// Values beyond len(t.Rows) are ignored; missing values are nil.
func (t *Table) InsertColumn(pos int, name string, values []any) {
	if pos < 0 || pos > len(t.Columns) {
		pos = len(t.Columns)
	}
	t.Columns = append(t.Columns[:pos], append([]string{name}, t.Columns[pos:]...)...)
	for i, row := range t.Rows {
		if i < len(values) {
			row[name] = values[i]
		} else {
			row[name] = nil
		}
	}
}

func (t *Table) AppendColumn(name string, values []any) {
	t.InsertColumn(len(t.Columns), name, values)
}

func (t *Table) DropColumn(name string) {
	cols := t.Columns[:0]
	for _, c := range t.Columns {
		if c != name {
			cols = append(cols, c)
		}
	}
	t.Columns = cols
	for _, row := range t.Rows {
		delete(row, name)
	}
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	vals := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		vals[i] = row[name]
	}
	return vals
}

// Bundle is the named output of one stacking job: stacked data tables,
// metadata tables, and text artifacts (readme, citations).
type Bundle struct {
	Tables map[string]*Table
	Texts  map[string]string
}

func NewBundle() *Bundle {
	return &Bundle{
		Tables: make(map[string]*Table),
		Texts:  make(map[string]string),
	}
}

// Names returns every output name in the bundle, sorted.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.Tables)+len(b.Texts))
	for k := range b.Tables {
		names = append(names, k)
	}
	for k := range b.Texts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
