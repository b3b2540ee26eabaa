// Package dataset provides a small ordered, column-schema table used to carry
// performance records through the matching pipeline. Values are loosely typed
// scalars (string, number, bool, time) and nil represents a missing value.
package dataset

import (
	"fmt"
	"strconv"
	"time"

	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
)

// Dataset is an ordered table with a fixed column list.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty dataset with the given columns.
func New(columns ...string) *Dataset {
	index := make(map[string]int, len(columns))
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = c
		index[c] = i
	}
	return &Dataset{
		columns: cols,
		index:   index,
	}
}

// FromRecords builds a dataset from row maps. Keys missing from a record
// become nil values.
func FromRecords(columns []string, records []map[string]any) *Dataset {
	d := New(columns...)
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = rec[c]
		}
		d.rows = append(d.rows, row)
	}
	return d
}

// Columns returns a copy of the column list.
func (d *Dataset) Columns() []string {
	cols := make([]string, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// HasColumn reports whether the dataset has the named column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// AppendRow appends a row. The value count must match the column count.
func (d *Dataset) AppendRow(values ...any) error {
	if len(values) != len(d.columns) {
		return clovererrors.NewMatchConfigErrorf("row has %d values, dataset has %d columns", len(values), len(d.columns))
	}
	row := make([]any, len(values))
	copy(row, values)
	d.rows = append(d.rows, row)
	return nil
}

// AppendRecord appends a row from a map. Keys missing from the record
// become nil values.
func (d *Dataset) AppendRecord(record map[string]any) {
	row := make([]any, len(d.columns))
	for i, c := range d.columns {
		row[i] = record[c]
	}
	d.rows = append(d.rows, row)
}

// Value returns the value at the given row and column.
func (d *Dataset) Value(row int, column string) (any, error) {
	idx, ok := d.index[column]
	if !ok {
		return nil, clovererrors.NewMatchConfigError("unknown column").AddColumn(column)
	}
	if row < 0 || row >= len(d.rows) {
		return nil, fmt.Errorf("row %d out of range (%d rows)", row, len(d.rows))
	}
	return d.rows[row][idx], nil
}

// Row is a read handle on a single dataset row.
type Row struct {
	ds *Dataset
	i  int
}

// Row returns a handle on row i.
func (d *Dataset) Row(i int) Row {
	return Row{ds: d, i: i}
}

// Index returns the row's position in the dataset.
func (r Row) Index() int {
	return r.i
}

// Get returns the row's value for the named column.
func (r Row) Get(column string) (any, error) {
	return r.ds.Value(r.i, column)
}

// Value returns the row's value for the named column. The column must have
// been validated before iteration; unknown columns panic.
func (r Row) Value(column string) any {
	idx, ok := r.ds.index[column]
	if !ok {
		panic(fmt.Sprintf("dataset: unknown column %q", column))
	}
	return r.ds.rows[r.i][idx]
}

// Copy returns a deep copy of the dataset.
func (d *Dataset) Copy() *Dataset {
	out := New(d.columns...)
	out.rows = make([][]any, len(d.rows))
	for i, row := range d.rows {
		cp := make([]any, len(row))
		copy(cp, row)
		out.rows[i] = cp
	}
	return out
}

// AddColumn appends a computed column. The compute func receives each row
// in order.
func (d *Dataset) AddColumn(name string, compute func(row Row) any) error {
	if _, ok := d.index[name]; ok {
		return clovererrors.NewMatchConfigError("column already exists").AddColumn(name)
	}
	values := make([]any, len(d.rows))
	for i := range d.rows {
		values[i] = compute(Row{ds: d, i: i})
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, name)
	for i := range d.rows {
		d.rows[i] = append(d.rows[i], values[i])
	}
	return nil
}

// SetColumn overwrites an existing column with computed values.
func (d *Dataset) SetColumn(name string, compute func(row Row) any) error {
	idx, ok := d.index[name]
	if !ok {
		return clovererrors.NewMatchConfigError("unknown column").AddColumn(name)
	}
	values := make([]any, len(d.rows))
	for i := range d.rows {
		values[i] = compute(Row{ds: d, i: i})
	}
	for i := range d.rows {
		d.rows[i][idx] = values[i]
	}
	return nil
}

// DropColumn removes a column if present.
func (d *Dataset) DropColumn(name string) {
	idx, ok := d.index[name]
	if !ok {
		return
	}
	d.columns = append(d.columns[:idx], d.columns[idx+1:]...)
	delete(d.index, name)
	for c, i := range d.index {
		if i > idx {
			d.index[c] = i - 1
		}
	}
	for i := range d.rows {
		d.rows[i] = append(d.rows[i][:idx], d.rows[i][idx+1:]...)
	}
}

// Unique returns the column's distinct non-nil values in first-seen order.
func (d *Dataset) Unique(column string) ([]any, error) {
	idx, ok := d.index[column]
	if !ok {
		return nil, clovererrors.NewMatchConfigError("unknown column").AddColumn(column)
	}
	seen := make(map[string]bool)
	var out []any
	for _, row := range d.rows {
		v := row[idx]
		if v == nil {
			continue
		}
		key := Stringify(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out, nil
}

// UniqueStrings returns the column's distinct non-nil values stringified,
// in first-seen order.
func (d *Dataset) UniqueStrings(column string) ([]string, error) {
	values, err := d.Unique(column)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Stringify(v)
	}
	return out, nil
}

// Filter returns the rows matching the predicate.
func (d *Dataset) Filter(pred func(row Row) bool) *Dataset {
	out := New(d.columns...)
	for i := range d.rows {
		if pred(Row{ds: d, i: i}) {
			cp := make([]any, len(d.rows[i]))
			copy(cp, d.rows[i])
			out.rows = append(out.rows, cp)
		}
	}
	return out
}

// Partition splits the dataset into rows matching the predicate and the rest.
func (d *Dataset) Partition(pred func(row Row) bool) (*Dataset, *Dataset) {
	matched := New(d.columns...)
	rest := New(d.columns...)
	for i := range d.rows {
		cp := make([]any, len(d.rows[i]))
		copy(cp, d.rows[i])
		if pred(Row{ds: d, i: i}) {
			matched.rows = append(matched.rows, cp)
		} else {
			rest.rows = append(rest.rows, cp)
		}
	}
	return matched, rest
}

// Concat appends the other dataset's rows. The column sets must match; the
// receiver's column order wins.
func (d *Dataset) Concat(other *Dataset) (*Dataset, error) {
	if len(d.columns) != len(other.columns) {
		return nil, clovererrors.NewMatchConfigErrorf("cannot concat datasets with %d and %d columns", len(d.columns), len(other.columns))
	}
	for _, c := range d.columns {
		if !other.HasColumn(c) {
			return nil, clovererrors.NewMatchConfigError("missing column in concat operand").AddColumn(c)
		}
	}
	out := d.Copy()
	for i := 0; i < other.Len(); i++ {
		row := make([]any, len(d.columns))
		for j, c := range d.columns {
			row[j] = other.rows[i][other.index[c]]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Stringify renders a scalar value the way match keys expect. Nil becomes
// the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
