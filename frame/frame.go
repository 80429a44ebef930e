package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// Frame is an ordered collection of equal-length named columns.
type Frame struct {
	columns []*Column
	index   map[string]int
	nrows   int
}

// New builds a frame from columns. Column lengths must agree and names must
// be unique and non-empty.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{
		columns: make([]*Column, 0, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, errors.NewValidationError("columns", "nil column", i)
		}
		if c.Name == "" {
			return nil, errors.NewValidationError("columns", "column name must not be empty", i)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", c.Name)
		}
		if i == 0 {
			f.nrows = c.Len()
		} else if c.Len() != f.nrows {
			return nil, errors.NewDimensionError("frame.New", f.nrows, c.Len(), 0)
		}
		f.index[c.Name] = len(f.columns)
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// MustNew is New that panics on error. Intended for tests and literals.
func MustNew(cols ...*Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// NRows returns the row count.
func (f *Frame) NRows() int { return f.nrows }

// NCols returns the column count.
func (f *Frame) NCols() int { return len(f.columns) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; the columns are shared.
func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Missing returns the names that are not present in the frame, in input order.
func (f *Frame) Missing(names []string) []string {
	var missing []string
	for _, n := range names {
		if !f.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// NamesOfKind returns the names of all columns of kind k, in frame order.
func (f *Frame) NamesOfKind(k Kind) []string {
	var names []string
	for _, c := range f.columns {
		if c.Kind == k {
			names = append(names, c.Name)
		}
	}
	return names
}

// Select returns a frame with only the named columns, in the given order.
// Any absent name yields a SchemaMismatchError listing all absent names.
func (f *Frame) Select(names ...string) (*Frame, error) {
	if missing := f.Missing(names); len(missing) > 0 {
		return nil, errors.NewSchemaMismatchError("select", missing...)
	}
	cols := make([]*Column, len(names))
	for i, n := range names {
		cols[i] = f.columns[f.index[n]]
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.nrows = f.nrows
	return out, nil
}

// Drop returns a frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(f.columns))
	for _, c := range f.columns {
		if _, ok := skip[c.Name]; !ok {
			cols = append(cols, c)
		}
	}
	out := MustNew(cols...)
	out.nrows = f.nrows
	return out
}

// With returns a frame where each given column replaces the same-named column
// in place, or is appended when the name is new.
func (f *Frame) With(cols ...*Column) (*Frame, error) {
	next := f.Columns()
	index := make(map[string]int, len(f.index))
	for k, v := range f.index {
		index[k] = v
	}
	for _, c := range cols {
		if i, ok := index[c.Name]; ok {
			next[i] = c
			continue
		}
		index[c.Name] = len(next)
		next = append(next, c)
	}
	return New(next...)
}

// Take returns a frame holding the given rows, in the given order.
func (f *Frame) Take(rows []int) *Frame {
	cols := make([]*Column, len(f.columns))
	for i, c := range f.columns {
		cols[i] = c.Take(rows)
	}
	out := MustNew(cols...)
	out.nrows = len(rows)
	return out
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	cols := make([]*Column, len(f.columns))
	for i, c := range f.columns {
		cols[i] = c.Clone()
	}
	out := MustNew(cols...)
	out.nrows = f.nrows
	return out
}

// Matrix copies the named numerical columns into a rows x len(names) dense
// matrix. The frame must have at least one row and names must be non-empty.
func (f *Frame) Matrix(names []string) (*mat.Dense, error) {
	if f.nrows == 0 || len(names) == 0 {
		return nil, errors.ErrEmptyData
	}
	if missing := f.Missing(names); len(missing) > 0 {
		return nil, errors.NewSchemaMismatchError("matrix", missing...)
	}
	m := mat.NewDense(f.nrows, len(names), nil)
	for j, n := range names {
		c := f.columns[f.index[n]]
		if c.Kind != Numerical {
			return nil, errors.NewValidationError(n, "column is not numerical", c.Kind.String())
		}
		m.SetCol(j, c.Floats)
	}
	return m, nil
}

// FromMatrix builds numerical columns from a matrix, one per name.
func FromMatrix(m mat.Matrix, names []string) ([]*Column, error) {
	r, c := m.Dims()
	if c != len(names) {
		return nil, errors.NewDimensionError("frame.FromMatrix", len(names), c, 1)
	}
	cols := make([]*Column, c)
	for j := 0; j < c; j++ {
		v := make([]float64, r)
		for i := 0; i < r; i++ {
			v[i] = m.At(i, j)
		}
		cols[j] = &Column{Name: names[j], Kind: Numerical, Floats: v}
	}
	return cols, nil
}

// Records returns one map per row. Missing values map to nil.
func (f *Frame) Records() []map[string]any {
	out := make([]map[string]any, f.nrows)
	for i := 0; i < f.nrows; i++ {
		row := make(map[string]any, len(f.columns))
		for _, c := range f.columns {
			row[c.Name] = c.Value(i)
		}
		out[i] = row
	}
	return out
}

// FromRecords builds a frame from row maps. Column order is the sorted union
// of keys. A column's kind comes from kinds when present, otherwise from the
// first non-nil value: numbers are numerical, strings and booleans categorical.
// Absent keys and nil values are missing. kinds never adds a column that no
// record carries.
func FromRecords(records []map[string]any, kinds map[string]Kind) (*Frame, error) {
	keys := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			keys[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		kind, ok := kinds[name]
		if !ok {
			kind = inferKind(records, name)
		}
		col, err := buildColumn(records, name, kind)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.nrows = len(records)
	return out, nil
}

func inferKind(records []map[string]any, name string) Kind {
	for _, r := range records {
		switch r[name].(type) {
		case nil:
			continue
		case string, bool:
			return Categorical
		default:
			return Numerical
		}
	}
	return Numerical
}

func buildColumn(records []map[string]any, name string, kind Kind) (*Column, error) {
	if kind == Numerical {
		v := make([]float64, len(records))
		for i, r := range records {
			x, err := toFloat(r[name])
			if err != nil {
				return nil, errors.NewValidationError(name, fmt.Sprintf("row %d: %v", i, err), r[name])
			}
			v[i] = x
		}
		return &Column{Name: name, Kind: Numerical, Floats: v}, nil
	}
	v := make([]string, len(records))
	for i, r := range records {
		v[i] = toString(r[name])
	}
	return &Column{Name: name, Kind: Categorical, Strings: v}, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		if x == "" {
			return math.NaN(), nil
		}
		return strconv.ParseFloat(x, 64)
	default:
		return 0, errors.Newf("unsupported value type %T", v)
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
