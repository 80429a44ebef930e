package frame

import (
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// Chunks splits f into consecutive row ranges of at most size rows.
func (f *Frame) Chunks(size int) []*Frame {
	if size <= 0 || f.nrows <= size {
		return []*Frame{f}
	}
	out := make([]*Frame, 0, (f.nrows+size-1)/size)
	for start := 0; start < f.nrows; start += size {
		end := start + size
		if end > f.nrows {
			end = f.nrows
		}
		rows := make([]int, end-start)
		for i := range rows {
			rows[i] = start + i
		}
		out = append(out, f.Take(rows))
	}
	return out
}

// Concat stacks frames with identical column names, order and kinds.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, errors.NewValueError("frame.Concat", "no frames")
	}
	first := frames[0]
	total := 0
	for i, f := range frames {
		if f.NCols() != first.NCols() {
			return nil, errors.NewDimensionError("frame.Concat", first.NCols(), f.NCols(), 1)
		}
		for j, c := range f.columns {
			want := first.columns[j]
			if c.Name != want.Name {
				return nil, errors.NewSchemaMismatchError("concat", want.Name)
			}
			if c.Kind != want.Kind {
				return nil, errors.NewValidationError(c.Name, "kind differs between frames", i)
			}
		}
		total += f.nrows
	}

	cols := make([]*Column, len(first.columns))
	for j, c := range first.columns {
		col := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numerical {
			col.Floats = make([]float64, 0, total)
		} else {
			col.Strings = make([]string, 0, total)
		}
		for _, f := range frames {
			src := f.columns[j]
			col.Floats = append(col.Floats, src.Floats...)
			col.Strings = append(col.Strings, src.Strings...)
		}
		cols[j] = col
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.nrows = total
	return out, nil
}
