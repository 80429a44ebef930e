// Package dataio converts between frames and their on-disk and wire forms:
// CSV through gota dataframes, and JSON records.
package dataio

import (
	"io"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// NAValues are the CSV cells read as missing.
var NAValues = []string{"", "NA", "NaN", "nan", "null"}

// ReadCSV reads a headed CSV. Column kinds are detected from the cell values:
// int and float columns are numerical, string and bool columns categorical.
// Columns named in categorical are always read as categorical.
func ReadCSV(r io.Reader, categorical ...string) (*frame.Frame, error) {
	kinds := make(map[string]frame.Kind, len(categorical))
	for _, name := range categorical {
		kinds[name] = frame.Categorical
	}
	return ReadCSVKinds(r, kinds)
}

// ReadCSVKinds is ReadCSV with the kind of each named column fixed up front.
// A numerical column whose cells are all missing stays numerical, and cells
// that do not parse as numbers read as missing. Columns absent from kinds
// are detected.
func ReadCSVKinds(r io.Reader, kinds map[string]frame.Kind) (*frame.Frame, error) {
	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(NAValues),
	}
	if len(kinds) > 0 {
		types := make(map[string]series.Type, len(kinds))
		for name, kind := range kinds {
			if kind == frame.Numerical {
				types[name] = series.Float
			} else {
				types[name] = series.String
			}
		}
		opts = append(opts, dataframe.WithTypes(types))
	}
	df := dataframe.ReadCSV(r, opts...)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "failed to read csv")
	}
	return FromDataFrame(df)
}

// ReadCSVFile is ReadCSV on a file.
func ReadCSVFile(path string, categorical ...string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return ReadCSV(file, categorical...)
}

// FromDataFrame converts a gota dataframe into a frame.
func FromDataFrame(df dataframe.DataFrame) (*frame.Frame, error) {
	names := df.Names()
	cols := make([]*frame.Column, len(names))
	for j, name := range names {
		s := df.Col(name)
		if s.Err != nil {
			return nil, errors.Wrapf(s.Err, "column %s", name)
		}
		switch s.Type() {
		case series.Int, series.Float:
			cols[j] = frame.NewNumerical(name, s.Float())
		default:
			values := s.Records()
			for i, na := range s.IsNaN() {
				if na {
					values[i] = ""
				}
			}
			cols[j] = frame.NewCategorical(name, values)
		}
	}
	return frame.New(cols...)
}

// ToDataFrame converts a frame into a gota dataframe. Missing numerical
// values stay NaN; missing categorical values become empty strings.
func ToDataFrame(f *frame.Frame) dataframe.DataFrame {
	cols := f.Columns()
	ss := make([]series.Series, len(cols))
	for j, c := range cols {
		if c.Kind == frame.Numerical {
			ss[j] = series.New(c.Floats, series.Float, c.Name)
		} else {
			ss[j] = series.New(c.Strings, series.String, c.Name)
		}
	}
	return dataframe.New(ss...)
}

// WriteCSV writes f with a header row. Missing numerical values are written
// as "NaN" so ReadCSV reads them back as missing. gota formats floats with
// six decimals.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	if f.NCols() == 0 {
		return errors.NewValueError("dataio.WriteCSV", "frame has no columns")
	}
	for _, c := range f.Columns() {
		if c.Kind != frame.Numerical {
			continue
		}
		for _, v := range c.Floats {
			if math.IsInf(v, 0) {
				return errors.NewValidationError(c.Name, "infinite values cannot be written", v)
			}
		}
	}
	if err := ToDataFrame(f).WriteCSV(w); err != nil {
		return errors.Wrap(err, "failed to write csv")
	}
	return nil
}

// WriteCSVFile writes f to path, reporting close errors.
func WriteCSVFile(path string, f *frame.Frame) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()
	return WriteCSV(file, f)
}
