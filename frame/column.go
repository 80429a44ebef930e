// Package frame is the tabular dataset model the pipeline consumes: an ordered
// set of named, row-aligned columns, each either numerical or categorical.
//
// Missing values are NaN in numerical columns and the empty string in
// categorical columns. Columns placed in a Frame are never modified in place;
// every operation that changes data builds new columns.
package frame

import (
	"math"
	"strconv"
)

// Kind classifies a column's value domain.
type Kind int

const (
	// Numerical columns hold real values.
	Numerical Kind = iota
	// Categorical columns hold symbolic values.
	Categorical
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Numerical:
		return "numerical"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Column is a named vector of numerical or categorical values.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// NewNumerical copies values into a numerical column. NaN marks a missing value.
func NewNumerical(name string, values []float64) *Column {
	v := make([]float64, len(values))
	copy(v, values)
	return &Column{Name: name, Kind: Numerical, Floats: v}
}

// NewCategorical copies values into a categorical column. The empty string
// marks a missing value.
func NewCategorical(name string, values []string) *Column {
	v := make([]string, len(values))
	copy(v, values)
	return &Column{Name: name, Kind: Categorical, Strings: v}
}

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.Kind == Numerical {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether row i holds the missing marker.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numerical {
		return math.IsNaN(c.Floats[i])
	}
	return c.Strings[i] == ""
}

// MissingCount returns how many rows are missing.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Value returns row i as float64 or string, or nil when missing.
func (c *Column) Value(i int) any {
	if c.IsMissing(i) {
		return nil
	}
	if c.Kind == Numerical {
		return c.Floats[i]
	}
	return c.Strings[i]
}

// String returns row i rendered as text; missing values render as "".
func (c *Column) String(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	if c.Kind == Numerical {
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
	}
	return c.Strings[i]
}

// IsIntegral reports whether a numerical column holds only whole numbers.
// Categorical columns return false.
func (c *Column) IsIntegral() bool {
	if c.Kind != Numerical {
		return false
	}
	for _, v := range c.Floats {
		if math.IsNaN(v) {
			continue
		}
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	if c.Kind == Numerical {
		return NewNumerical(c.Name, c.Floats)
	}
	return NewCategorical(c.Name, c.Strings)
}

// Renamed returns a copy of the column under a new name.
func (c *Column) Renamed(name string) *Column {
	out := c.Clone()
	out.Name = name
	return out
}

// Take returns a new column with the given rows, in the given order.
func (c *Column) Take(rows []int) *Column {
	if c.Kind == Numerical {
		v := make([]float64, len(rows))
		for i, r := range rows {
			v[i] = c.Floats[r]
		}
		return &Column{Name: c.Name, Kind: Numerical, Floats: v}
	}
	v := make([]string, len(rows))
	for i, r := range rows {
		v[i] = c.Strings[r]
	}
	return &Column{Name: c.Name, Kind: Categorical, Strings: v}
}
