package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

func sample() *Frame {
	return MustNew(
		NewNumerical("age", []float64{20, math.NaN(), 40}),
		NewCategorical("city", []string{"NY", "LA", ""}),
		NewNumerical("income", []float64{1, 2, 3}),
	)
}

func TestNewValidates(t *testing.T) {
	_, err := New(NewNumerical("a", []float64{1, 2}), NewNumerical("b", []float64{1}))
	require.Error(t, err)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = New(NewNumerical("a", []float64{1}), NewCategorical("a", []string{"x"}))
	require.Error(t, err)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestColumnMissing(t *testing.T) {
	f := sample()
	age, ok := f.Column("age")
	require.True(t, ok)
	assert.Equal(t, 1, age.MissingCount())
	assert.Nil(t, age.Value(1))

	city, _ := f.Column("city")
	assert.True(t, city.IsMissing(2))
	assert.Equal(t, "LA", city.Value(1))
}

func TestSelectReportsAllMissing(t *testing.T) {
	f := sample()
	_, err := f.Select("age", "zip", "state")
	require.Error(t, err)

	var sm *errors.SchemaMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, []string{"zip", "state"}, sm.Missing)

	sel, err := f.Select("income", "age")
	require.NoError(t, err)
	assert.Equal(t, []string{"income", "age"}, sel.Names())
	assert.Equal(t, 3, sel.NRows())
}

func TestDropAndWith(t *testing.T) {
	f := sample()
	d := f.Drop("city", "unknown")
	assert.Equal(t, []string{"age", "income"}, d.Names())

	w, err := f.With(NewNumerical("age", []float64{0, 0, 0}), NewNumerical("extra", []float64{9, 9, 9}))
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "city", "income", "extra"}, w.Names())
	age, _ := w.Column("age")
	assert.Equal(t, []float64{0, 0, 0}, age.Floats)

	// original untouched
	orig, _ := f.Column("age")
	assert.Equal(t, 20.0, orig.Floats[0])
}

func TestMatrixRoundTrip(t *testing.T) {
	f := MustNew(
		NewNumerical("x", []float64{1, 2, 3}),
		NewNumerical("y", []float64{4, 5, 6}),
	)
	m, err := f.Matrix([]string{"y", "x"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, m.At(0, 0))
	assert.Equal(t, 3.0, m.At(2, 1))

	cols, err := FromMatrix(m, []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, cols[0].Floats)

	_, err = sample().Matrix([]string{"city"})
	assert.Error(t, err)
}

func TestTake(t *testing.T) {
	f := sample().Take([]int{2, 0})
	assert.Equal(t, 2, f.NRows())
	income, _ := f.Column("income")
	assert.Equal(t, []float64{3, 1}, income.Floats)
}

func TestRecordsRoundTrip(t *testing.T) {
	records := []map[string]any{
		{"age": 30.0, "city": "NY"},
		{"age": nil, "city": "LA", "flag": true},
		{"city": nil},
	}
	f, err := FromRecords(records, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "city", "flag"}, f.Names())

	age, _ := f.Column("age")
	assert.Equal(t, Numerical, age.Kind)
	assert.True(t, math.IsNaN(age.Floats[1]))
	assert.True(t, math.IsNaN(age.Floats[2]))

	flag, _ := f.Column("flag")
	assert.Equal(t, Categorical, flag.Kind)
	assert.Equal(t, []string{"", "true", ""}, flag.Strings)

	back := f.Records()
	assert.Equal(t, 30.0, back[0]["age"])
	assert.Nil(t, back[2]["city"])
}

func TestFromRecordsExplicitKind(t *testing.T) {
	records := []map[string]any{{"zip": 10001.0}, {"zip": "94105"}}
	f, err := FromRecords(records, map[string]Kind{"zip": Categorical})
	require.NoError(t, err)
	zip, _ := f.Column("zip")
	assert.Equal(t, []string{"10001", "94105"}, zip.Strings)

	_, err = FromRecords([]map[string]any{{"n": "abc"}}, map[string]Kind{"n": Numerical})
	assert.Error(t, err)
}

func TestIsIntegral(t *testing.T) {
	assert.True(t, NewNumerical("y", []float64{0, 1, math.NaN(), 2}).IsIntegral())
	assert.False(t, NewNumerical("y", []float64{0, 1.5}).IsIntegral())
	assert.False(t, NewCategorical("y", []string{"1"}).IsIntegral())
}

func TestFromRecordsKindsDoNotAddColumns(t *testing.T) {
	f, err := FromRecords([]map[string]any{{"age": 20.0}}, map[string]Kind{"city": Categorical})
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, f.Names())
}

func TestChunksAndConcat(t *testing.T) {
	f := MustNew(
		NewNumerical("x", []float64{1, 2, 3, 4, 5}),
		NewCategorical("c", []string{"a", "b", "", "d", "e"}),
	)
	chunks := f.Chunks(2)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[2].NRows())

	back, err := Concat(chunks...)
	require.NoError(t, err)
	assert.Equal(t, f.Records(), back.Records())

	assert.Len(t, f.Chunks(0), 1)
	assert.Len(t, f.Chunks(10), 1)

	_, err = Concat(f, MustNew(NewNumerical("x", []float64{1})))
	assert.Error(t, err)
	_, err = Concat(f, MustNew(NewNumerical("y", []float64{1}), NewCategorical("c", []string{"a"})))
	var schema *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &schema))
	_, err = Concat()
	assert.Error(t, err)
}

func TestColumnRenamedIsIndependentCopy(t *testing.T) {
	src := NewNumerical("churn", []float64{1, 0})
	label := src.Renamed("label")
	assert.Equal(t, "label", label.Name)
	assert.Equal(t, "churn", src.Name)

	label.Floats[0] = 7
	assert.Equal(t, 1.0, src.Floats[0])

	city := NewCategorical("city", []string{"NY"}).Renamed("town")
	assert.Equal(t, Categorical, city.Kind)
	assert.Equal(t, []string{"NY"}, city.Strings)
}
