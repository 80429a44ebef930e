package tabular

import (
	"github.com/YuminosukeSato/featurekit/featureselection"
	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/preprocessing"
)

// state is either unfitted or fitted. Only fitted carries learned parameters.
type state interface {
	fittedState() (*FittedState, bool)
}

type unfitted struct{}

func (unfitted) fittedState() (*FittedState, bool) { return nil, false }

type fitted struct {
	s *FittedState
}

func (f fitted) fittedState() (*FittedState, bool) { return f.s, true }

// FittedState is everything a fit learns. It is read-only once built.
// Fields are exported for gob.
type FittedState struct {
	// Numerical and Categorical are the frozen feature columns, in fit order.
	Numerical   []string
	Categorical []string

	// Target is the excluded target column; empty when fit had none.
	Target string

	// Imputer is nil when there are no numerical columns.
	Imputer preprocessing.Imputer
	// Scaler is nil when scaling is disabled or there are no numerical columns.
	Scaler preprocessing.Scaler

	Encoding     EncodingMethod
	Vocabularies []*preprocessing.Vocabulary

	// Features are the preprocessed column names before selection and PCA.
	Features []string

	// Selector is nil when selection is disabled.
	Selector *featureselection.Selector
	// PCA is nil when PCA is disabled. It consumes PCAInputs.
	PCA       *preprocessing.PCA
	PCAInputs []string
}

// Schema describes a fitted pipeline's columns.
type Schema struct {
	Numerical   []string `json:"numerical"`
	Categorical []string `json:"categorical"`
	Target      string   `json:"target,omitempty"`
	// Features are the preprocessed feature names before selection and PCA.
	Features []string `json:"features"`
	// Output are the feature columns Transform emits, target excluded.
	Output []string `json:"output"`
}

// Kinds maps every fitted input column to its kind. The target is not
// included.
func (s Schema) Kinds() map[string]frame.Kind {
	kinds := make(map[string]frame.Kind, len(s.Numerical)+len(s.Categorical))
	for _, n := range s.Numerical {
		kinds[n] = frame.Numerical
	}
	for _, n := range s.Categorical {
		kinds[n] = frame.Categorical
	}
	return kinds
}

func (s *FittedState) schema() Schema {
	return Schema{
		Numerical:   append([]string(nil), s.Numerical...),
		Categorical: append([]string(nil), s.Categorical...),
		Target:      s.Target,
		Features:    append([]string(nil), s.Features...),
		Output:      s.outputNames(),
	}
}

func (s *FittedState) outputNames() []string {
	if s.PCA != nil {
		return s.PCA.ComponentNames()
	}
	if s.Selector != nil {
		return append([]string(nil), s.Selector.Selected...)
	}
	return append([]string(nil), s.Features...)
}

// checkColumns fails when f lacks a fitted column or a numerical column
// arrives with categorical values.
func (s *FittedState) checkColumns(f *frame.Frame) error {
	required := append(append([]string(nil), s.Numerical...), s.Categorical...)
	if missing := f.Missing(required); len(missing) > 0 {
		return errors.NewSchemaMismatchError("transform", missing...)
	}
	for _, name := range s.Numerical {
		if c, _ := f.Column(name); c.Kind != frame.Numerical {
			return errors.NewValidationError(name, "fitted as numerical but dataset column is categorical", c.Kind.String())
		}
	}
	return nil
}

// imputeNumerical returns the numerical columns with missing values filled.
func (s *FittedState) imputeNumerical(f *frame.Frame) ([]*frame.Column, error) {
	if len(s.Numerical) == 0 {
		return nil, nil
	}
	X, err := f.Matrix(s.Numerical)
	if err != nil {
		return nil, err
	}
	imputed, err := s.Imputer.Transform(X)
	if err != nil {
		return nil, err
	}
	return frame.FromMatrix(imputed, s.Numerical)
}

// clipOutliers applies the outlier policy using each column's own statistics.
func clipOutliers(method OutlierMethod, cols []*frame.Column) ([]*frame.Column, error) {
	out := make([]*frame.Column, len(cols))
	for i, c := range cols {
		values, err := preprocessing.ClipOutliers(method, c.Floats)
		if err != nil {
			return nil, err
		}
		out[i] = &frame.Column{Name: c.Name, Kind: frame.Numerical, Floats: values}
	}
	return out, nil
}

// scaleNumerical applies the fitted scaler, or returns cols when there is none.
func (s *FittedState) scaleNumerical(cols []*frame.Column) ([]*frame.Column, error) {
	if s.Scaler == nil || len(cols) == 0 {
		return cols, nil
	}
	X, err := frame.MustNew(cols...).Matrix(s.Numerical)
	if err != nil {
		return nil, err
	}
	scaled, err := s.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return frame.FromMatrix(scaled, s.Numerical)
}

// encodeCategorical mode-imputes and encodes every fitted categorical column.
func (s *FittedState) encodeCategorical(f *frame.Frame) ([]*frame.Column, error) {
	if len(s.Categorical) == 0 {
		return nil, nil
	}
	enc, err := preprocessing.NewEncoder(s.Encoding)
	if err != nil {
		return nil, err
	}
	var out []*frame.Column
	for i, name := range s.Categorical {
		c, _ := f.Column(name)
		cols, err := enc.Apply(s.Vocabularies[i], preprocessing.ImputeCategorical(categoricalValues(c)))
		if err != nil {
			return nil, err
		}
		out = append(out, cols...)
	}
	return out, nil
}

// reduce applies selection and PCA to the preprocessed features.
func (s *FittedState) reduce(features *frame.Frame) (*frame.Frame, error) {
	var err error
	if s.Selector != nil {
		if features, err = s.Selector.Apply(features); err != nil {
			return nil, err
		}
	}
	if s.PCA == nil {
		return features, nil
	}
	X, err := features.Matrix(s.PCAInputs)
	if err != nil {
		return nil, err
	}
	projected, err := s.PCA.Transform(X)
	if err != nil {
		return nil, err
	}
	cols, err := frame.FromMatrix(projected, s.PCA.ComponentNames())
	if err != nil {
		return nil, err
	}
	return frame.New(cols...)
}

// categoricalValues returns a column's values as strings. Numerical columns
// listed as categorical are rendered with their shortest representation.
func categoricalValues(c *frame.Column) []string {
	if c.Kind == frame.Categorical {
		return c.Strings
	}
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.String(i)
	}
	return out
}
