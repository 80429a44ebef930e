package featureselection

import (
	"sort"

	"github.com/YuminosukeSato/featurekit/core/model"
	"github.com/YuminosukeSato/featurekit/core/parallel"
	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// scoreParallelThreshold is the column count above which scoring runs in parallel.
const scoreParallelThreshold = 8

// Score is a feature's mutual information with the target.
type Score struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"importance"`
}

// Rank scores every column of x against target and returns them by
// descending score. Ties keep the frame's column order.
func Rank(x *frame.Frame, target Target) ([]Score, error) {
	if target.Len() != x.NRows() {
		return nil, errors.NewDimensionError("featureselection.Rank", x.NRows(), target.Len(), 0)
	}
	cols := x.Columns()
	for _, c := range cols {
		if c.Kind != frame.Numerical {
			return nil, errors.NewValidationError(c.Name, "feature must be numerical", c.Kind.String())
		}
	}

	scores := make([]Score, len(cols))
	parallel.ForEach(len(cols), scoreParallelThreshold, func(j int) {
		scores[j] = Score{Feature: cols[j].Name, Score: MutualInformation(cols[j].Floats, target)}
	})
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].Score > scores[b].Score })
	return scores, nil
}

// Selector keeps the K features with the highest mutual information.
type Selector struct {
	model.BaseEstimator

	// K is the requested feature count; 0 means half of the features, at least one.
	K int

	// Task is the scoring branch used at fit time.
	Task Task

	// Scores holds every feature's score from fit, best first.
	Scores []Score

	// Selected are the kept feature names, best first.
	Selected []string
}

// NewSelector returns an unfitted selector keeping k features.
func NewSelector(k int) *Selector {
	return &Selector{K: k}
}

// EffectiveK resolves the requested count against n available features.
func EffectiveK(k, n int) int {
	if k <= 0 {
		k = n / 2
		if k < 1 {
			k = 1
		}
	}
	if k > n {
		k = n
	}
	return k
}

// Fit scores the columns of x and records the top K.
func (s *Selector) Fit(x *frame.Frame, target Target) error {
	if x.NCols() == 0 || x.NRows() == 0 {
		return errors.NewModelError("Selector.Fit", "empty data", errors.ErrEmptyData)
	}
	scores, err := Rank(x, target)
	if err != nil {
		return err
	}
	k := EffectiveK(s.K, len(scores))
	selected := make([]string, k)
	for i := 0; i < k; i++ {
		selected[i] = scores[i].Feature
	}
	s.Task = target.Task
	s.Scores = scores
	s.Selected = selected
	s.SetFitted()
	return nil
}

// Apply keeps only the selected columns of x, best first.
func (s *Selector) Apply(x *frame.Frame) (*frame.Frame, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("Selector", "Apply")
	}
	return x.Select(s.Selected...)
}
