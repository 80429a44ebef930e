package tabular

import (
	"time"

	"github.com/YuminosukeSato/featurekit/featureselection"
	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
)

// FeatureImportance transforms f without the target column and scores every
// output column by mutual information against the raw target. Results are
// sorted by descending importance. The scoring branch follows
// featureselection.TaskFor, as selection does.
func (p *Pipeline) FeatureImportance(f *frame.Frame, target string) (scores []featureselection.Score, err error) {
	start := time.Now()
	defer func() { p.observe(log.OperationImportance, start, rowsOf(f), err) }()
	defer errors.Recover(&err, "TabularPipeline.FeatureImportance")

	s, err := p.fittedState("FeatureImportance")
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.NewValidationError("dataset", "must not be nil", nil)
	}
	y, ok := f.Column(target)
	if !ok {
		return nil, errors.NewSchemaMismatchError("feature_importance", target)
	}

	out, err := transformWith(p.cfg, s, f.Drop(target))
	if err != nil {
		return nil, err
	}
	if s.Target != "" && s.Target != target {
		out = out.Drop(s.Target)
	}
	return featureselection.Rank(out, featureselection.NewTarget(y))
}
