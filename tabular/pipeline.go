// Package tabular implements the tabular feature-engineering pipeline.
//
// A Pipeline learns, in a fixed order, numerical imputation, numerical
// scaling, categorical vocabularies and optionally mutual-information feature
// selection and PCA. Transform then applies
//
//	impute → outliers → encode → scale → select → PCA
//
// with the learned parameters. Outlier bounds are not learned: they are
// computed from the dataset being transformed.
//
// Basic usage:
//
//	cfg, err := tabular.NewConfig(tabular.WithScaling(tabular.ScalingRobust))
//	p, err := tabular.New(cfg)
//	err = p.Fit(train, tabular.FitOptions{Target: "churned"})
//	out, err := p.Transform(batch)
package tabular

import (
	"slices"
	"sync"
	"time"

	"github.com/YuminosukeSato/featurekit/featureselection"
	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
	"github.com/YuminosukeSato/featurekit/preprocessing"
)

// Observer receives one call per completed pipeline operation.
type Observer interface {
	Observe(operation string, duration time.Duration, rows int, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(operation string, duration time.Duration, rows int, err error)

// Observe calls f.
func (f ObserverFunc) Observe(operation string, duration time.Duration, rows int, err error) {
	f(operation, duration, rows, err)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(l log.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver registers an operation observer.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// FitOptions names the target and, optionally, the feature columns. Nil
// column lists are inferred from the column kinds.
type FitOptions struct {
	Target      string
	Categorical []string
	Numerical   []string
}

// Pipeline is the tabular feature-engineering pipeline.
//
// Transform, FeatureImportance and ToVertexAIFormat may run concurrently with
// each other. Fit replaces the learned state atomically.
type Pipeline struct {
	cfg      Config
	logger   log.Logger
	observer Observer

	mu    sync.RWMutex
	state state
}

// New returns an unfitted pipeline. cfg is validated again so that a zero
// or hand-built Config cannot reach Fit.
func New(cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: log.GetLoggerWithName("TabularPipeline"),
		state:  unfitted{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// IsFitted reports whether Fit has completed successfully.
func (p *Pipeline) IsFitted() bool {
	_, ok := p.current().fittedState()
	return ok
}

// Schema returns the frozen column lists of a fitted pipeline.
func (p *Pipeline) Schema() (Schema, error) {
	s, ok := p.current().fittedState()
	if !ok {
		return Schema{}, errors.NewNotFittedError("TabularPipeline", "Schema")
	}
	return s.schema(), nil
}

func (p *Pipeline) current() state {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) fittedState(method string) (*FittedState, error) {
	s, ok := p.current().fittedState()
	if !ok {
		return nil, errors.NewNotFittedError("TabularPipeline", method)
	}
	return s, nil
}

func (p *Pipeline) observe(op string, start time.Time, rows int, err error) {
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Error(op+" failed", err,
			log.OperationKey, op,
			log.SamplesKey, rows,
			log.DurationMsKey, elapsed.Milliseconds(),
		)
	}
	if p.observer != nil {
		p.observer.Observe(op, elapsed, rows, err)
	}
}

// Fit learns every stage's parameters from f. On failure the previous state,
// fitted or not, is left untouched.
func (p *Pipeline) Fit(f *frame.Frame, opts FitOptions) (err error) {
	start := time.Now()
	defer func() { p.observe(log.OperationFit, start, rowsOf(f), err) }()
	defer errors.Recover(&err, "TabularPipeline.Fit")

	if f == nil {
		return errors.NewValidationError("dataset", "must not be nil", nil)
	}

	s, err := fitState(p.cfg, f, opts, p.logger)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.state = fitted{s: s}
	p.mu.Unlock()

	p.logger.Info("pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, f.NRows(),
		log.FeaturesKey, len(s.outputNames()),
		log.NumericalColumnsKey, s.Numerical,
		log.CategoricalColumnsKey, s.Categorical,
		log.TargetKey, s.Target,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Transform applies the fitted stages to f. Rows keep their count and order.
// Output columns are the fitted numerical columns, then the encoded
// categorical columns, then the target when f carries it. Selection and PCA
// replace the feature columns with their own outputs.
func (p *Pipeline) Transform(f *frame.Frame) (out *frame.Frame, err error) {
	start := time.Now()
	defer func() { p.observe(log.OperationTransform, start, rowsOf(f), err) }()
	defer errors.Recover(&err, "TabularPipeline.Transform")

	if f == nil {
		return nil, errors.NewValidationError("dataset", "must not be nil", nil)
	}

	s, err := p.fittedState("Transform")
	if err != nil {
		return nil, err
	}
	return transformWith(p.cfg, s, f)
}

// FitTransform fits on f and transforms it.
func (p *Pipeline) FitTransform(f *frame.Frame, opts FitOptions) (*frame.Frame, error) {
	if err := p.Fit(f, opts); err != nil {
		return nil, err
	}
	return p.Transform(f)
}

func rowsOf(f *frame.Frame) int {
	if f == nil {
		return 0
	}
	return f.NRows()
}

func transformWith(cfg Config, s *FittedState, f *frame.Frame) (*frame.Frame, error) {
	if f.NRows() == 0 {
		return nil, errors.NewModelError("TabularPipeline.Transform", "empty data", errors.ErrEmptyData)
	}
	if err := s.checkColumns(f); err != nil {
		return nil, err
	}

	numerical, err := s.imputeNumerical(f)
	if err != nil {
		return nil, err
	}
	if numerical, err = clipOutliers(cfg.OutlierMethod, numerical); err != nil {
		return nil, err
	}
	encoded, err := s.encodeCategorical(f)
	if err != nil {
		return nil, err
	}
	if numerical, err = s.scaleNumerical(numerical); err != nil {
		return nil, err
	}

	features, err := frame.New(append(numerical, encoded...)...)
	if err != nil {
		return nil, err
	}
	features, err = s.reduce(features)
	if err != nil {
		return nil, err
	}

	if s.Target != "" {
		if target, ok := f.Column(s.Target); ok {
			return features.With(target.Clone())
		}
	}
	return features, nil
}

// fitState runs the fit sequence and returns the learned state.
func fitState(cfg Config, f *frame.Frame, opts FitOptions, logger log.Logger) (*FittedState, error) {
	if f.NRows() == 0 {
		return nil, errors.NewModelError("TabularPipeline.Fit", "empty data", errors.ErrEmptyData)
	}
	s, err := resolveColumns(f, opts)
	if err != nil {
		return nil, err
	}
	if cfg.FeatureSelection && s.Target == "" {
		return nil, errors.NewConfigurationErrorf("feature_selection", true, "requires a target column")
	}

	// 1. numerical imputation
	var numerical []*frame.Column
	if len(s.Numerical) > 0 {
		if s.Imputer, err = preprocessing.NewImputer(cfg.ImputationMethod, cfg.KNNNeighbors); err != nil {
			return nil, err
		}
		X, err := f.Matrix(s.Numerical)
		if err != nil {
			return nil, err
		}
		if err := s.Imputer.Fit(X); err != nil {
			return nil, err
		}
		if numerical, err = s.imputeNumerical(f); err != nil {
			return nil, err
		}
	}
	logger.Debug("imputer fitted", log.StageKey, "impute", log.NumericalColumnsKey, s.Numerical)

	// 2. scaling over the imputed columns
	if len(s.Numerical) > 0 {
		if s.Scaler, err = preprocessing.NewScaler(cfg.ScalingMethod); err != nil {
			return nil, err
		}
		if s.Scaler != nil {
			X, err := frame.MustNew(numerical...).Matrix(s.Numerical)
			if err != nil {
				return nil, err
			}
			if err := s.Scaler.Fit(X); err != nil {
				return nil, err
			}
		}
	}
	logger.Debug("scaler fitted", log.StageKey, "scale", "method", string(cfg.ScalingMethod))

	// 3. vocabularies over the mode-imputed categorical columns
	enc, err := preprocessing.NewEncoder(cfg.EncodingMethod)
	if err != nil {
		return nil, err
	}
	s.Encoding = cfg.EncodingMethod
	s.Vocabularies = make([]*preprocessing.Vocabulary, len(s.Categorical))
	for i, name := range s.Categorical {
		c, _ := f.Column(name)
		s.Vocabularies[i] = enc.Fit(name, preprocessing.ImputeCategorical(categoricalValues(c)))
	}
	logger.Debug("encoder fitted", log.StageKey, "encode", log.CategoricalColumnsKey, s.Categorical)

	// preprocessed training features: imputed, encoded, scaled
	encoded, err := s.encodeCategorical(f)
	if err != nil {
		return nil, err
	}
	scaled, err := s.scaleNumerical(numerical)
	if err != nil {
		return nil, err
	}
	features, err := frame.New(append(scaled, encoded...)...)
	if err != nil {
		return nil, err
	}
	s.Features = features.Names()
	if len(s.Features) == 0 {
		return nil, errors.NewValidationError("columns", "no feature columns after encoding", 0)
	}

	// 4. feature selection
	if cfg.FeatureSelection {
		target, _ := f.Column(s.Target)
		s.Selector = featureselection.NewSelector(cfg.NFeatures)
		if err := s.Selector.Fit(features, featureselection.NewTarget(target)); err != nil {
			return nil, err
		}
		if features, err = s.Selector.Apply(features); err != nil {
			return nil, err
		}
		logger.Debug("selector fitted", log.StageKey, "select", "selected", s.Selector.Selected)
	}

	// 5. PCA over the (selected) features
	if cfg.PCAComponents > 0 {
		s.PCAInputs = features.Names()
		X, err := features.Matrix(s.PCAInputs)
		if err != nil {
			return nil, err
		}
		s.PCA = preprocessing.NewPCA(cfg.PCAComponents)
		if err := s.PCA.Fit(X); err != nil {
			return nil, err
		}
		logger.Debug("pca fitted", log.StageKey, "pca", "explained_variance_ratio", s.PCA.ExplainedVarianceRatio)
	}
	return s, nil
}

// resolveColumns freezes the numerical and categorical feature lists.
func resolveColumns(f *frame.Frame, opts FitOptions) (*FittedState, error) {
	if opts.Target != "" && !f.Has(opts.Target) {
		return nil, errors.NewSchemaMismatchError("fit", opts.Target)
	}
	// An inferred list never claims a column the other list names explicitly.
	numerical := opts.Numerical
	if numerical == nil {
		numerical = without(f.NamesOfKind(frame.Numerical), opts.Categorical...)
	}
	categorical := opts.Categorical
	if categorical == nil {
		categorical = without(f.NamesOfKind(frame.Categorical), opts.Numerical...)
	}
	numerical = without(numerical, opts.Target)
	categorical = without(categorical, opts.Target)

	if missing := f.Missing(append(append([]string(nil), numerical...), categorical...)); len(missing) > 0 {
		return nil, errors.NewSchemaMismatchError("fit", missing...)
	}
	seen := make(map[string]bool, len(numerical))
	for _, name := range numerical {
		if c, _ := f.Column(name); c.Kind != frame.Numerical {
			return nil, errors.NewValidationError(name, "listed as numerical but holds categorical values", c.Kind.String())
		}
		seen[name] = true
	}
	for _, name := range categorical {
		if seen[name] {
			return nil, errors.NewValidationError(name, "listed as both numerical and categorical", name)
		}
	}
	if len(numerical)+len(categorical) == 0 {
		return nil, errors.NewValidationError("columns", "no feature columns", f.Names())
	}
	return &FittedState{
		Numerical:   numerical,
		Categorical: categorical,
		Target:      opts.Target,
	}, nil
}

func without(names []string, drop ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(drop, n) {
			out = append(out, n)
		}
	}
	return out
}
