package tabular

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
)

var nan = math.NaN()

func ageCity() *frame.Frame {
	return frame.MustNew(
		frame.NewNumerical("age", []float64{20, 30, 40, nan}),
		frame.NewCategorical("city", []string{"NY", "LA", "NY", "SF"}),
	)
}

// customers is a mixed dataset with a binary numerical target.
func customers(n int) *frame.Frame {
	age := make([]float64, n)
	income := make([]float64, n)
	plan := make([]string, n)
	churn := make([]float64, n)
	plans := []string{"basic", "pro", "team"}
	for i := 0; i < n; i++ {
		age[i] = float64(20 + (i*7)%45)
		income[i] = float64(30000 + (i*1237)%50000)
		plan[i] = plans[i%3]
		churn[i] = float64(i % 2)
		if i%11 == 0 {
			age[i] = nan
		}
		if i%13 == 0 {
			plan[i] = ""
		}
	}
	return frame.MustNew(
		frame.NewNumerical("age", age),
		frame.NewNumerical("income", income),
		frame.NewCategorical("plan", plan),
		frame.NewNumerical("churn", churn),
	)
}

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	p, err := New(cfg, WithLogger(logger))
	require.NoError(t, err)
	return p
}

func TestAgeCityScenario(t *testing.T) {
	p := newPipeline(t)
	require.NoError(t, p.Fit(ageCity(), FitOptions{}))

	out, err := p.Transform(frame.MustNew(
		frame.NewNumerical("age", []float64{nan}),
		frame.NewCategorical("city", []string{"LA"}),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "city_LA", "city_NY", "city_SF"}, out.Names())
	age, _ := out.Column("age")
	// imputed to the fit-time mean 30, which standardises to 0
	assert.InDelta(t, 0, age.Floats[0], 1e-12)

	for name, want := range map[string]float64{"city_LA": 1, "city_NY": 0, "city_SF": 0} {
		c, _ := out.Column(name)
		assert.Equal(t, want, c.Floats[0], name)
	}
}

func TestAgeCityScalingUsesFitStatistics(t *testing.T) {
	p := newPipeline(t, WithOutliers(OutlierNone))
	require.NoError(t, p.Fit(ageCity(), FitOptions{}))

	out, err := p.Transform(frame.MustNew(
		frame.NewNumerical("age", []float64{40}),
		frame.NewCategorical("city", []string{"NY"}),
	))
	require.NoError(t, err)
	age, _ := out.Column("age")
	// imputed training column is [20 30 40 30]: mean 30, population std √50
	assert.InDelta(t, 10/math.Sqrt(50), age.Floats[0], 1e-12)
}

func TestTransformIsIdempotent(t *testing.T) {
	for _, outliers := range []OutlierMethod{OutlierIQR, OutlierZScore, OutlierNone} {
		t.Run(string(outliers), func(t *testing.T) {
			p := newPipeline(t, WithOutliers(outliers))
			data := customers(90)
			require.NoError(t, p.Fit(data, FitOptions{Target: "churn"}))

			first, err := p.Transform(data)
			require.NoError(t, err)
			second, err := p.Transform(data)
			require.NoError(t, err)
			assert.Equal(t, first.Records(), second.Records())
			assert.Equal(t, data.NRows(), first.NRows())
		})
	}
}

func TestFitTransformDeterministic(t *testing.T) {
	data := customers(60)
	a, err := newPipeline(t, WithImputation(ImputeKNN)).FitTransform(data, FitOptions{Target: "churn"})
	require.NoError(t, err)
	b, err := newPipeline(t, WithImputation(ImputeKNN)).FitTransform(data, FitOptions{Target: "churn"})
	require.NoError(t, err)
	assert.Equal(t, a.Records(), b.Records())
}

func TestTransformColumnOrder(t *testing.T) {
	p := newPipeline(t)
	data := customers(30)
	require.NoError(t, p.Fit(data, FitOptions{Target: "churn"}))

	withExtra, err := data.With(frame.NewNumerical("unrelated", make([]float64, 30)))
	require.NoError(t, err)
	// reorder input columns; output order comes from the fit
	shuffled, err := withExtra.Select("plan", "churn", "unrelated", "income", "age")
	require.NoError(t, err)

	out, err := p.Transform(shuffled)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "income", "plan_basic", "plan_pro", "plan_team", "churn"}, out.Names())

	schema, err := p.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "income"}, schema.Numerical)
	assert.Equal(t, []string{"plan"}, schema.Categorical)
	assert.Equal(t, "churn", schema.Target)
}

func TestUnfittedGuard(t *testing.T) {
	p := newPipeline(t)
	var nf *errors.NotFittedError

	_, err := p.Transform(ageCity())
	assert.True(t, errors.As(err, &nf), "Transform: %v", err)
	_, err = p.FeatureImportance(ageCity(), "age")
	assert.True(t, errors.As(err, &nf), "FeatureImportance: %v", err)
	_, err = p.ToVertexAIFormat(ageCity(), "")
	assert.True(t, errors.As(err, &nf), "ToVertexAIFormat: %v", err)
	_, err = p.Schema()
	assert.True(t, errors.As(err, &nf), "Schema: %v", err)
	assert.False(t, p.IsFitted())
}

func TestOneHotUnseenCategory(t *testing.T) {
	p := newPipeline(t)
	train := frame.MustNew(frame.NewCategorical("c", []string{"A", "B", "A"}))
	require.NoError(t, p.Fit(train, FitOptions{}))

	out, err := p.Transform(frame.MustNew(frame.NewCategorical("c", []string{"C"})))
	require.NoError(t, err)
	assert.Equal(t, []string{"c_A", "c_B"}, out.Names())
	for _, c := range out.Columns() {
		assert.Equal(t, 0.0, c.Floats[0], c.Name)
	}
}

func TestLabelUnseenCategoryFails(t *testing.T) {
	p := newPipeline(t, WithEncoding(EncodeLabel))
	train := frame.MustNew(frame.NewCategorical("c", []string{"A", "B", "A"}))
	require.NoError(t, p.Fit(train, FitOptions{}))

	_, err := p.Transform(frame.MustNew(frame.NewCategorical("c", []string{"C"})))
	var uc *errors.UnseenCategoryError
	require.True(t, errors.As(err, &uc), "got %v", err)
	assert.Equal(t, "C", uc.Category)
}

func TestOrdinalUnseenCategoryReserved(t *testing.T) {
	p := newPipeline(t, WithEncoding(EncodeOrdinal), WithScaling(ScalingNone))
	train := frame.MustNew(frame.NewCategorical("c", []string{"B", "A", "B"}))
	require.NoError(t, p.Fit(train, FitOptions{}))

	out, err := p.Transform(frame.MustNew(frame.NewCategorical("c", []string{"A", "C", "B"})))
	require.NoError(t, err)
	c, _ := out.Column("c")
	assert.Equal(t, []float64{0, -1, 1}, c.Floats)
}

func TestIQRClippingInTransform(t *testing.T) {
	p := newPipeline(t, WithScaling(ScalingNone))
	require.NoError(t, p.Fit(frame.MustNew(frame.NewNumerical("x", []float64{1, 2, 3})), FitOptions{}))

	out, err := p.Transform(frame.MustNew(frame.NewNumerical("x", []float64{1, 2, 3, 4, 100})))
	require.NoError(t, err)
	x, _ := out.Column("x")
	assert.Equal(t, []float64{1, 2, 3, 4, 7}, x.Floats)
}

func TestZScoreReplacementInTransform(t *testing.T) {
	p := newPipeline(t, WithScaling(ScalingNone), WithOutliers(OutlierZScore))
	values := make([]float64, 20)
	for i := range values {
		values[i] = 1
	}
	values[7] = 100
	require.NoError(t, p.Fit(frame.MustNew(frame.NewNumerical("x", values)), FitOptions{}))

	out, err := p.Transform(frame.MustNew(frame.NewNumerical("x", values)))
	require.NoError(t, err)
	x, _ := out.Column("x")
	assert.Equal(t, 1.0, x.Floats[7])
}

func TestSchemaMismatch(t *testing.T) {
	p := newPipeline(t)
	require.NoError(t, p.Fit(customers(20), FitOptions{Target: "churn"}))

	_, err := p.Transform(customers(20).Drop("plan", "income"))
	var sm *errors.SchemaMismatchError
	require.True(t, errors.As(err, &sm), "got %v", err)
	assert.Equal(t, []string{"income", "plan"}, sm.Missing)

	// the target is optional at transform time
	out, err := p.Transform(customers(20).Drop("churn"))
	require.NoError(t, err)
	assert.False(t, out.Has("churn"))
}

func TestFitValidation(t *testing.T) {
	t.Run("unknown target", func(t *testing.T) {
		err := newPipeline(t).Fit(customers(10), FitOptions{Target: "missing"})
		var sm *errors.SchemaMismatchError
		assert.True(t, errors.As(err, &sm))
	})
	t.Run("categorical listed as numerical", func(t *testing.T) {
		err := newPipeline(t).Fit(customers(10), FitOptions{Numerical: []string{"plan"}})
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})
	t.Run("selection without target", func(t *testing.T) {
		err := newPipeline(t, WithFeatureSelection(2)).Fit(customers(10), FitOptions{})
		var ce *errors.ConfigurationError
		assert.True(t, errors.As(err, &ce))
	})
	t.Run("too many components", func(t *testing.T) {
		err := newPipeline(t, WithPCA(50)).Fit(customers(10), FitOptions{Target: "churn"})
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})
	t.Run("empty", func(t *testing.T) {
		err := newPipeline(t).Fit(frame.MustNew(frame.NewNumerical("x", nil)), FitOptions{})
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})
}

func TestExplicitCategoricalNumericColumn(t *testing.T) {
	p := newPipeline(t)
	data := frame.MustNew(
		frame.NewNumerical("zip", []float64{10001, 94105, 10001}),
		frame.NewNumerical("x", []float64{1, 2, 3}),
	)
	require.NoError(t, p.Fit(data, FitOptions{Categorical: []string{"zip"}, Numerical: []string{"x"}}))
	out, err := p.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "zip_10001", "zip_94105"}, out.Names())
}

func TestExplicitListExcludesColumnFromInferredList(t *testing.T) {
	data := frame.MustNew(
		frame.NewNumerical("zip", []float64{10001, 94105, 10001}),
		frame.NewNumerical("x", []float64{1, 2, 3}),
		frame.NewCategorical("code", []string{"1", "2", "1"}),
	)

	p := newPipeline(t)
	require.NoError(t, p.Fit(data, FitOptions{Categorical: []string{"zip"}}))
	schema, err := p.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, schema.Numerical)
	assert.Equal(t, []string{"zip"}, schema.Categorical)

	p = newPipeline(t)
	err = p.Fit(data, FitOptions{Numerical: []string{"x"}})
	require.NoError(t, err)
	schema, err = p.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, schema.Numerical)
	assert.Equal(t, []string{"code"}, schema.Categorical)

	// Listing a column in both explicit lists is still rejected.
	err = newPipeline(t).Fit(data, FitOptions{Numerical: []string{"zip"}, Categorical: []string{"zip"}})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestRefitIsAtomic(t *testing.T) {
	p := newPipeline(t)
	require.NoError(t, p.Fit(customers(30), FitOptions{Target: "churn"}))
	before, err := p.Schema()
	require.NoError(t, err)

	require.Error(t, p.Fit(customers(30), FitOptions{Target: "nope"}))
	assert.True(t, p.IsFitted())
	after, err := p.Schema()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, p.Fit(ageCity(), FitOptions{}))
	replaced, _ := p.Schema()
	assert.Equal(t, []string{"city"}, replaced.Categorical)
}

// tenFeatures has informative columns f2, f5 and f7 for the target y.
func tenFeatures(n int) *frame.Frame {
	informative := map[int]bool{2: true, 5: true, 7: true}
	cols := make([]*frame.Column, 0, 11)
	for j := 0; j < 10; j++ {
		v := make([]float64, n)
		for i := range v {
			switch {
			case informative[j]:
				v[i] = float64(i%2) * float64(j+1)
			case j%2 == 0:
				v[i] = float64(i % 3)
			default:
				v[i] = float64(i % 5)
			}
		}
		cols = append(cols, frame.NewNumerical(fmt.Sprintf("f%d", j), v))
	}
	y := make([]float64, n)
	for i := range y {
		y[i] = float64(i % 2)
	}
	cols = append(cols, frame.NewNumerical("y", y))
	return frame.MustNew(cols...)
}

func TestFeatureSelectionTopK(t *testing.T) {
	p := newPipeline(t, WithFeatureSelection(3))
	data := tenFeatures(60)
	require.NoError(t, p.Fit(data, FitOptions{Target: "y"}))

	out, err := p.Transform(data)
	require.NoError(t, err)
	require.Equal(t, 4, out.NCols())
	assert.ElementsMatch(t, []string{"f2", "f5", "f7"}, out.Names()[:3])
	assert.Equal(t, "y", out.Names()[3])

	_, err = p.Transform(data.Drop("f5"))
	var sm *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &sm))
}

func TestSelectionThenPCA(t *testing.T) {
	p := newPipeline(t, WithFeatureSelection(3), WithPCA(2))
	data := tenFeatures(60)
	out, err := p.FitTransform(data, FitOptions{Target: "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PC1", "PC2", "y"}, out.Names())
	assert.Equal(t, 60, out.NRows())

	schema, _ := p.Schema()
	assert.Equal(t, []string{"PC1", "PC2"}, schema.Output)
	assert.Len(t, schema.Features, 10)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	configs := map[string][]Option{
		"default":  nil,
		"knn":      {WithImputation(ImputeKNN), WithScaling(ScalingRobust), WithEncoding(EncodeOrdinal)},
		"minmax":   {WithScaling(ScalingMinMax), WithEncoding(EncodeLabel), WithOutliers(OutlierZScore)},
		"reduce":   {WithFeatureSelection(0), WithPCA(2), WithImputation(ImputeMedian)},
		"unscaled": {WithScaling(ScalingNone), WithImputation(ImputeMode)},
	}
	for name, opts := range configs {
		t.Run(name, func(t *testing.T) {
			p := newPipeline(t, opts...)
			data := customers(80)
			require.NoError(t, p.Fit(data, FitOptions{Target: "churn"}))
			want, err := p.Transform(data)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, p.Save(&buf))
			loaded, err := Load(&buf)
			require.NoError(t, err)
			assert.Equal(t, p.Config(), loaded.Config())

			got, err := loaded.Transform(data)
			require.NoError(t, err)
			assert.Equal(t, want.Records(), got.Records())
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.gob")

	p := newPipeline(t)
	require.NoError(t, p.SaveFile(path))
	unfittedCopy, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, unfittedCopy.IsFitted())

	require.NoError(t, p.Fit(ageCity(), FitOptions{}))
	require.NoError(t, p.SaveFile(path))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.IsFitted())

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.gob"))
	assert.Error(t, err)
}

func TestObserverAndLogging(t *testing.T) {
	var mu sync.Mutex
	var ops []string
	obs := ObserverFunc(func(op string, _ time.Duration, rows int, err error) {
		mu.Lock()
		defer mu.Unlock()
		ops = append(ops, fmt.Sprintf("%s:%d:%t", op, rows, err == nil))
	})
	logger, _ := log.NewTestLogger(log.LevelDebug)
	cfg, _ := NewConfig()
	p, err := New(cfg, WithObserver(obs), WithLogger(logger))
	require.NoError(t, err)

	_, err = p.Transform(ageCity())
	require.Error(t, err)
	require.NoError(t, p.Fit(ageCity(), FitOptions{}))

	assert.Equal(t, []string{"transform:4:false", "fit:4:true"}, ops)
	assert.True(t, logger.ContainsMessage("pipeline fitted"))
	assert.True(t, logger.ContainsMessage("transform failed"))
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationFit))
}

func TestConcurrentTransform(t *testing.T) {
	p := newPipeline(t, WithImputation(ImputeKNN))
	data := customers(50)
	require.NoError(t, p.Fit(data, FitOptions{Target: "churn"}))
	want, err := p.Transform(data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Transform(data)
			assert.NoError(t, err)
			assert.Equal(t, want.Records(), got.Records())
		}()
	}
	wg.Wait()
}
