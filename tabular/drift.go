package tabular

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/featurekit/core/stats"
	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// DriftSignificance is the p-value below which a column is reported as drifted.
const DriftSignificance = 0.05

// DriftResult compares one numerical column between a training and a
// production dataset.
type DriftResult struct {
	Feature     string  `json:"feature"`
	KSStatistic float64 `json:"ks_statistic"`
	PValue      float64 `json:"p_value"`
	Drifted     bool    `json:"drift_detected"`
	TrainMean   float64 `json:"train_mean"`
	ProdMean    float64 `json:"prod_mean"`
	// MeanShiftPct is (prod - train) / train · 100. It is undefined, and
	// reported as 0 with MeanShiftDefined false, when the training mean is 0.
	MeanShiftPct     float64 `json:"mean_shift_pct"`
	MeanShiftDefined bool    `json:"mean_shift_defined"`
}

// DetectDrift runs a two-sample Kolmogorov–Smirnov test and a mean shift
// comparison per column. With no columns given, every numerical column of
// train that prod also has is compared. Missing values are ignored.
func DetectDrift(train, prod *frame.Frame, columns []string) ([]DriftResult, error) {
	if columns == nil {
		for _, name := range train.NamesOfKind(frame.Numerical) {
			if prod.Has(name) {
				columns = append(columns, name)
			}
		}
	}
	if missing := train.Missing(columns); len(missing) > 0 {
		return nil, errors.NewSchemaMismatchError("drift", missing...)
	}
	if missing := prod.Missing(columns); len(missing) > 0 {
		return nil, errors.NewSchemaMismatchError("drift", missing...)
	}

	results := make([]DriftResult, 0, len(columns))
	for _, name := range columns {
		a, _ := train.Column(name)
		b, _ := prod.Column(name)
		if a.Kind != frame.Numerical || b.Kind != frame.Numerical {
			return nil, errors.NewValidationError(name, "drift detection requires numerical columns", a.Kind.String())
		}
		x := stats.SortedFinite(a.Floats)
		y := stats.SortedFinite(b.Floats)
		if len(x) == 0 || len(y) == 0 {
			return nil, errors.NewValueError("tabular.DetectDrift", "column "+name+" has no observed values")
		}

		d := stat.KolmogorovSmirnov(x, nil, y, nil)
		p := ksPValue(d, len(x), len(y))
		r := DriftResult{
			Feature:     name,
			KSStatistic: d,
			PValue:      p,
			Drifted:     p < DriftSignificance,
			TrainMean:   stat.Mean(x, nil),
			ProdMean:    stat.Mean(y, nil),
		}
		if r.TrainMean != 0 {
			r.MeanShiftPct = (r.ProdMean - r.TrainMean) / r.TrainMean * 100
			r.MeanShiftDefined = true
		}
		results = append(results, r)
	}
	return results, nil
}

// ksPValue is the asymptotic two-sided p-value of the KS statistic d for
// samples of size n and m:
//
//	Q(λ) = 2 Σ_{j≥1} (-1)^{j-1} exp(-2 j² λ²),  λ = (√N + 0.12 + 0.11/√N)·d,  N = nm/(n+m)
func ksPValue(d float64, n, m int) float64 {
	en := math.Sqrt(float64(n) * float64(m) / float64(n+m))
	lambda := (en + 0.12 + 0.11/en) * d
	if lambda < 1e-3 {
		return 1
	}
	sum, sign := 0.0, 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	return errors.ClipValue(2*sum, 0, 1)
}
