package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/featurekit/core/stats"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// OutlierMethod は外れ値処理の方式
type OutlierMethod string

const (
	OutlierIQR    OutlierMethod = "iqr"
	OutlierZScore OutlierMethod = "zscore"
	OutlierNone   OutlierMethod = "none"
)

// OutlierMethods は受け付ける外れ値処理方式の一覧
var OutlierMethods = []string{string(OutlierIQR), string(OutlierZScore), string(OutlierNone)}

// Valid reports whether m is a known outlier method.
func (m OutlierMethod) Valid() bool {
	switch m {
	case OutlierIQR, OutlierZScore, OutlierNone:
		return true
	}
	return false
}

const (
	// IQRFactor は IQR クリッピングの境界係数
	IQRFactor = 1.5
	// ZScoreThreshold を超える |z| の値を外れ値とみなす
	ZScoreThreshold = 3.0
)

// ClipOutliers は与えられた列自身の統計量で外れ値を処理した新しいスライスを返す。
// 学習は行わないため、Transform 時は変換対象データの統計量が使われる。
// 観測値が2未満の列はそのまま返す。NaN はそのまま残す。
func ClipOutliers(method OutlierMethod, values []float64) ([]float64, error) {
	switch method {
	case OutlierIQR:
		return ClipIQR(values), nil
	case OutlierZScore:
		return ReplaceZScore(values, ZScoreThreshold), nil
	case OutlierNone:
		out := make([]float64, len(values))
		copy(out, values)
		return out, nil
	default:
		return nil, errors.NewConfigurationError("outlier_method", method, OutlierMethods...)
	}
}

// ClipIQR は値を [Q1 - 1.5·IQR, Q3 + 1.5·IQR] に収める
func ClipIQR(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sorted := stats.SortedFinite(values)
	if len(sorted) < 2 {
		return out
	}
	q1 := stats.QuantileSorted(0.25, sorted)
	q3 := stats.QuantileSorted(0.75, sorted)
	iqr := q3 - q1
	lower, upper := q1-IQRFactor*iqr, q3+IQRFactor*iqr
	for i, v := range out {
		if !math.IsNaN(v) {
			out[i] = errors.ClipValue(v, lower, upper)
		}
	}
	return out
}

// ReplaceZScore は標本標準偏差による |z| が threshold を超える値を列の中央値で置き換える。
// 標準偏差が 0 の列はそのまま返す。
func ReplaceZScore(values []float64, threshold float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	observed := stats.NonMissing(values)
	if len(observed) < 2 {
		return out
	}
	mean, std := stat.MeanStdDev(observed, nil)
	if std == 0 || math.IsNaN(std) {
		return out
	}
	median := stats.Median(observed)
	for i, v := range out {
		if math.IsNaN(v) {
			continue
		}
		if math.Abs((v-mean)/std) > threshold {
			out[i] = median
		}
	}
	return out
}
