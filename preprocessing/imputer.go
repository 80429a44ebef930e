package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/featurekit/core/model"
	"github.com/YuminosukeSato/featurekit/core/parallel"
	"github.com/YuminosukeSato/featurekit/core/stats"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// ImputationMethod は数値列の欠損補完方式
type ImputationMethod string

const (
	ImputeMean   ImputationMethod = "mean"
	ImputeMedian ImputationMethod = "median"
	ImputeMode   ImputationMethod = "mode"
	ImputeKNN    ImputationMethod = "knn"
)

// ImputationMethods は受け付ける補完方式の一覧
var ImputationMethods = []string{
	string(ImputeMean), string(ImputeMedian), string(ImputeMode), string(ImputeKNN),
}

// Valid reports whether m is a known imputation method.
func (m ImputationMethod) Valid() bool {
	switch m {
	case ImputeMean, ImputeMedian, ImputeMode, ImputeKNN:
		return true
	}
	return false
}

// DefaultNeighbors はKNN補完の既定の近傍数
const DefaultNeighbors = 5

// knnParallelThreshold 以下の行数では逐次処理する
const knnParallelThreshold = 256

// UnknownCategory はすべて欠損のカテゴリ列を埋める値
const UnknownCategory = "unknown"

// Imputer は学習した値で NaN を埋める変換器
type Imputer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	IsFitted() bool
}

// NewImputer は補完方式に対応する Imputer を作成する。neighbors は ImputeKNN のみ使用する。
func NewImputer(method ImputationMethod, neighbors int) (Imputer, error) {
	switch method {
	case ImputeMean, ImputeMedian, ImputeMode:
		return NewSimpleImputer(method), nil
	case ImputeKNN:
		return NewKNNImputer(neighbors)
	default:
		return nil, errors.NewConfigurationError("imputation_method", method, ImputationMethods...)
	}
}

// SimpleImputer は列ごとの統計量 (平均、中央値、最頻値) で欠損を埋める
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy は統計量の種類
	Strategy ImputationMethod

	// Statistics は各列の補完値
	Statistics []float64
}

// NewSimpleImputer は新しいSimpleImputerを作成する
func NewSimpleImputer(strategy ImputationMethod) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit は各列の補完値を学習する。
// すべて欠損の列は 0 で埋め、DataConversionWarning を通知する。
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	_, c, err := checkFitInput("SimpleImputer.Fit", X)
	if err != nil {
		return err
	}
	s.Statistics = make([]float64, c)
	for j := 0; j < c; j++ {
		values := columnValues(X, j)
		if len(values) == 0 {
			errors.Warn(errors.NewDataConversionWarning("missing", "0",
				fmt.Sprintf("column %d has no observed values; imputing 0", j)))
			continue
		}
		switch s.Strategy {
		case ImputeMean:
			s.Statistics[j] = stat.Mean(values, nil)
		case ImputeMedian:
			s.Statistics[j] = stats.Median(values)
		case ImputeMode:
			s.Statistics[j] = numericMode(values)
		default:
			return errors.NewConfigurationError("imputation_method", s.Strategy,
				string(ImputeMean), string(ImputeMedian), string(ImputeMode))
		}
	}
	s.SetFitted()
	return nil
}

// Transform は NaN を学習済みの補完値で置き換える
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != len(s.Statistics) {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", len(s.Statistics), c, 1)
	}
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}

// numericMode は最頻値を返す。同数の場合は最小値。
func numericMode(values []float64) float64 {
	sorted := stats.SortedFinite(values)
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		k := i
		for k < len(sorted) && sorted[k] == sorted[i] {
			k++
		}
		if k-i > bestCount {
			best, bestCount = sorted[i], k-i
		}
		i = k
	}
	return best
}

// KNNImputer は欠損を含む行に対し、NaN を考慮したユークリッド距離で
// 最も近い k 個の訓練行を探し、その値の平均で補完する。
//
// 距離は両方で観測されている列だけで計算し、観測列の割合で重み付けする:
//
//	d(a, b) = sqrt(n_features / n_present * Σ (a_j - b_j)^2)
//
// 補完対象の列を観測している訓練行がない場合は訓練データの列平均を使う。
type KNNImputer struct {
	model.BaseEstimator

	// NNeighbors は平均をとる近傍数
	NNeighbors int

	// Train は訓練データ (行ごと)
	Train [][]float64

	// ColumnMeans は近傍が見つからない場合の補完値
	ColumnMeans []float64
}

// NewKNNImputer は新しいKNNImputerを作成する
func NewKNNImputer(neighbors int) (*KNNImputer, error) {
	if neighbors <= 0 {
		return nil, errors.NewConfigurationErrorf("knn_neighbors", neighbors, "must be positive")
	}
	return &KNNImputer{NNeighbors: neighbors}, nil
}

// Fit は訓練行と列平均を保持する
func (k *KNNImputer) Fit(X mat.Matrix) error {
	r, c, err := checkFitInput("KNNImputer.Fit", X)
	if err != nil {
		return err
	}
	k.Train = make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		mat.Row(row, i, X)
		k.Train[i] = row
	}
	k.ColumnMeans = make([]float64, c)
	for j := 0; j < c; j++ {
		values := columnValues(X, j)
		if len(values) == 0 {
			errors.Warn(errors.NewDataConversionWarning("missing", "0",
				fmt.Sprintf("column %d has no observed values; imputing 0", j)))
			continue
		}
		k.ColumnMeans[j] = stat.Mean(values, nil)
	}
	k.SetFitted()
	return nil
}

type donor struct {
	row  int
	dist float64
}

// Transform は各行の欠損を近傍の平均で埋める。行は並列に処理される。
func (k *KNNImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !k.IsFitted() {
		return nil, errors.NewNotFittedError("KNNImputer", "Transform")
	}
	r, c := X.Dims()
	if c != len(k.ColumnMeans) {
		return nil, errors.NewDimensionError("KNNImputer.Transform", len(k.ColumnMeans), c, 1)
	}
	result := mat.DenseCopyOf(X)

	parallel.ForEach(r, knnParallelThreshold, func(i int) {
		row := result.RawRowView(i)
		var missing []int
		for j, v := range row {
			if math.IsNaN(v) {
				missing = append(missing, j)
			}
		}
		if len(missing) == 0 {
			return
		}
		donors := k.rank(row)
		for _, j := range missing {
			row[j] = k.impute(donors, j)
		}
	})
	return result, nil
}

// rank は距離が定義できる訓練行を距離の昇順 (同距離は行番号順) に並べる
func (k *KNNImputer) rank(row []float64) []donor {
	donors := make([]donor, 0, len(k.Train))
	for t, train := range k.Train {
		if d, ok := nanEuclidean(row, train); ok {
			donors = append(donors, donor{row: t, dist: d})
		}
	}
	sort.SliceStable(donors, func(a, b int) bool { return donors[a].dist < donors[b].dist })
	return donors
}

func (k *KNNImputer) impute(donors []donor, j int) float64 {
	sum, n := 0.0, 0
	for _, d := range donors {
		v := k.Train[d.row][j]
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
		if n == k.NNeighbors {
			break
		}
	}
	if n == 0 {
		return k.ColumnMeans[j]
	}
	return sum / float64(n)
}

func nanEuclidean(a, b []float64) (float64, bool) {
	sum, present := 0.0, 0
	for j := range a {
		if math.IsNaN(a[j]) || math.IsNaN(b[j]) {
			continue
		}
		d := a[j] - b[j]
		sum += d * d
		present++
	}
	if present == 0 {
		return 0, false
	}
	return math.Sqrt(float64(len(a)) / float64(present) * sum), true
}

// CategoricalMode はカテゴリ列の最頻値を返す。
// 同数の場合は辞書順で最小の値、すべて欠損なら UnknownCategory。
func CategoricalMode(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	best, bestCount := UnknownCategory, 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

// ImputeCategorical は欠損 (空文字列) を与えられたデータ自身の最頻値で埋めた新しいスライスを返す。
// 学習は行わない。
func ImputeCategorical(values []string) []string {
	fill := CategoricalMode(values)
	out := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			v = fill
		}
		out[i] = v
	}
	return out
}
