// Package preprocessing は表形式パイプラインの各ステージが使う学習済み部品
// (スケーラー、補完器、エンコーダー、外れ値処理、PCA) を提供する。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/featurekit/core/model"
	"github.com/YuminosukeSato/featurekit/core/stats"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// ScalingMethod は数値列のスケーリング方式
type ScalingMethod string

const (
	ScalingStandard ScalingMethod = "standard"
	ScalingMinMax   ScalingMethod = "minmax"
	ScalingRobust   ScalingMethod = "robust"
	ScalingNone     ScalingMethod = "none"
)

// ScalingMethods は受け付けるスケーリング方式の一覧
var ScalingMethods = []string{
	string(ScalingStandard), string(ScalingMinMax), string(ScalingRobust), string(ScalingNone),
}

// Valid reports whether m is a known scaling method.
func (m ScalingMethod) Valid() bool {
	switch m {
	case ScalingStandard, ScalingMinMax, ScalingRobust, ScalingNone:
		return true
	}
	return false
}

// zeroScaleEpsilon 未満の散らばりは定数列として扱う
const zeroScaleEpsilon = 1e-8

// Scaler は学習した統計量で数値行列を変換し、元に戻せる変換器
type Scaler interface {
	model.Transformer
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
	IsFitted() bool
}

// NewScaler はスケーリング方式に対応するスケーラーを作成する。
// ScalingNone の場合はスケーリングを行わないため nil を返す。
func NewScaler(method ScalingMethod) (Scaler, error) {
	switch method {
	case ScalingStandard:
		return NewStandardScaler(), nil
	case ScalingMinMax:
		return NewMinMaxScaler(), nil
	case ScalingRobust:
		return NewRobustScaler(), nil
	case ScalingNone:
		return nil, nil
	default:
		return nil, errors.NewConfigurationError("scaling_method", method, ScalingMethods...)
	}
}

// Affine は (x - Center) / Scale 形式のスケーラーで共有する変換処理
type Affine struct {
	Center []float64
	Scale  []float64
}

// checkStable は学習した中心とスケールに NaN や無限大が含まれないことを確認する。
// 巨大な値で分散があふれた場合などに NumericalInstabilityError を返す。
func (a *Affine) checkStable(op string) error {
	if err := errors.CheckNumericalStability(op+" center", a.Center, 0); err != nil {
		return err
	}
	return errors.CheckNumericalStability(op+" scale", a.Scale, 0)
}

func (a *Affine) apply(op string, X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if c != len(a.Center) {
		return nil, errors.NewDimensionError(op, len(a.Center), c, 1)
	}
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - a.Center[j]) / a.Scale[j]
	}, X)
	return result, nil
}

func (a *Affine) invert(op string, X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if c != len(a.Center) {
		return nil, errors.NewDimensionError(op, len(a.Center), c, 1)
	}
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*a.Scale[j] + a.Center[j]
	}, X)
	return result, nil
}

func columnValues(X mat.Matrix, j int) []float64 {
	r, _ := X.Dims()
	col := make([]float64, r)
	mat.Col(col, j, X)
	return stats.NonMissing(col)
}

func nonZeroScale(s float64) float64 {
	if math.IsNaN(s) || math.Abs(s) < zeroScaleEpsilon {
		return 1.0
	}
	return s
}

func checkFitInput(op string, X mat.Matrix) (int, int, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	return r, c, nil
}

// StandardScaler はデータを平均0、標準偏差1に変換する。
// 標準偏差は母標準偏差 (自由度 n) を使い、0 の列はスケール 1 とする。
type StandardScaler struct {
	model.BaseEstimator
	Affine
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler()
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit は訓練データから各列の平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	_, c, err := checkFitInput("StandardScaler.Fit", X)
	if err != nil {
		return err
	}
	s.Center = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		mean, std := stat.PopMeanStdDev(columnValues(X, j), nil)
		s.Center[j] = mean
		s.Scale[j] = nonZeroScale(std)
	}
	if err := s.checkStable("StandardScaler.Fit"); err != nil {
		return err
	}
	s.SetFitted()
	return nil
}

// Transform は学習済みの統計量でデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	return s.apply("StandardScaler.Transform", X)
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	return s.invert("StandardScaler.InverseTransform", X)
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"method": string(ScalingStandard)}
}

func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(n_features=%d)", len(s.Center))
}

// MinMaxScaler はデータを学習範囲 [min, max] から [0, 1] に写像する。
// 定数列はスケール 1 となり、値は 0 に揃う。
type MinMaxScaler struct {
	model.BaseEstimator
	Affine
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit は訓練データから各列の最小値と範囲を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	_, c, err := checkFitInput("MinMaxScaler.Fit", X)
	if err != nil {
		return err
	}
	m.Center = make([]float64, c)
	m.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		values := columnValues(X, j)
		if len(values) == 0 {
			m.Scale[j] = 1
			continue
		}
		lo, hi := values[0], values[0]
		for _, v := range values[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		m.Center[j] = lo
		m.Scale[j] = nonZeroScale(hi - lo)
	}
	if err := m.checkStable("MinMaxScaler.Fit"); err != nil {
		return err
	}
	m.SetFitted()
	return nil
}

// Transform は学習した範囲でデータをスケーリングする。学習範囲外の値は [0,1] の外に出る。
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	return m.apply("MinMaxScaler.Transform", X)
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform はスケーリングされたデータを元の範囲に戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "InverseTransform")
	}
	return m.invert("MinMaxScaler.InverseTransform", X)
}

// GetParams はスケーラーのパラメータを取得する
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"method": string(ScalingMinMax), "feature_range": [2]float64{0, 1}}
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[0.0, 1.0], n_features=%d)", len(m.Center))
}

// RobustScaler は中央値を引き、四分位範囲 (Q3 - Q1) で割る。
// 外れ値の影響を受けにくい。四分位範囲が 0 の列はスケール 1 とする。
type RobustScaler struct {
	model.BaseEstimator
	Affine
}

// NewRobustScaler は新しいRobustScalerを作成する
func NewRobustScaler() *RobustScaler {
	return &RobustScaler{}
}

// Fit は訓練データから各列の中央値と四分位範囲を計算する
func (s *RobustScaler) Fit(X mat.Matrix) error {
	_, c, err := checkFitInput("RobustScaler.Fit", X)
	if err != nil {
		return err
	}
	s.Center = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		sorted := stats.SortedFinite(columnValues(X, j))
		if len(sorted) == 0 {
			s.Scale[j] = 1
			continue
		}
		s.Center[j] = stats.QuantileSorted(0.5, sorted)
		s.Scale[j] = nonZeroScale(stats.QuantileSorted(0.75, sorted) - stats.QuantileSorted(0.25, sorted))
	}
	if err := s.checkStable("RobustScaler.Fit"); err != nil {
		return err
	}
	s.SetFitted()
	return nil
}

// Transform は学習済みの中央値と四分位範囲でデータを変換する
func (s *RobustScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("RobustScaler", "Transform")
	}
	return s.apply("RobustScaler.Transform", X)
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *RobustScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は変換されたデータを元のスケールに戻す
func (s *RobustScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("RobustScaler", "InverseTransform")
	}
	return s.invert("RobustScaler.InverseTransform", X)
}

// GetParams はスケーラーのパラメータを取得する
func (s *RobustScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"method": string(ScalingRobust), "quantile_range": [2]float64{25, 75}}
}

func (s *RobustScaler) String() string {
	return fmt.Sprintf("RobustScaler(n_features=%d)", len(s.Center))
}
