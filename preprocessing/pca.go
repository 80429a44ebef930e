package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/featurekit/core/model"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// PCA は中心化したデータの特異値分解による主成分分析
//
// 各主成分の符号は、絶対値が最大の負荷量が正になるように揃える。
// これにより同じデータからは常に同じ射影が得られる。
type PCA struct {
	model.BaseEstimator

	// NComponents は保持する主成分の数
	NComponents int

	// Mean は各特徴量の訓練平均
	Mean []float64

	// Components は主成分 (NComponents × n_features)
	Components [][]float64

	// ExplainedVariance は各主成分の分散 s²/(n-1)
	ExplainedVariance []float64

	// ExplainedVarianceRatio は全分散に対する各主成分の割合
	ExplainedVarianceRatio []float64
}

// NewPCA は新しいPCAを作成する
func NewPCA(nComponents int) *PCA {
	return &PCA{NComponents: nComponents}
}

// Fit は主成分を学習する
func (p *PCA) Fit(X mat.Matrix) error {
	r, c, err := checkFitInput("PCA.Fit", X)
	if err != nil {
		return err
	}
	if err := errors.CheckMatrix("PCA.Fit", X, r, c, 0); err != nil {
		return err
	}
	maxComponents := r
	if c < maxComponents {
		maxComponents = c
	}
	if p.NComponents < 1 || p.NComponents > maxComponents {
		return errors.NewValidationError("n_components",
			fmt.Sprintf("must be in [1, %d] (min of rows and columns)", maxComponents), p.NComponents)
	}

	p.Mean = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		p.Mean[j] = floats.Sum(col) / float64(r)
	}
	centered := mat.NewDense(r, c, nil)
	centered.Apply(func(i, j int, v float64) float64 { return v - p.Mean[j] }, X)

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return errors.NewModelError("PCA.Fit", "svd", errors.New("factorization did not converge"))
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	denom := float64(r - 1)
	if denom < 1 {
		denom = 1
	}
	total := 0.0
	for _, s := range values {
		total += s * s / denom
	}

	p.Components = make([][]float64, p.NComponents)
	p.ExplainedVariance = make([]float64, p.NComponents)
	p.ExplainedVarianceRatio = make([]float64, p.NComponents)
	for k := 0; k < p.NComponents; k++ {
		comp := make([]float64, c)
		mat.Col(comp, k, &v)
		flipSign(comp)
		p.Components[k] = comp
		p.ExplainedVariance[k] = values[k] * values[k] / denom
		p.ExplainedVarianceRatio[k] = errors.SafeDivide(p.ExplainedVariance[k], total)
	}
	p.SetFitted()
	return nil
}

// flipSign は絶対値最大の要素が正になるように符号を反転する
func flipSign(comp []float64) {
	maxIdx := 0
	for i, v := range comp {
		if math.Abs(v) > math.Abs(comp[maxIdx]) {
			maxIdx = i
		}
	}
	if comp[maxIdx] < 0 {
		for i := range comp {
			comp[i] = -comp[i]
		}
	}
}

// Transform はデータを主成分空間に射影する
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("PCA", "Transform")
	}
	r, c := X.Dims()
	if c != len(p.Mean) {
		return nil, errors.NewDimensionError("PCA.Transform", len(p.Mean), c, 1)
	}
	if err := errors.CheckMatrix("PCA.Transform", X, r, c, 0); err != nil {
		return nil, err
	}
	centered := mat.NewDense(r, c, nil)
	centered.Apply(func(i, j int, v float64) float64 { return v - p.Mean[j] }, X)

	basis := mat.NewDense(c, p.NComponents, nil)
	for k, comp := range p.Components {
		basis.SetCol(k, comp)
	}
	var out mat.Dense
	out.Mul(centered, basis)
	return &out, nil
}

// FitTransform は学習と射影を続けて行う
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// ComponentNames は出力列名 PC1..PCk を返す
func (p *PCA) ComponentNames() []string {
	names := make([]string, p.NComponents)
	for k := range names {
		names[k] = fmt.Sprintf("PC%d", k+1)
	}
	return names
}

// GetParams はパラメータを取得する
func (p *PCA) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_components": p.NComponents}
}
