package tabular

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/log"
)

// benchmarkFrame builds a reproducible mixed dataset with roughly 5% missing
// numerical values and a binary target.
func benchmarkFrame(rows, numerical int) *frame.Frame {
	rng := rand.New(rand.NewPCG(42, 42))
	plans := []string{"basic", "pro", "team", "enterprise"}

	cols := make([]*frame.Column, 0, numerical+2)
	for j := 0; j < numerical; j++ {
		values := make([]float64, rows)
		for i := range values {
			values[i] = rng.Float64()*float64(j+1) - 0.5
			if rng.Float64() < 0.05 {
				values[i] = math.NaN()
			}
		}
		cols = append(cols, frame.NewNumerical(fmt.Sprintf("x%d", j), values))
	}
	plan := make([]string, rows)
	target := make([]float64, rows)
	for i := range plan {
		plan[i] = plans[rng.IntN(len(plans))]
		if rng.Float64() < 0.3 {
			target[i] = 1
		}
	}
	cols = append(cols,
		frame.NewCategorical("plan", plan),
		frame.NewNumerical("target", target),
	)
	return frame.MustNew(cols...)
}

func benchmarkPipeline(b *testing.B, opts ...Option) *Pipeline {
	b.Helper()
	cfg, err := NewConfig(opts...)
	if err != nil {
		b.Fatal(err)
	}
	logger, _ := log.NewTestLogger(log.LevelError)
	p, err := New(cfg, WithLogger(logger))
	if err != nil {
		b.Fatal(err)
	}
	return p
}

var benchmarkSizes = []struct {
	name string
	rows int
	cols int
}{
	{"Small_100x5", 100, 5},
	{"Medium_1000x10", 1000, 10},
	{"Large_10000x20", 10000, 20},
}

func BenchmarkPipelineFit(b *testing.B) {
	for _, size := range benchmarkSizes {
		b.Run(size.name, func(b *testing.B) {
			data := benchmarkFrame(size.rows, size.cols)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p := benchmarkPipeline(b)
				if err := p.Fit(data, FitOptions{Target: "target"}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPipelineTransform(b *testing.B) {
	for _, size := range benchmarkSizes {
		b.Run(size.name, func(b *testing.B) {
			data := benchmarkFrame(size.rows, size.cols)
			p := benchmarkPipeline(b)
			if err := p.Fit(data, FitOptions{Target: "target"}); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Transform(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// KNN imputation and mutual information dominate fit time on wide frames.
func BenchmarkPipelineFitKNNSelection(b *testing.B) {
	data := benchmarkFrame(2000, 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := benchmarkPipeline(b, WithImputation(ImputeKNN), WithFeatureSelection(5))
		if err := p.Fit(data, FitOptions{Target: "target"}); err != nil {
			b.Fatal(err)
		}
	}
}
