package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	x := []float64{100, 1, 3, 2, 4}

	assert.Equal(t, 2.0, Quantile(0.25, x))
	assert.Equal(t, 3.0, Quantile(0.5, x))
	assert.Equal(t, 4.0, Quantile(0.75, x))
	assert.Equal(t, 1.0, Quantile(0, x))
	assert.Equal(t, 100.0, Quantile(1, x))
	assert.InDelta(t, 2.5, Quantile(0.375, x), 1e-12)
}

func TestQuantileIgnoresNaN(t *testing.T) {
	x := []float64{math.NaN(), 10, 20, math.NaN()}
	assert.Equal(t, 15.0, Median(x))
	assert.True(t, math.IsNaN(Median([]float64{math.NaN()})))
	assert.Equal(t, 7.0, Median([]float64{7}))
}

func TestNonMissingKeepsOrder(t *testing.T) {
	assert.Equal(t, []float64{3, 1}, NonMissing([]float64{3, math.NaN(), 1}))
}
