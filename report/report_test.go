package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/featurekit/featureselection"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/tabular"
)

var scores = []featureselection.Score{
	{Feature: "income", Score: 0.4213},
	{Feature: "plan_pro", Score: 0.1},
	{Feature: "a|b", Score: 0},
}

func TestImportanceMarkdown(t *testing.T) {
	md := ImportanceMarkdown("churn", scores)
	assert.Contains(t, md, "`churn`")
	assert.Contains(t, md, "| 1 | income | 0.4213 |")
	assert.Contains(t, md, `| 3 | a\|b | 0.0000 |`)
}

func TestDriftMarkdown(t *testing.T) {
	md := DriftMarkdown([]tabular.DriftResult{
		{Feature: "age", KSStatistic: 0.5, PValue: 0.001, Drifted: true, TrainMean: 40, ProdMean: 50, MeanShiftPct: 25, MeanShiftDefined: true},
		{Feature: "delta", KSStatistic: 0.05, PValue: 0.9, TrainMean: 0, ProdMean: 0.1},
	})
	assert.Contains(t, md, "| age | 0.5000 | 0.001 | **yes** | 40 | 50 | +25.0% |")
	assert.Contains(t, md, "| delta | 0.0500 | 0.9 | no | 0 | 0.1 | n/a |")
	assert.Contains(t, md, "1 of 2 features drifted")
}

func TestRender(t *testing.T) {
	out, err := Render(ImportanceMarkdown("churn", scores), StyleNoTTY, 100)
	require.NoError(t, err)
	assert.Contains(t, out, "income")
	assert.Contains(t, out, "plan_pro")

	_, err = Render("# x", "sepia-ish", 80)
	var cerr *errors.ConfigurationError
	assert.True(t, errors.As(err, &cerr))
}

func TestImportanceChart(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, b []byte)
	}{
		{"png", func(t *testing.T, b []byte) { assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG"))) }},
		{"svg", func(t *testing.T, b []byte) { assert.Contains(t, string(b), "<svg") }},
		{"pdf", func(t *testing.T, b []byte) { assert.True(t, bytes.HasPrefix(b, []byte("%PDF"))) }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, ImportanceChart(&buf, tt.format, "churn", scores))
			tt.check(t, buf.Bytes())
		})
	}

	var buf bytes.Buffer
	assert.Error(t, ImportanceChart(&buf, "gif", "churn", scores))
	assert.Error(t, ImportanceChart(&buf, "png", "churn", nil))
}

func TestImportanceChartCapsBars(t *testing.T) {
	many := make([]featureselection.Score, MaxChartBars+10)
	for i := range many {
		many[i] = featureselection.Score{Feature: strings.Repeat("f", i%5+1), Score: float64(len(many) - i)}
	}
	p, err := importancePlot("y", many)
	require.NoError(t, err)
	assert.Len(t, p.X.Tick.Marker.Ticks(p.X.Min, p.X.Max), MaxChartBars)
}

func TestSaveImportanceChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importance.svg")
	require.NoError(t, SaveImportanceChart(path, "churn", scores))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, SaveImportanceChart(filepath.Join(t.TempDir(), "x.bmp"), "churn", scores))
}
