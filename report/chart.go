package report

import (
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/featurekit/featureselection"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// MaxChartBars caps the number of features drawn.
const MaxChartBars = 30

// ChartFormats are the image formats ImportanceChart writes.
var ChartFormats = []string{"png", "svg", "pdf"}

func importancePlot(target string, scores []featureselection.Score) (*plot.Plot, error) {
	if len(scores) == 0 {
		return nil, errors.NewValidationError("scores", "at least one score is required", 0)
	}
	if len(scores) > MaxChartBars {
		scores = scores[:MaxChartBars]
	}

	values := make(plotter.Values, len(scores))
	names := make([]string, len(scores))
	for i, s := range scores {
		values[i] = s.Score
		names[i] = s.Feature
	}

	p := plot.New()
	p.Title.Text = "Feature importance: " + target
	p.Y.Label.Text = "mutual information (nats)"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

func chartSize(n int) (vg.Length, vg.Length) {
	w := vg.Length(math.Max(4, float64(n)*0.35+1.5)) * vg.Inch
	return w, 4 * vg.Inch
}

// ImportanceChart writes a bar chart of scores to w in format ("png", "svg"
// or "pdf").
func ImportanceChart(w io.Writer, format, target string, scores []featureselection.Score) error {
	if !validFormat(format) {
		return errors.NewConfigurationError("format", format, ChartFormats...)
	}
	p, err := importancePlot(target, scores)
	if err != nil {
		return err
	}
	width, height := chartSize(len(scores))
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return errors.Wrap(err, "failed to render chart")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write chart")
	}
	return nil
}

// SaveImportanceChart writes the chart to path, choosing the format from its
// extension.
func SaveImportanceChart(path, target string, scores []featureselection.Score) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !validFormat(format) {
		return errors.NewConfigurationError("format", format, ChartFormats...)
	}
	p, err := importancePlot(target, scores)
	if err != nil {
		return err
	}
	width, height := chartSize(len(scores))
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "failed to save chart to %s", path)
	}
	return nil
}

func validFormat(format string) bool {
	for _, f := range ChartFormats {
		if f == format {
			return true
		}
	}
	return false
}
