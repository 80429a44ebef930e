// Package report renders feature importance and drift results as terminal
// markdown and charts.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/YuminosukeSato/featurekit/featureselection"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// Glamour style names accepted by Render besides "auto".
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// ImportanceMarkdown formats scores as a ranked markdown table.
func ImportanceMarkdown(target string, scores []featureselection.Score) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Feature importance for `%s`\n\n", target)
	b.WriteString("| Rank | Feature | Mutual information |\n")
	b.WriteString("|---:|---|---:|\n")
	for i, s := range scores {
		fmt.Fprintf(&b, "| %d | %s | %.4f |\n", i+1, escape(s.Feature), s.Score)
	}
	return b.String()
}

// DriftMarkdown formats drift results as a markdown table, followed by a
// one-line summary.
func DriftMarkdown(results []tabular.DriftResult) string {
	var b strings.Builder
	b.WriteString("# Distribution drift\n\n")
	b.WriteString("| Feature | KS | p-value | Drift | Train mean | Prod mean | Shift |\n")
	b.WriteString("|---|---:|---:|:---:|---:|---:|---:|\n")
	drifted := 0
	for _, r := range results {
		mark := "no"
		if r.Drifted {
			mark = "**yes**"
			drifted++
		}
		shift := "n/a"
		if r.MeanShiftDefined {
			shift = fmt.Sprintf("%+.1f%%", r.MeanShiftPct)
		}
		fmt.Fprintf(&b, "| %s | %.4f | %.4g | %s | %.4g | %.4g | %s |\n",
			escape(r.Feature), r.KSStatistic, r.PValue, mark, r.TrainMean, r.ProdMean, shift)
	}
	fmt.Fprintf(&b, "\n%d of %d features drifted (p < %.2f).\n", drifted, len(results), tabular.DriftSignificance)
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Render renders markdown for a terminal. width <= 0 disables wrapping.
func Render(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch style {
	case "", StyleAuto:
		opts = append(opts, glamour.WithAutoStyle())
	case StyleDark, StyleLight, StyleNoTTY:
		opts = append(opts, glamour.WithStandardStyle(style))
	default:
		return "", errors.NewConfigurationError("style", style, StyleAuto, StyleDark, StyleLight, StyleNoTTY)
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", errors.Wrap(err, "failed to create markdown renderer")
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return out, nil
}
