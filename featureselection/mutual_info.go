// Package featureselection scores features by mutual information against a
// target and keeps the most informative ones.
//
// Mutual information is estimated on a discretisation of each variable.
// Variables with few distinct values use those values as levels; continuous
// variables are cut into equal-frequency bins. Scores are in nats.
package featureselection

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/featurekit/core/stats"
	"github.com/YuminosukeSato/featurekit/frame"
)

// DiscreteLevels is the largest number of distinct values a variable may have
// and still be treated as discrete.
const DiscreteLevels = 20

const (
	minBins = 2
	maxBins = 20
)

// Task is the kind of supervised problem a target describes.
type Task int

const (
	Classification Task = iota
	Regression
)

func (t Task) String() string {
	if t == Classification {
		return "classification"
	}
	return "regression"
}

// TaskFor decides the scoring branch for a target column: categorical or
// whole-number targets are classification, anything else is regression.
func TaskFor(c *frame.Column) Task {
	if c.Kind == frame.Categorical || c.IsIntegral() {
		return Classification
	}
	return Regression
}

// Target is the variable features are scored against.
type Target struct {
	Name   string
	Task   Task
	Labels []string  // classification
	Values []float64 // regression
}

// NewTarget builds a Target from a column using TaskFor.
func NewTarget(c *frame.Column) Target {
	t := Target{Name: c.Name, Task: TaskFor(c)}
	if t.Task == Regression {
		t.Values = c.Floats
		return t
	}
	t.Labels = make([]string, c.Len())
	for i := range t.Labels {
		t.Labels[i] = c.String(i)
	}
	return t
}

// Len returns the number of rows.
func (t Target) Len() int {
	if t.Task == Regression {
		return len(t.Values)
	}
	return len(t.Labels)
}

func (t Target) missing(i int) bool {
	if t.Task == Regression {
		return math.IsNaN(t.Values[i])
	}
	return t.Labels[i] == ""
}

// MutualInformation estimates I(x; y) in nats. Rows where either side is
// missing are skipped. The result is never negative.
func MutualInformation(x []float64, y Target) float64 {
	rows := make([]int, 0, len(x))
	for i, v := range x {
		if i < y.Len() && !math.IsNaN(v) && !y.missing(i) {
			rows = append(rows, i)
		}
	}
	if len(rows) < 2 {
		return 0
	}

	xs := make([]float64, len(rows))
	for k, i := range rows {
		xs[k] = x[i]
	}
	a := discretize(xs)

	var b []int
	if y.Task == Classification {
		labels := make([]string, len(rows))
		for k, i := range rows {
			labels[k] = y.Labels[i]
		}
		b = codes(labels)
	} else {
		ys := make([]float64, len(rows))
		for k, i := range rows {
			ys[k] = y.Values[i]
		}
		b = discretize(ys)
	}
	return mutualInformation(a, b)
}

func mutualInformation(a, b []int) float64 {
	n := float64(len(a))
	type pair struct{ a, b int }
	joint := make(map[pair]float64)
	pa := make(map[int]float64)
	pb := make(map[int]float64)
	for i := range a {
		joint[pair{a[i], b[i]}]++
		pa[a[i]]++
		pb[b[i]]++
	}
	// Summation order is fixed so equal inputs give bit-identical scores.
	keys := make([]pair, 0, len(joint))
	for p := range joint {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	mi := 0.0
	for _, p := range keys {
		c := joint[p]
		mi += c / n * math.Log(c*n/(pa[p.a]*pb[p.b]))
	}
	if mi < 1e-12 {
		return 0
	}
	return mi
}

// discretize maps values to level indices.
func discretize(values []float64) []int {
	sorted := stats.SortedFinite(values)
	distinct := uniqueSorted(sorted)
	if len(distinct) <= DiscreteLevels {
		out := make([]int, len(values))
		for i, v := range values {
			out[i] = sort.SearchFloat64s(distinct, v)
		}
		return out
	}

	bins := int(math.Sqrt(float64(len(values))))
	if bins < minBins {
		bins = minBins
	}
	if bins > maxBins {
		bins = maxBins
	}
	edges := make([]float64, 0, bins-1)
	for k := 1; k < bins; k++ {
		edges = append(edges, stats.QuantileSorted(float64(k)/float64(bins), sorted))
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = sort.SearchFloat64s(edges, v)
	}
	return out
}

func uniqueSorted(sorted []float64) []float64 {
	out := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func codes(labels []string) []int {
	index := make(map[string]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		c, ok := index[l]
		if !ok {
			c = len(index)
			index[l] = c
		}
		out[i] = c
	}
	return out
}
