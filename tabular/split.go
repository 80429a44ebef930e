package tabular

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// SplitOptions configures TrainTestSplit.
type SplitOptions struct {
	// TestSize is the fraction of rows in the test set, in (0, 1).
	TestSize float64
	// Stratify keeps the target's class proportions in both sets.
	Stratify bool
	// Seed makes the shuffle reproducible.
	Seed uint64
}

// DefaultSplitOptions returns a stratified 80/20 split with seed 42.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{TestSize: 0.2, Stratify: true, Seed: 42}
}

// TrainTestSplit shuffles the rows of f into a train and a test frame.
// Both frames keep the original relative row order. With Stratify, every
// target class contributes round(TestSize·count) rows to the test set.
func TrainTestSplit(f *frame.Frame, target string, opts SplitOptions) (train, test *frame.Frame, err error) {
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", opts.TestSize)
	}
	if f.NRows() < 2 {
		return nil, nil, errors.NewValidationError("dataset", "need at least 2 rows to split", f.NRows())
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var testRows []int
	if opts.Stratify {
		y, ok := f.Column(target)
		if !ok {
			return nil, nil, errors.NewSchemaMismatchError("split", target)
		}
		testRows = stratifiedTestRows(y, opts.TestSize, rng)
	} else {
		perm := rng.Perm(f.NRows())
		nTest := int(math.Ceil(opts.TestSize * float64(f.NRows())))
		if nTest >= f.NRows() {
			nTest = f.NRows() - 1
		}
		testRows = perm[:nTest]
	}

	inTest := make([]bool, f.NRows())
	for _, r := range testRows {
		inTest[r] = true
	}
	var trainRows []int
	testRows = testRows[:0]
	for i, t := range inTest {
		if t {
			testRows = append(testRows, i)
		} else {
			trainRows = append(trainRows, i)
		}
	}
	return f.Take(trainRows), f.Take(testRows), nil
}

func stratifiedTestRows(y *frame.Column, testSize float64, rng *rand.Rand) []int {
	groups := make(map[string][]int)
	for i := 0; i < y.Len(); i++ {
		key := y.String(i)
		groups[key] = append(groups[key], i)
	}
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var test []int
	for _, l := range labels {
		rows := groups[l]
		rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })
		n := int(math.Round(testSize * float64(len(rows))))
		test = append(test, rows[:n]...)
	}
	return test
}
