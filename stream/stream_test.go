package stream

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// doubler multiplies every value by two after an index-dependent delay so
// that workers finish out of order.
type doubler struct{ calls atomic.Int32 }

func (d *doubler) Transform(f *frame.Frame) (*frame.Frame, error) {
	d.calls.Add(1)
	c, _ := f.Column("x")
	if c.Floats[0] < 0 {
		return nil, errors.New("negative batch")
	}
	if c.Floats[0] == 999 {
		panic("boom")
	}
	time.Sleep(time.Duration(int(c.Floats[0])%3) * time.Millisecond)
	out := make([]float64, len(c.Floats))
	for i, v := range c.Floats {
		out[i] = 2 * v
	}
	return frame.MustNew(frame.NewNumerical("x", out)), nil
}

func seq(n int) *frame.Frame {
	v := make([]float64, n)
	for i := range v {
		v[i] = float64(i)
	}
	return frame.MustNew(frame.NewNumerical("x", v))
}

func TestRunPreservesOrder(t *testing.T) {
	p := NewProcessor(WithWorkers(4))
	in := make(chan *frame.Frame)
	go func() {
		defer close(in)
		for _, c := range seq(50).Chunks(1) {
			in <- c
		}
	}()

	next := 0
	for r := range p.Run(context.Background(), &doubler{}, in) {
		if r.Err != nil {
			t.Fatalf("batch %d: %v", r.Index, r.Err)
		}
		if r.Index != next {
			t.Fatalf("got batch %d, want %d", r.Index, next)
		}
		c, _ := r.Output.Column("x")
		if c.Floats[0] != float64(2*next) {
			t.Errorf("batch %d: got %v", next, c.Floats[0])
		}
		next++
	}
	if next != 50 {
		t.Fatalf("got %d results, want 50", next)
	}

	m := p.Metrics()
	if m.Batches != 50 || m.Rows != 50 || m.Failures != 0 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestTransformChunked(t *testing.T) {
	p := NewProcessor(WithWorkers(3))
	out, err := p.TransformChunked(context.Background(), &doubler{}, seq(17), 4)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := out.Column("x")
	if len(c.Floats) != 17 {
		t.Fatalf("got %d rows", len(c.Floats))
	}
	for i, v := range c.Floats {
		if v != float64(2*i) {
			t.Fatalf("row %d: got %v", i, v)
		}
	}
}

func TestTransformChunkedErrors(t *testing.T) {
	p := NewProcessor(WithWorkers(2))

	bad := frame.MustNew(frame.NewNumerical("x", []float64{0, 1, -1, 3}))
	if _, err := p.TransformChunked(context.Background(), &doubler{}, bad, 2); err == nil || !strings.Contains(err.Error(), "batch 1") {
		t.Errorf("expected batch 1 failure, got %v", err)
	}

	panics := frame.MustNew(frame.NewNumerical("x", []float64{999}))
	_, err := p.TransformChunked(context.Background(), &doubler{}, panics, 1)
	var perr *errors.PanicError
	if !errors.As(err, &perr) {
		t.Errorf("expected PanicError, got %v", err)
	}

	if _, err := p.TransformChunked(context.Background(), &doubler{}, seq(3), 0); err == nil {
		t.Error("expected error for zero batch size")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := make(chan *frame.Frame)
	d := &doubler{}
	for range NewProcessor().Run(ctx, d, in) {
		t.Fatal("no result expected after cancellation")
	}
	if d.calls.Load() != 0 {
		t.Errorf("transformer called %d times", d.calls.Load())
	}
}

func TestTransformChunkedPipeline(t *testing.T) {
	cfg, err := tabular.NewConfig(tabular.WithOutliers(tabular.OutlierNone))
	if err != nil {
		t.Fatal(err)
	}
	pl, err := tabular.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	data := frame.MustNew(
		frame.NewNumerical("age", []float64{20, 30, 40, 50, 60, 70, 80}),
		frame.NewCategorical("city", []string{"NY", "LA", "NY", "SF", "LA", "NY", "SF"}),
	)
	if err := pl.Fit(data, tabular.FitOptions{}); err != nil {
		t.Fatal(err)
	}

	whole, err := pl.Transform(data)
	if err != nil {
		t.Fatal(err)
	}
	// without outlier handling every step is row-wise, so batching is exact
	chunked, err := NewProcessor(WithWorkers(2)).TransformChunked(context.Background(), pl, data, 3)
	if err != nil {
		t.Fatal(err)
	}
	wr, cr := whole.Records(), chunked.Records()
	for i := range wr {
		for k, v := range wr[i] {
			if cr[i][k] != v {
				t.Errorf("row %d column %s: got %v, want %v", i, k, cr[i][k], v)
			}
		}
	}
}
