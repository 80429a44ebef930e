// Package stream runs a fitted transformer over a sequence of batches with a
// bounded worker pool, emitting results in input order.
//
// Each batch is transformed on its own, exactly as one HTTP request would be,
// so batch-dependent steps such as outlier clipping see only that batch.
package stream

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// Transformer is satisfied by *tabular.Pipeline.
type Transformer interface {
	Transform(f *frame.Frame) (*frame.Frame, error)
}

// Result is the outcome of one batch.
type Result struct {
	Index  int
	Output *frame.Frame
	Err    error
}

// Metrics summarises a run.
type Metrics struct {
	Batches  uint64
	Rows     uint64
	Failures uint64
	Elapsed  time.Duration
}

// RowsPerSecond is the observed throughput.
func (m Metrics) RowsPerSecond() float64 {
	if m.Elapsed <= 0 {
		return 0
	}
	return float64(m.Rows) / m.Elapsed.Seconds()
}

// Processor fans batches out to workers.
type Processor struct {
	workers    int
	bufferSize int

	mu      sync.Mutex
	metrics Metrics
}

// Option configures a Processor.
type Option func(*Processor)

// WithWorkers sets the worker count. Values below 1 mean one per CPU.
func WithWorkers(n int) Option {
	return func(p *Processor) { p.workers = n }
}

// WithBufferSize sets the capacity of the output channel.
func WithBufferSize(n int) Option {
	return func(p *Processor) { p.bufferSize = n }
}

// NewProcessor returns a processor with one worker per CPU.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{workers: runtime.NumCPU(), bufferSize: 16}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = runtime.NumCPU()
	}
	if p.bufferSize < 0 {
		p.bufferSize = 0
	}
	return p
}

// Run transforms every batch read from in and sends one Result per batch, in
// input order, on the returned channel. The channel is closed once in is
// drained or ctx is done; batches still queued at cancellation are dropped.
func (p *Processor) Run(ctx context.Context, t Transformer, in <-chan *frame.Frame) <-chan Result {
	type job struct {
		index int
		batch *frame.Frame
	}
	jobs := make(chan job)
	done := make(chan Result, p.workers)
	out := make(chan Result, p.bufferSize)
	start := time.Now()

	go func() {
		defer close(jobs)
		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-in:
				if !ok {
					return
				}
				select {
				case jobs <- job{index: i, batch: b}:
					i++
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				r := Result{Index: j.index}
				r.Err = errors.SafeExecute("stream.Transform", func() error {
					var err error
					r.Output, err = t.Transform(j.batch)
					return err
				})
				done <- r
			}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	// reorder
	go func() {
		defer close(out)
		pending := map[int]Result{}
		next := 0
		for r := range done {
			pending[r.Index] = r
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				p.record(ready, start)
				select {
				case out <- ready:
				case <-ctx.Done():
					for range done {
					}
					return
				}
			}
		}
	}()
	return out
}

func (p *Processor) record(r Result, start time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.Batches++
	if r.Err != nil {
		p.metrics.Failures++
	} else if r.Output != nil {
		p.metrics.Rows += uint64(r.Output.NRows())
	}
	p.metrics.Elapsed = time.Since(start)
}

// Metrics returns the counters of the runs so far.
func (p *Processor) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// TransformChunked splits f into batches of size rows, transforms them
// concurrently and stacks the outputs. The first failing batch aborts.
func (p *Processor) TransformChunked(ctx context.Context, t Transformer, f *frame.Frame, size int) (*frame.Frame, error) {
	if size <= 0 {
		return nil, errors.NewValidationError("batch_size", "must be positive", size)
	}
	chunks := f.Chunks(size)
	in := make(chan *frame.Frame, len(chunks))
	for _, c := range chunks {
		in <- c
	}
	close(in)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outputs := make([]*frame.Frame, 0, len(chunks))
	for r := range p.Run(ctx, t, in) {
		if r.Err != nil {
			return nil, errors.Wrapf(r.Err, "batch %d", r.Index)
		}
		outputs = append(outputs, r.Output)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(outputs) != len(chunks) {
		return nil, errors.NewDimensionError("stream.TransformChunked", len(chunks), len(outputs), 0)
	}
	return frame.Concat(outputs...)
}
