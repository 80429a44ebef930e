package monitor

import (
	"math"
	"testing"
	"time"

	"github.com/YuminosukeSato/featurekit/frame"
)

func TestADWINStationary(t *testing.T) {
	a := NewADWIN()
	for i := 0; i < 2000; i++ {
		if a.Update(math.Sin(float64(i))) {
			t.Fatalf("false drift at sample %d", i)
		}
	}
	if got := a.Width(); got != 2000 {
		t.Errorf("Width() = %d, want 2000", got)
	}
	if math.Abs(a.Mean()) > 0.01 {
		t.Errorf("Mean() = %v, want ~0", a.Mean())
	}
}

func TestADWINDetectsShift(t *testing.T) {
	a := NewADWIN()
	for i := 0; i < 300; i++ {
		a.Update(math.Sin(float64(i)))
	}
	detectedAt := -1
	for i := 0; i < 100; i++ {
		if a.Update(20+math.Sin(float64(i))) && detectedAt < 0 {
			detectedAt = i
		}
	}
	if detectedAt < 0 {
		t.Fatal("shift not detected")
	}
	if a.Width() >= 400 {
		t.Errorf("window not shrunk: width %d", a.Width())
	}
	if a.Mean() < 10 {
		t.Errorf("Mean() = %v, want window dominated by the new regime", a.Mean())
	}
}

func TestADWINRangeFollowsWindow(t *testing.T) {
	a := NewADWIN()
	var history []float64
	feed := func(v float64) bool {
		history = append(history, v)
		drift := a.Update(v)
		window := history[len(history)-a.Width():]
		lo, hi := window[0], window[0]
		for _, x := range window {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		if got := a.span(); math.Abs(got-(hi-lo)) > 1e-9 {
			t.Fatalf("span() = %v after %d samples, window range is %v", got, len(history), hi-lo)
		}
		return drift
	}

	for i := 0; i < 256; i++ {
		feed(math.Sin(float64(i)))
	}
	shifted := false
	for i := 0; i < 200; i++ {
		shifted = feed(100+math.Sin(float64(i))) || shifted
	}
	if !shifted {
		t.Fatal("first shift not detected")
	}
	if a.span() > 2 {
		t.Fatalf("span() = %v, want the old regime forgotten", a.span())
	}

	// A shift small next to the first one is still caught.
	detected := false
	for i := 0; i < 200 && !detected; i++ {
		detected = feed(105 + math.Sin(float64(i)))
	}
	if !detected {
		t.Error("second, smaller shift not detected")
	}
}

func TestADWINBucketsStayBounded(t *testing.T) {
	a := NewADWIN(WithMaxBuckets(8))
	for i := 0; i < 10000; i++ {
		a.Update(float64(i % 7))
	}
	if len(a.buckets) > 8 {
		t.Errorf("got %d buckets", len(a.buckets))
	}
	for i := 1; i < len(a.buckets); i++ {
		if a.buckets[i].count >= a.buckets[i-1].count {
			t.Fatalf("bucket sizes not decreasing: %v", a.buckets)
		}
	}
}

func TestADWINIgnoresNonFinite(t *testing.T) {
	a := NewADWIN()
	a.Update(math.NaN())
	a.Update(math.Inf(1))
	if a.Width() != 0 {
		t.Errorf("Width() = %d, want 0", a.Width())
	}
	a.Update(3)
	a.Reset()
	if a.Width() != 0 || a.Mean() != 0 {
		t.Error("Reset did not clear the window")
	}
}

func TestMonitorObserve(t *testing.T) {
	m := New([]string{"age", "city", "income"})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	batch := func(offset float64) *frame.Frame {
		age := make([]float64, 100)
		city := make([]string, 100)
		for i := range age {
			age[i] = offset + math.Sin(float64(i))
			city[i] = "NY"
		}
		return frame.MustNew(
			frame.NewNumerical("age", age),
			frame.NewCategorical("city", city),
		)
	}

	for i := 0; i < 3; i++ {
		if got := m.Observe(batch(40)); len(got) != 0 {
			t.Fatalf("unexpected drift %v", got)
		}
	}
	got := m.Observe(batch(80))
	if len(got) != 1 || got[0] != "age" {
		t.Fatalf("Observe() = %v, want [age]", got)
	}

	status := m.Status()
	if len(status) != 3 {
		t.Fatalf("got %d statuses", len(status))
	}
	if status[0].DriftEvents != 1 || status[0].LastDrift == nil || !status[0].LastDrift.Equal(fixed) {
		t.Errorf("unexpected age status %+v", status[0])
	}
	// categorical and absent columns are never fed
	if status[1].WindowWidth != 0 || status[2].WindowWidth != 0 {
		t.Errorf("unexpected statuses %+v", status[1:])
	}
}
