package monitor

import (
	"sync"
	"time"

	"github.com/YuminosukeSato/featurekit/frame"
)

// FeatureStatus is the current window of one monitored feature.
type FeatureStatus struct {
	Feature     string     `json:"feature"`
	WindowMean  float64    `json:"window_mean"`
	WindowWidth int        `json:"window_width"`
	DriftEvents int        `json:"drift_events"`
	LastDrift   *time.Time `json:"last_drift,omitempty"`
}

// Monitor keeps one ADWIN detector per numerical feature.
type Monitor struct {
	features  []string
	detectors map[string]*ADWIN

	mu     sync.Mutex
	events map[string]int
	last   map[string]time.Time
	now    func() time.Time
}

// New monitors the given features.
func New(features []string, opts ...ADWINOption) *Monitor {
	m := &Monitor{
		features:  append([]string(nil), features...),
		detectors: make(map[string]*ADWIN, len(features)),
		events:    make(map[string]int, len(features)),
		last:      make(map[string]time.Time, len(features)),
		now:       time.Now,
	}
	for _, f := range features {
		m.detectors[f] = NewADWIN(opts...)
	}
	return m
}

// Observe feeds every row of the monitored numerical columns of f and
// returns the features whose window shifted, in monitoring order. Columns
// absent from f or not numerical are skipped.
func (m *Monitor) Observe(f *frame.Frame) []string {
	var drifted []string
	for _, name := range m.features {
		c, ok := f.Column(name)
		if !ok || c.Kind != frame.Numerical {
			continue
		}
		d := m.detectors[name]
		shifted := false
		for _, v := range c.Floats {
			if d.Update(v) {
				shifted = true
			}
		}
		if shifted {
			drifted = append(drifted, name)
		}
	}
	if len(drifted) > 0 {
		m.mu.Lock()
		at := m.now()
		for _, name := range drifted {
			m.events[name]++
			m.last[name] = at
		}
		m.mu.Unlock()
	}
	return drifted
}

// Status returns the state of every monitored feature.
func (m *Monitor) Status() []FeatureStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FeatureStatus, len(m.features))
	for i, name := range m.features {
		d := m.detectors[name]
		out[i] = FeatureStatus{
			Feature:     name,
			WindowMean:  d.Mean(),
			WindowWidth: d.Width(),
			DriftEvents: m.events[name],
		}
		if at, ok := m.last[name]; ok {
			out[i].LastDrift = &at
		}
	}
	return out
}
