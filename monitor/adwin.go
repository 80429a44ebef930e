// Package monitor watches the numerical inputs a fitted pipeline receives in
// production and flags features whose mean shifts.
package monitor

import (
	"math"
	"sync"
)

// ADWIN のデフォルト値
const (
	DefaultDelta      = 0.002
	DefaultMaxBuckets = 64
	// minSubwindow は分割後の各サブウィンドウに必要な最小サンプル数
	minSubwindow = 5
)

// ADWIN (Adaptive Windowing) はアダプティブウィンドウによる平均値ドリフト検出器です。
// A. Bifet, R. Gavalda (2007) "Learning from time-changing data with adaptive windowing"
//
// バケットは古い順に並び、サイズは新しいほど小さくなります（同じサイズが
// 連続したら統合）。ホフディング境界は現在のウィンドウ内の値の範囲で
// スケールするため、値を [0, 1] に正規化する必要はありません。
type ADWIN struct {
	delta      float64
	maxBuckets int

	mu      sync.Mutex
	buckets []bucket
	sum     float64
	count   int
}

type bucket struct {
	sum      float64
	count    int
	min, max float64
}

// ADWINOption はADWINの設定オプションです。
type ADWINOption func(*ADWIN)

// WithDelta は信頼度パラメータを設定します（小さいほど鈍感）。
func WithDelta(delta float64) ADWINOption {
	return func(a *ADWIN) { a.delta = delta }
}

// WithMaxBuckets は保持するバケット数の上限を設定します。
func WithMaxBuckets(n int) ADWINOption {
	return func(a *ADWIN) { a.maxBuckets = n }
}

// NewADWIN は新しいADWINを作成します。
func NewADWIN(opts ...ADWINOption) *ADWIN {
	a := &ADWIN{
		delta:      DefaultDelta,
		maxBuckets: DefaultMaxBuckets,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.delta <= 0 || a.delta >= 1 {
		a.delta = DefaultDelta
	}
	if a.maxBuckets < 2 {
		a.maxBuckets = 2
	}
	return a
}

// Update は値を追加し、ウィンドウが縮んだ（ドリフトを検出した）場合に true を返します。
// NaN と無限大は無視します。
func (a *ADWIN) Update(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.add(value)
	return a.detect()
}

func (a *ADWIN) add(value float64) {
	a.buckets = append(a.buckets, bucket{sum: value, count: 1, min: value, max: value})
	for n := len(a.buckets); n >= 2 && a.buckets[n-1].count == a.buckets[n-2].count; n = len(a.buckets) {
		older, newer := &a.buckets[n-2], a.buckets[n-1]
		older.sum += newer.sum
		older.count += newer.count
		older.min = math.Min(older.min, newer.min)
		older.max = math.Max(older.max, newer.max)
		a.buckets = a.buckets[:n-1]
	}
	a.sum += value
	a.count++

	for len(a.buckets) > a.maxBuckets {
		a.dropOldest(1)
	}
}

// detect は古い側から分割点を走査し、両側の平均差が境界を超えた最初の点で
// 古い側を捨てます。
func (a *ADWIN) detect() bool {
	if len(a.buckets) < 2 || a.count < 2*minSubwindow {
		return false
	}
	r := a.span()
	if r <= 0 {
		return false
	}

	sum0, n0 := 0.0, 0
	for i := 0; i < len(a.buckets)-1; i++ {
		sum0 += a.buckets[i].sum
		n0 += a.buckets[i].count
		n1 := a.count - n0
		if n0 < minSubwindow || n1 < minSubwindow {
			continue
		}
		mean0 := sum0 / float64(n0)
		mean1 := (a.sum - sum0) / float64(n1)
		if math.Abs(mean0-mean1) > r*a.bound(n0, n1) {
			a.dropOldest(i + 1)
			return true
		}
	}
	return false
}

// bound は ε_cut = sqrt(ln(4n/δ) / 2m)、m は両サブウィンドウの調和平均です。
func (a *ADWIN) bound(n0, n1 int) float64 {
	m := 1 / (1/float64(n0) + 1/float64(n1))
	return math.Sqrt(math.Log(4*float64(a.count)/a.delta) / (2 * m))
}

// span は現在のウィンドウ内の値の範囲 (max - min) を返します。
// 捨てたバケットの値は含みません。
func (a *ADWIN) span() float64 {
	if len(a.buckets) == 0 {
		return 0
	}
	lo, hi := a.buckets[0].min, a.buckets[0].max
	for _, b := range a.buckets[1:] {
		lo = math.Min(lo, b.min)
		hi = math.Max(hi, b.max)
	}
	return hi - lo
}

func (a *ADWIN) dropOldest(k int) {
	for _, b := range a.buckets[:k] {
		a.sum -= b.sum
		a.count -= b.count
	}
	a.buckets = append(a.buckets[:0], a.buckets[k:]...)
}

// Mean は現在のウィンドウの平均を返します。
func (a *ADWIN) Mean() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// Width は現在のウィンドウ内のサンプル数を返します。
func (a *ADWIN) Width() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Reset は状態を初期化します。
func (a *ADWIN) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buckets = nil
	a.sum = 0
	a.count = 0
}
