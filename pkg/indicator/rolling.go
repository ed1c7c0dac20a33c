package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RollingSum maintains the sum of a window incrementally: the incoming value
// is added and, once the window is full, the evicted value is subtracted.
type RollingSum struct {
	win *Window
	sum float64
}

// NewRollingSum creates a rolling sum over the last period values
func NewRollingSum(period int) *RollingSum {
	return &RollingSum{win: NewWindow(period)}
}

// Push adds v and returns the updated sum
func (r *RollingSum) Push(v float64) float64 {
	if evicted, ok := r.win.Push(v); ok {
		r.sum -= evicted
	}
	r.sum += v
	return r.sum
}

// Sum returns the current sum
func (r *RollingSum) Sum() float64 { return r.sum }

// Mean returns sum/len over the partial or full window, 0 when empty
func (r *RollingSum) Mean() float64 {
	if r.win.Len() == 0 {
		return 0
	}
	return r.sum / float64(r.win.Len())
}

// Window exposes the underlying store
func (r *RollingSum) Window() *Window { return r.win }

// Reset empties the window and the sum
func (r *RollingSum) Reset() {
	r.win.Reset()
	r.sum = 0
}

// Extremum tracks the minimum or maximum of a rolling window
type Extremum interface {
	Push(v float64) float64
	Value() float64
	Len() int
	Reset()
}

// RollingExtremum rescans the window on every push: O(period) per update
type RollingExtremum struct {
	win   *Window
	max   bool
	value float64
}

// NewRollingMin creates a rescanning rolling minimum
func NewRollingMin(period int) *RollingExtremum {
	return &RollingExtremum{win: NewWindow(period)}
}

// NewRollingMax creates a rescanning rolling maximum
func NewRollingMax(period int) *RollingExtremum {
	return &RollingExtremum{win: NewWindow(period), max: true}
}

// Push adds v and returns the extremum of the current contents
func (r *RollingExtremum) Push(v float64) float64 {
	r.win.Push(v)
	ext := r.win.At(0)
	for x := range r.win.All() {
		if (r.max && x > ext) || (!r.max && x < ext) {
			ext = x
		}
	}
	r.value = ext
	return ext
}

func (r *RollingExtremum) Value() float64 { return r.value }
func (r *RollingExtremum) Len() int       { return r.win.Len() }

func (r *RollingExtremum) Reset() {
	r.win.Reset()
	r.value = 0
}

// MonotonicExtremum is a monotonic deque over the last period values.
// Each value enters and leaves the deque at most once, so Push is O(1)
// amortized. Output is identical to RollingExtremum.
type MonotonicExtremum struct {
	period int
	max    bool
	vals   []float64
	seqs   []int
	head   int
	size   int
	seq    int
	count  int
}

// NewMonotonicMin creates a deque backed rolling minimum
func NewMonotonicMin(period int) *MonotonicExtremum {
	return newMonotonic(period, false)
}

// NewMonotonicMax creates a deque backed rolling maximum
func NewMonotonicMax(period int) *MonotonicExtremum {
	return newMonotonic(period, true)
}

func newMonotonic(period int, max bool) *MonotonicExtremum {
	if period < 1 {
		period = 1
	}
	return &MonotonicExtremum{
		period: period,
		max:    max,
		vals:   make([]float64, period),
		seqs:   make([]int, period),
	}
}

// Push adds v and returns the extremum of the last period values
func (m *MonotonicExtremum) Push(v float64) float64 {
	cur := m.seq
	m.seq++
	if m.count < m.period {
		m.count++
	}

	// drop the front once it falls out of the window
	for m.size > 0 && m.seqs[m.head] <= cur-m.period {
		m.head = (m.head + 1) % m.period
		m.size--
	}
	// drop dominated values from the back
	for m.size > 0 {
		back := (m.head + m.size - 1) % m.period
		if (m.max && m.vals[back] > v) || (!m.max && m.vals[back] < v) {
			break
		}
		m.size--
	}
	tail := (m.head + m.size) % m.period
	m.vals[tail] = v
	m.seqs[tail] = cur
	m.size++
	return m.vals[m.head]
}

// Value returns the current extremum, 0 before the first push
func (m *MonotonicExtremum) Value() float64 {
	if m.size == 0 {
		return 0
	}
	return m.vals[m.head]
}

// Len returns the number of observations covered by the window
func (m *MonotonicExtremum) Len() int { return m.count }

func (m *MonotonicExtremum) Reset() {
	m.head, m.size, m.seq, m.count = 0, 0, 0, 0
}

// RollingStdDev is the population standard deviation of a window,
// recomputed from the window mean on every push. Zero while len <= 1.
type RollingStdDev struct {
	win     *Window
	scratch []float64
	mean    float64
	value   float64
}

// NewRollingStdDev creates a rolling population standard deviation
func NewRollingStdDev(period int) *RollingStdDev {
	w := NewWindow(period)
	return &RollingStdDev{win: w, scratch: make([]float64, w.Cap())}
}

// Push adds v and returns the standard deviation of the current contents
func (r *RollingStdDev) Push(v float64) float64 {
	r.win.Push(v)
	xs := r.win.CopyTo(r.scratch)
	if len(xs) <= 1 {
		r.mean = v
		r.value = 0
		return 0
	}
	mean, variance := stat.PopMeanVariance(xs, nil)
	r.mean = mean
	if variance <= 0 || math.IsNaN(variance) {
		r.value = 0
	} else {
		r.value = math.Sqrt(variance)
	}
	return r.value
}

func (r *RollingStdDev) Value() float64 { return r.value }

// Mean returns the window mean computed by the last push
func (r *RollingStdDev) Mean() float64 { return r.mean }

func (r *RollingStdDev) Len() int { return r.win.Len() }

func (r *RollingStdDev) Reset() {
	r.win.Reset()
	r.mean = 0
	r.value = 0
}

// RollingMAD is the mean absolute deviation from the window mean
type RollingMAD struct {
	win     *Window
	scratch []float64
	mean    float64
	value   float64
}

// NewRollingMAD creates a rolling mean absolute deviation
func NewRollingMAD(period int) *RollingMAD {
	w := NewWindow(period)
	return &RollingMAD{win: w, scratch: make([]float64, w.Cap())}
}

// Push adds v and returns the mean absolute deviation of the current contents
func (r *RollingMAD) Push(v float64) float64 {
	r.win.Push(v)
	xs := r.win.CopyTo(r.scratch)
	r.mean = stat.Mean(xs, nil)
	var dev float64
	for _, x := range xs {
		dev += math.Abs(x - r.mean)
	}
	r.value = dev / float64(len(xs))
	return r.value
}

func (r *RollingMAD) Value() float64 { return r.value }

// Mean returns the window mean computed by the last push
func (r *RollingMAD) Mean() float64 { return r.mean }

func (r *RollingMAD) Len() int { return r.win.Len() }

func (r *RollingMAD) Reset() {
	r.win.Reset()
	r.mean = 0
	r.value = 0
}
