package indicator

import "iter"

// Window is a fixed-capacity FIFO of the most recent values.
// Pushing into a full window evicts the oldest value in the same operation.
// The backing array is allocated once; no arithmetic is done here.
type Window struct {
	buf   []float64
	start int
	len   int
}

// NewWindow creates a window holding at most capacity values.
// Capacity is clamped to 1; constructors validate periods before getting here.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends v. If the window was full, the evicted value is returned with ok=true.
func (w *Window) Push(v float64) (evicted float64, ok bool) {
	if w.len < len(w.buf) {
		w.buf[(w.start+w.len)%len(w.buf)] = v
		w.len++
		return 0, false
	}
	evicted = w.buf[w.start]
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
	return evicted, true
}

// Len returns the number of values currently held
func (w *Window) Len() int { return w.len }

// Cap returns the window capacity
func (w *Window) Cap() int { return len(w.buf) }

// IsFull reports whether Len() == Cap()
func (w *Window) IsFull() bool { return w.len == len(w.buf) }

// At returns the i-th value in insertion order (0 is the oldest).
func (w *Window) At(i int) float64 {
	if i < 0 || i >= w.len {
		panic("indicator: window index out of range")
	}
	return w.buf[(w.start+i)%len(w.buf)]
}

// Oldest returns the oldest value, or 0 if empty
func (w *Window) Oldest() float64 {
	if w.len == 0 {
		return 0
	}
	return w.buf[w.start]
}

// Newest returns the most recently pushed value, or 0 if empty
func (w *Window) Newest() float64 {
	if w.len == 0 {
		return 0
	}
	return w.buf[(w.start+w.len-1)%len(w.buf)]
}

// All iterates over the contents in insertion order
func (w *Window) All() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for i := 0; i < w.len; i++ {
			if !yield(w.buf[(w.start+i)%len(w.buf)]) {
				return
			}
		}
	}
}

// CopyTo writes the contents in insertion order into dst and returns the
// filled prefix. dst must have capacity of at least Len().
func (w *Window) CopyTo(dst []float64) []float64 {
	dst = dst[:w.len]
	for i := range dst {
		dst[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return dst
}

// Values returns a freshly allocated copy of the contents in insertion order
func (w *Window) Values() []float64 {
	return w.CopyTo(make([]float64, w.len))
}

// Reset empties the window without reallocating
func (w *Window) Reset() {
	clear(w.buf)
	w.start = 0
	w.len = 0
}
