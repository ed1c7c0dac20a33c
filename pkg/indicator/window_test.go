package indicator

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_PushEvictsOldest(t *testing.T) {
	w := NewWindow(3)

	for i, v := range []float64{1, 2, 3} {
		_, ok := w.Push(v)
		assert.False(t, ok, "push %d should not evict", i)
		assert.Equal(t, i+1, w.Len())
	}
	require.True(t, w.IsFull())

	evicted, ok := w.Push(4)
	assert.True(t, ok)
	assert.Equal(t, 1.0, evicted)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{2, 3, 4}, w.Values())
	assert.Equal(t, 2.0, w.Oldest())
	assert.Equal(t, 4.0, w.Newest())
	assert.Equal(t, 3.0, w.At(1))
	assert.Equal(t, []float64{2, 3, 4}, slices.Collect(w.All()))
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(2)
	w.Push(1)
	w.Push(2)
	w.Push(3)
	w.Reset()

	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 2, w.Cap())
	assert.Equal(t, 0.0, w.Oldest())
	assert.Empty(t, w.Values())

	w.Push(7)
	assert.Equal(t, []float64{7}, w.Values())
}

func TestWindow_AtOutOfRange(t *testing.T) {
	w := NewWindow(2)
	w.Push(1)
	assert.Panics(t, func() { w.At(1) })
	assert.Panics(t, func() { w.At(-1) })
}

func TestRollingSum_PartialMean(t *testing.T) {
	r := NewRollingSum(3)
	assert.Equal(t, 0.0, r.Mean())

	r.Push(2)
	r.Push(4)
	assert.Equal(t, 6.0, r.Sum())
	assert.Equal(t, 3.0, r.Mean())

	r.Push(6)
	r.Push(8)
	assert.Equal(t, 18.0, r.Sum())
	assert.Equal(t, 6.0, r.Mean())
}

func TestRollingStdDev_Population(t *testing.T) {
	r := NewRollingStdDev(4)
	assert.Equal(t, 0.0, r.Push(5), "single sample has no deviation")

	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		r.Push(v)
	}
	// last four: 5, 5, 7, 9 -> mean 6.5, variance (2.25+2.25+0.25+6.25)/4
	assert.InDelta(t, 6.5, r.Mean(), 1e-12)
	assert.InDelta(t, math.Sqrt(11.0/4), r.Value(), 1e-12)
}

func TestRollingMAD(t *testing.T) {
	r := NewRollingMAD(3)
	assert.Equal(t, 0.0, r.Value())
	assert.Equal(t, 0.0, r.Push(10))

	r.Push(20)
	r.Push(30)
	// mean 20, deviations 10, 0, 10
	assert.InDelta(t, 20.0/3, r.Value(), 1e-12)
	assert.InDelta(t, 20.0, r.Mean(), 1e-12)
}

func bruteExtremum(xs []float64, max bool) float64 {
	if max {
		return slices.Max(xs)
	}
	return slices.Min(xs)
}

func TestExtremum_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for _, period := range []int{1, 2, 3, 5, 8, 21} {
		variants := map[string]Extremum{
			"rescan_min": NewRollingMin(period),
			"rescan_max": NewRollingMax(period),
			"deque_min":  NewMonotonicMin(period),
			"deque_max":  NewMonotonicMax(period),
		}

		history := make([]float64, 0, 500)
		for i := 0; i < 500; i++ {
			// small integer range so ties are frequent
			v := float64(rng.IntN(10)) - 5
			history = append(history, v)
			start := max(0, len(history)-period)
			window := history[start:]

			for name, ext := range variants {
				got := ext.Push(v)
				want := bruteExtremum(window, name == "rescan_max" || name == "deque_max")
				require.Equal(t, want, got, "%s period=%d step=%d", name, period, i)
				require.Equal(t, want, ext.Value())
				require.Equal(t, len(window), ext.Len())
			}
		}
	}
}

func TestExtremum_ResetRestartsWindow(t *testing.T) {
	for _, ext := range []Extremum{NewMonotonicMax(3), NewRollingMax(3)} {
		ext.Push(100)
		ext.Reset()
		assert.Equal(t, 0, ext.Len())
		assert.Equal(t, 1.0, ext.Push(1))
		assert.Equal(t, 2.0, ext.Push(2))
	}
}
