package indicator

import (
	"fmt"
	"math"
)

// WEMA is an EMA restricted to the last period prices: its value equals an
// EMA seeded with the oldest retained price and fed the rest of the window.
// Dropping a price swaps its weight for that of the new oldest price, so each
// update is O(1).
type WEMA struct {
	period int
	alpha  float64
	// weight of the seed once the window is full: (1-alpha)^period
	factor float64
	win    *Window
	value  float64
}

// NewWEMA creates a windowed EMA with the specified period
func NewWEMA(period int) (*WEMA, error) {
	if err := checkPeriod("WEMA", period); err != nil {
		return nil, err
	}
	alpha := EMAAlpha(period)
	return &WEMA{
		period: period,
		alpha:  alpha,
		factor: math.Pow(1-alpha, float64(period)),
		win:    NewWindow(period),
	}, nil
}

// DefaultWEMA returns WEMA(9)
func DefaultWEMA() *WEMA { return must(NewWEMA(9)) }

func (w *WEMA) Update(x float64) float64 {
	if w.win.Len() == 0 {
		w.win.Push(x)
		w.value = x
		return x
	}
	evicted, dropped := w.win.Push(x)
	w.value = Smooth(w.value, x, w.alpha)
	if dropped {
		w.value += w.factor * (w.win.Oldest() - evicted)
	}
	return w.value
}

func (w *WEMA) Value() float64 { return w.value }

func (w *WEMA) Reset() {
	w.win.Reset()
	w.value = 0
}

func (w *WEMA) Period() int    { return w.period }
func (w *WEMA) String() string { return fmt.Sprintf("WEMA(%d)", w.period) }
