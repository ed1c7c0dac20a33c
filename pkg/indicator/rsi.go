package indicator

import "fmt"

const neutralRSI = 50

// RSI calculates the Relative Strength Index
// RSI = 100 - (100 / (1 + RS)), RS = Average Gain / Average Loss
// Averages are Wilder-smoothed and seeded by the first price change.
type RSI struct {
	period    int
	prevClose float64
	hasPrev   bool
	gain      smoother
	loss      smoother
	value     float64
}

// NewRSI creates a new RSI with the specified period
func NewRSI(period int) (*RSI, error) {
	if err := checkPeriod("RSI", period); err != nil {
		return nil, err
	}
	alpha := WilderAlpha(period)
	return &RSI{
		period: period,
		gain:   smoother{alpha: alpha},
		loss:   smoother{alpha: alpha},
		value:  neutralRSI,
	}, nil
}

// DefaultRSI returns RSI(14)
func DefaultRSI() *RSI { return must(NewRSI(14)) }

// Update feeds a closing price. The first price only records the reference close.
func (r *RSI) Update(x float64) float64 {
	if !r.hasPrev {
		r.prevClose = x
		r.hasPrev = true
		return r.value
	}
	change := x - r.prevClose
	r.prevClose = x

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	avgGain := r.gain.next(gain)
	avgLoss := r.loss.next(loss)

	switch {
	case avgLoss == 0 && avgGain == 0:
		r.value = neutralRSI
	case avgLoss == 0:
		r.value = 100
	default:
		rs := avgGain / avgLoss
		r.value = 100 - 100/(1+rs)
	}
	return r.value
}

// Value returns the current RSI, 50 before the first price change
func (r *RSI) Value() float64 { return r.value }

func (r *RSI) Reset() {
	r.prevClose = 0
	r.hasPrev = false
	r.gain.reset()
	r.loss.reset()
	r.value = neutralRSI
}

func (r *RSI) Period() int    { return r.period }
func (r *RSI) String() string { return fmt.Sprintf("RSI(%d)", r.period) }
