package indicator

import "fmt"

// EMA calculates the Exponential Moving Average
// EMA = Previous EMA + Alpha * (Price - Previous EMA)
// Alpha = 2 / (Period + 1), the first input seeds the average
type EMA struct {
	period int
	s      smoother
}

// NewEMA creates a new EMA with the specified period
func NewEMA(period int) (*EMA, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return nil, err
	}
	return &EMA{period: period, s: smoother{alpha: EMAAlpha(period)}}, nil
}

// DefaultEMA returns EMA(14)
func DefaultEMA() *EMA { return must(NewEMA(14)) }

// Update feeds a price and returns the new average
func (e *EMA) Update(x float64) float64 { return e.s.next(x) }

// Value returns the current average, 0 before the first update
func (e *EMA) Value() float64 { return e.s.value }

// Reset clears the EMA state
func (e *EMA) Reset() { e.s.reset() }

func (e *EMA) Period() int    { return e.period }
func (e *EMA) String() string { return fmt.Sprintf("EMA(%d)", e.period) }
