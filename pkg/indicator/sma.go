package indicator

import "fmt"

// SMA calculates the Simple Moving Average over the last period prices.
// Before the window fills, the mean covers only the prices seen so far.
type SMA struct {
	period int
	sum    *RollingSum
	value  float64
}

// NewSMA creates a new SMA with the specified period
func NewSMA(period int) (*SMA, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return nil, err
	}
	return &SMA{period: period, sum: NewRollingSum(period)}, nil
}

// DefaultSMA returns SMA(14)
func DefaultSMA() *SMA { return must(NewSMA(14)) }

// Update feeds a price and returns the new mean
func (s *SMA) Update(x float64) float64 {
	s.sum.Push(x)
	s.value = s.sum.Mean()
	return s.value
}

func (s *SMA) Value() float64 { return s.value }

func (s *SMA) Reset() {
	s.sum.Reset()
	s.value = 0
}

func (s *SMA) Period() int    { return s.period }
func (s *SMA) String() string { return fmt.Sprintf("SMA(%d)", s.period) }
