package indicator

import "fmt"

// FastStochastic is %K = 100 * (close - lowest low) / (highest high - lowest low)
// over the last period bars. A flat window yields 0.
type FastStochastic[B HighLowClose] struct {
	period int
	high   *MonotonicExtremum
	low    *MonotonicExtremum
	value  float64
}

// NewFastStochastic creates a fast stochastic oscillator
func NewFastStochastic[B HighLowClose](period int) (*FastStochastic[B], error) {
	if err := checkPeriod("FSTOCH", period); err != nil {
		return nil, err
	}
	return &FastStochastic[B]{
		period: period,
		high:   NewMonotonicMax(period),
		low:    NewMonotonicMin(period),
	}, nil
}

// DefaultFastStochastic returns FSTOCH(14)
func DefaultFastStochastic[B HighLowClose]() *FastStochastic[B] {
	return must(NewFastStochastic[B](14))
}

func (s *FastStochastic[B]) Update(b B) float64 {
	highest := s.high.Push(b.HighPrice())
	lowest := s.low.Push(b.LowPrice())
	s.value = 0
	if highest != lowest {
		s.value = 100 * (b.ClosePrice() - lowest) / (highest - lowest)
	}
	return s.value
}

func (s *FastStochastic[B]) Value() float64 { return s.value }

func (s *FastStochastic[B]) Reset() {
	s.high.Reset()
	s.low.Reset()
	s.value = 0
}

func (s *FastStochastic[B]) Period() int    { return s.period }
func (s *FastStochastic[B]) String() string { return fmt.Sprintf("FSTOCH(%d)", s.period) }

// StochasticOutput holds the smoothed %K and its %D signal
type StochasticOutput struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// SlowStochastic smooths fast %K with SMA(kSmoothing) and derives %D as SMA(dPeriod) of the slow %K
type SlowStochastic[B HighLowClose] struct {
	fast  *FastStochastic[B]
	k     *SMA
	d     *SMA
	value StochasticOutput
}

// NewSlowStochastic creates a slow stochastic oscillator
func NewSlowStochastic[B HighLowClose](period, kSmoothing, dPeriod int) (*SlowStochastic[B], error) {
	fast, err := NewFastStochastic[B](period)
	if err != nil {
		return nil, err
	}
	k, err := NewSMA(kSmoothing)
	if err != nil {
		return nil, fmt.Errorf("%w: %%K smoothing", err)
	}
	d, err := NewSMA(dPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: %%D", err)
	}
	return &SlowStochastic[B]{fast: fast, k: k, d: d}, nil
}

// DefaultSlowStochastic returns SSTOCH(14,3,3)
func DefaultSlowStochastic[B HighLowClose]() *SlowStochastic[B] {
	return must(NewSlowStochastic[B](14, 3, 3))
}

func (s *SlowStochastic[B]) Update(b B) StochasticOutput {
	k := s.k.Update(s.fast.Update(b))
	s.value = StochasticOutput{K: k, D: s.d.Update(k)}
	return s.value
}

func (s *SlowStochastic[B]) Value() StochasticOutput { return s.value }

func (s *SlowStochastic[B]) Reset() {
	s.fast.Reset()
	s.k.Reset()
	s.d.Reset()
	s.value = StochasticOutput{}
}

func (s *SlowStochastic[B]) Period() int { return s.fast.period }

func (s *SlowStochastic[B]) String() string {
	return fmt.Sprintf("SSTOCH(%d,%d,%d)", s.fast.period, s.k.period, s.d.period)
}
