package indicator

import "fmt"

// RelativeVolume is the current volume divided by the average volume of the
// previous period bars. It is 0 until one previous bar exists and while that
// average is 0.
type RelativeVolume[B Volumer] struct {
	period int
	avg    *RollingSum
	value  float64
}

// NewRelativeVolume creates a relative volume indicator
func NewRelativeVolume[B Volumer](period int) (*RelativeVolume[B], error) {
	if err := checkPeriod("RVOL", period); err != nil {
		return nil, err
	}
	return &RelativeVolume[B]{period: period, avg: NewRollingSum(period)}, nil
}

// DefaultRelativeVolume returns RVOL(14)
func DefaultRelativeVolume[B Volumer]() *RelativeVolume[B] { return must(NewRelativeVolume[B](14)) }

func (r *RelativeVolume[B]) Update(b B) float64 {
	vol := b.TradedVolume()
	r.value = 0
	if avg := r.avg.Mean(); avg > 0 {
		r.value = vol / avg
	}
	r.avg.Push(vol)
	return r.value
}

func (r *RelativeVolume[B]) Value() float64 { return r.value }

func (r *RelativeVolume[B]) Reset() {
	r.avg.Reset()
	r.value = 0
}

func (r *RelativeVolume[B]) Period() int    { return r.period }
func (r *RelativeVolume[B]) String() string { return fmt.Sprintf("RVOL(%d)", r.period) }
