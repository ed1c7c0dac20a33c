package indicator

import "fmt"

// VWAP calculates the Volume Weighted Average Price over the last period bars
// VWAP = Sum(Typical Price * Volume) / Sum(Volume), 0 while the window has no volume
type VWAP[B HighLowCloseVolume] struct {
	period   int
	notional *RollingSum
	volume   *RollingSum
	value    float64
}

// NewVWAP creates a rolling VWAP
func NewVWAP[B HighLowCloseVolume](period int) (*VWAP[B], error) {
	if err := checkPeriod("VWAP", period); err != nil {
		return nil, err
	}
	return &VWAP[B]{
		period:   period,
		notional: NewRollingSum(period),
		volume:   NewRollingSum(period),
	}, nil
}

// DefaultVWAP returns VWAP(14)
func DefaultVWAP[B HighLowCloseVolume]() *VWAP[B] { return must(NewVWAP[B](14)) }

func (v *VWAP[B]) Update(b B) float64 {
	vol := b.TradedVolume()
	notional := v.notional.Push(TypicalPrice(b) * vol)
	total := v.volume.Push(vol)
	v.value = 0
	if total > 0 {
		v.value = notional / total
	}
	return v.value
}

func (v *VWAP[B]) Value() float64 { return v.value }

func (v *VWAP[B]) Reset() {
	v.notional.Reset()
	v.volume.Reset()
	v.value = 0
}

func (v *VWAP[B]) Period() int    { return v.period }
func (v *VWAP[B]) String() string { return fmt.Sprintf("VWAP(%d)", v.period) }
