package indicator

import "fmt"

const neutralMFI = 50

// MFI is the Money Flow Index. Raw money flow (typical price * volume) counts
// as positive when the typical price rose, negative when it fell and in
// neither sum when it is unchanged. The first bar only records the reference
// typical price; after it, a window without negative flow yields 100.
type MFI[B HighLowCloseVolume] struct {
	period int
	prevTP float64
	hasTP  bool
	pos    *RollingSum
	neg    *RollingSum
	value  float64
}

// NewMFI creates a Money Flow Index
func NewMFI[B HighLowCloseVolume](period int) (*MFI[B], error) {
	if err := checkPeriod("MFI", period); err != nil {
		return nil, err
	}
	return &MFI[B]{
		period: period,
		pos:    NewRollingSum(period),
		neg:    NewRollingSum(period),
		value:  neutralMFI,
	}, nil
}

// DefaultMFI returns MFI(14)
func DefaultMFI[B HighLowCloseVolume]() *MFI[B] { return must(NewMFI[B](14)) }

func (m *MFI[B]) Update(b B) float64 {
	tp := TypicalPrice(b)
	if !m.hasTP {
		m.prevTP = tp
		m.hasTP = true
		return m.value
	}
	flow := tp * b.TradedVolume()
	var up, down float64
	switch {
	case tp > m.prevTP:
		up = flow
	case tp < m.prevTP:
		down = flow
	}
	m.prevTP = tp
	pos := m.pos.Push(up)
	neg := m.neg.Push(down)

	if neg <= 0 {
		m.value = 100
	} else {
		m.value = 100 - 100/(1+pos/neg)
	}
	return m.value
}

// Value returns the current MFI, 50 before the second bar
func (m *MFI[B]) Value() float64 { return m.value }

func (m *MFI[B]) Reset() {
	m.prevTP = 0
	m.hasTP = false
	m.pos.Reset()
	m.neg.Reset()
	m.value = neutralMFI
}

func (m *MFI[B]) Period() int    { return m.period }
func (m *MFI[B]) String() string { return fmt.Sprintf("MFI(%d)", m.period) }
