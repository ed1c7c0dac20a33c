package indicator

import "fmt"

const cciConstant = 0.015

// CCI is the Commodity Channel Index of the typical price:
// (tp - SMA(tp)) / (0.015 * MAD(tp)), 0 when the deviation is 0
type CCI[B HighLowClose] struct {
	period int
	mad    *RollingMAD
	value  float64
}

// NewCCI creates a Commodity Channel Index
func NewCCI[B HighLowClose](period int) (*CCI[B], error) {
	if err := checkPeriod("CCI", period); err != nil {
		return nil, err
	}
	return &CCI[B]{period: period, mad: NewRollingMAD(period)}, nil
}

// DefaultCCI returns CCI(20)
func DefaultCCI[B HighLowClose]() *CCI[B] { return must(NewCCI[B](20)) }

func (c *CCI[B]) Update(b B) float64 {
	tp := TypicalPrice(b)
	mad := c.mad.Push(tp)
	c.value = 0
	if mad != 0 {
		c.value = (tp - c.mad.Mean()) / (cciConstant * mad)
	}
	return c.value
}

func (c *CCI[B]) Value() float64 { return c.value }

func (c *CCI[B]) Reset() {
	c.mad.Reset()
	c.value = 0
}

func (c *CCI[B]) Period() int    { return c.period }
func (c *CCI[B]) String() string { return fmt.Sprintf("CCI(%d)", c.period) }
