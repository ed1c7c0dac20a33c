package indicator

import "fmt"

// ATR is the Wilder-smoothed True Range (alpha = 1/period) seeded by the first True Range
type ATR[B HighLowClose] struct {
	period int
	tr     TrueRange[B]
	s      smoother
}

// NewATR creates an Average True Range
func NewATR[B HighLowClose](period int) (*ATR[B], error) {
	if err := checkPeriod("ATR", period); err != nil {
		return nil, err
	}
	return &ATR[B]{period: period, s: smoother{alpha: WilderAlpha(period)}}, nil
}

// DefaultATR returns ATR(14)
func DefaultATR[B HighLowClose]() *ATR[B] { return must(NewATR[B](14)) }

func (a *ATR[B]) Update(b B) float64 { return a.s.next(a.tr.Update(b)) }
func (a *ATR[B]) Value() float64     { return a.s.value }

func (a *ATR[B]) Reset() {
	a.tr.Reset()
	a.s.reset()
}

func (a *ATR[B]) Period() int    { return a.period }
func (a *ATR[B]) String() string { return fmt.Sprintf("ATR(%d)", a.period) }

// ChandelierOutput holds the exit levels for long and short positions
type ChandelierOutput struct {
	Long  float64 `json:"long"`
	Short float64 `json:"short"`
}

// ChandelierExit places exits multiplier * ATR away from the rolling extremes:
// long = highest high - m*ATR, short = lowest low + m*ATR
type ChandelierExit[B HighLowClose] struct {
	period int
	mult   float64
	atr    *ATR[B]
	high   *MonotonicExtremum
	low    *MonotonicExtremum
	value  ChandelierOutput
}

// NewChandelierExit creates a Chandelier Exit
func NewChandelierExit[B HighLowClose](period int, multiplier float64) (*ChandelierExit[B], error) {
	if err := checkPeriod("CE", period); err != nil {
		return nil, err
	}
	if err := checkMultiplier("CE", multiplier); err != nil {
		return nil, err
	}
	return &ChandelierExit[B]{
		period: period,
		mult:   multiplier,
		atr:    must(NewATR[B](period)),
		high:   NewMonotonicMax(period),
		low:    NewMonotonicMin(period),
	}, nil
}

// DefaultChandelierExit returns CE(22,3)
func DefaultChandelierExit[B HighLowClose]() *ChandelierExit[B] {
	return must(NewChandelierExit[B](22, 3))
}

func (c *ChandelierExit[B]) Update(b B) ChandelierOutput {
	width := c.mult * c.atr.Update(b)
	c.value = ChandelierOutput{
		Long:  c.high.Push(b.HighPrice()) - width,
		Short: c.low.Push(b.LowPrice()) + width,
	}
	return c.value
}

func (c *ChandelierExit[B]) Value() ChandelierOutput { return c.value }

func (c *ChandelierExit[B]) Reset() {
	c.atr.Reset()
	c.high.Reset()
	c.low.Reset()
	c.value = ChandelierOutput{}
}

func (c *ChandelierExit[B]) Period() int         { return c.period }
func (c *ChandelierExit[B]) Multiplier() float64 { return c.mult }

func (c *ChandelierExit[B]) String() string {
	return fmt.Sprintf("CE(%d,%s)", c.period, formatParam(c.mult))
}
