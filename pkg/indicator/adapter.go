package indicator

import "fmt"

// Field feeds one numeric field of each observation to a price indicator
type Field[B, O any] struct {
	name  string
	pick  func(B) float64
	inner Indicator[float64, O]
}

// OnClose feeds closing prices to ind
func OnClose[B Closer, O any](ind Indicator[float64, O]) *Field[B, O] {
	return &Field[B, O]{name: "close", pick: func(b B) float64 { return b.ClosePrice() }, inner: ind}
}

// OnHigh feeds high prices to ind
func OnHigh[B Higher, O any](ind Indicator[float64, O]) *Field[B, O] {
	return &Field[B, O]{name: "high", pick: func(b B) float64 { return b.HighPrice() }, inner: ind}
}

// OnLow feeds low prices to ind
func OnLow[B Lower, O any](ind Indicator[float64, O]) *Field[B, O] {
	return &Field[B, O]{name: "low", pick: func(b B) float64 { return b.LowPrice() }, inner: ind}
}

// OnVolume feeds traded volume to ind
func OnVolume[B Volumer, O any](ind Indicator[float64, O]) *Field[B, O] {
	return &Field[B, O]{name: "volume", pick: func(b B) float64 { return b.TradedVolume() }, inner: ind}
}

// OnTypicalPrice feeds (high+low+close)/3 to ind
func OnTypicalPrice[B HighLowClose, O any](ind Indicator[float64, O]) *Field[B, O] {
	return &Field[B, O]{name: "typical", pick: func(b B) float64 { return TypicalPrice(b) }, inner: ind}
}

func (f *Field[B, O]) Update(b B) O { return f.inner.Update(f.pick(b)) }
func (f *Field[B, O]) Value() O     { return f.inner.Value() }
func (f *Field[B, O]) Reset()       { f.inner.Reset() }

// Inner returns the wrapped price indicator
func (f *Field[B, O]) Inner() Indicator[float64, O] { return f.inner }

func (f *Field[B, O]) String() string { return fmt.Sprintf("%v[%s]", f.inner, f.name) }

// Chained feeds the output of one indicator into another, e.g. an EMA of RSI
type Chained[In, O any] struct {
	first  Indicator[In, float64]
	second Indicator[float64, O]
}

// Chain returns an indicator computing second(first(x))
func Chain[In, O any](first Indicator[In, float64], second Indicator[float64, O]) *Chained[In, O] {
	return &Chained[In, O]{first: first, second: second}
}

func (c *Chained[In, O]) Update(in In) O { return c.second.Update(c.first.Update(in)) }
func (c *Chained[In, O]) Value() O       { return c.second.Value() }

func (c *Chained[In, O]) Reset() {
	c.first.Reset()
	c.second.Reset()
}

func (c *Chained[In, O]) String() string { return fmt.Sprintf("%v(%v)", c.second, c.first) }
