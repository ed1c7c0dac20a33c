// Package indicator implements streaming technical indicators.
//
// Every indicator consumes one observation at a time, updates its state in
// O(1) (or O(period) for rescanning windows) and returns the new value. No
// indicator ever re-reads history it has already consumed.
package indicator

// Indicator is the uniform contract every primitive and composite indicator satisfies.
type Indicator[In, Out any] interface {
	// Update consumes one observation and returns the newly computed value
	Update(in In) Out

	// Value returns the most recent value without consuming input
	Value() Out

	// Reset returns the indicator to its post-construction state
	Reset()
}

// Period is implemented by indicators configured with a window or smoothing horizon
type Period interface {
	Period() int
}

// Opener exposes the opening price of an observation
type Opener interface {
	OpenPrice() float64
}

// Higher exposes the high price of an observation
type Higher interface {
	HighPrice() float64
}

// Lower exposes the low price of an observation
type Lower interface {
	LowPrice() float64
}

// Closer exposes the closing price of an observation
type Closer interface {
	ClosePrice() float64
}

// Volumer exposes the traded volume of an observation
type Volumer interface {
	TradedVolume() float64
}

// HighLowClose is required by range based indicators (True Range, ATR, Stochastic)
type HighLowClose interface {
	Higher
	Lower
	Closer
}

// HighLowCloseVolume is required by money flow indicators
type HighLowCloseVolume interface {
	HighLowClose
	Volumer
}

// CloseVolume is required by OBV
type CloseVolume interface {
	Closer
	Volumer
}

// Bar is a full OHLCV observation
type Bar interface {
	Opener
	HighLowCloseVolume
}

// Price is a bare scalar observation. It satisfies every price capability,
// so any bar indicator can be fed plain numbers. Its volume is zero.
type Price float64

func (p Price) OpenPrice() float64    { return float64(p) }
func (p Price) HighPrice() float64    { return float64(p) }
func (p Price) LowPrice() float64     { return float64(p) }
func (p Price) ClosePrice() float64   { return float64(p) }
func (p Price) TradedVolume() float64 { return 0 }

// TypicalPrice returns (high+low+close)/3
func TypicalPrice(b HighLowClose) float64 {
	return (b.HighPrice() + b.LowPrice() + b.ClosePrice()) / 3
}

// Candle is a plain OHLCV observation
type Candle struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (c Candle) OpenPrice() float64    { return c.Open }
func (c Candle) HighPrice() float64    { return c.High }
func (c Candle) LowPrice() float64     { return c.Low }
func (c Candle) ClosePrice() float64   { return c.Close }
func (c Candle) TradedVolume() float64 { return c.Volume }

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
