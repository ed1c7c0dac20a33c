package indicator

import (
	"errors"
	"fmt"
)

// ErrNilBar is returned by Calculator.Update for a nil bar
var ErrNilBar = errors.New("bar cannot be nil")

// Calculator is the interface the indicator service drives for every bar.
// Each calculator owns one indicator and flattens its output into named lines.
type Calculator interface {
	// Name returns the unique name of this calculator (e.g., "rsi_14", "ema_20")
	Name() string

	// Update processes a new bar and updates the indicator state
	Update(bar Bar) error

	// Lines writes the current output into dst. Single-valued indicators
	// write one entry under Name(), multi-line ones write "<name>.<component>".
	Lines(dst map[string]float64)

	// Reset clears the indicator state (useful for rehydration or testing)
	Reset()

	// IsReady returns true once WindowSize bars have been processed
	IsReady() bool

	// WindowSize returns the number of bars required before the output is meaningful
	WindowSize() int

	// BarsProcessed returns the number of bars processed so far
	BarsProcessed() int
}

// LineFunc writes one output value of an indicator into dst
type LineFunc[O any] func(name string, out O, dst map[string]float64)

type calculator[O any] struct {
	name      string
	ind       Indicator[Bar, O]
	window    int
	lines     LineFunc[O]
	processed int
}

// NewCalculator wraps a bar indicator. window is clamped to 1.
func NewCalculator[O any](name string, ind Indicator[Bar, O], window int, lines LineFunc[O]) Calculator {
	if window < 1 {
		window = 1
	}
	return &calculator[O]{name: name, ind: ind, window: window, lines: lines}
}

func (c *calculator[O]) Name() string { return c.name }

func (c *calculator[O]) Update(bar Bar) error {
	if bar == nil {
		return ErrNilBar
	}
	c.ind.Update(bar)
	c.processed++
	return nil
}

func (c *calculator[O]) Lines(dst map[string]float64) {
	c.lines(c.name, c.ind.Value(), dst)
}

func (c *calculator[O]) Reset() {
	c.ind.Reset()
	c.processed = 0
}

func (c *calculator[O]) IsReady() bool      { return c.processed >= c.window }
func (c *calculator[O]) WindowSize() int    { return c.window }
func (c *calculator[O]) BarsProcessed() int { return c.processed }

// String returns the display name of the wrapped indicator, e.g. "EMA(20)[close]"
func (c *calculator[O]) String() string {
	if s, ok := c.ind.(fmt.Stringer); ok {
		return s.String()
	}
	return c.name
}

// ScalarLine writes a single value under name
func ScalarLine(name string, v float64, dst map[string]float64) {
	dst[name] = v
}

// MACDLines writes macd, signal and histogram components
func MACDLines(name string, v MACDOutput, dst map[string]float64) {
	dst[name+".macd"] = v.MACD
	dst[name+".signal"] = v.Signal
	dst[name+".histogram"] = v.Histogram
}

// BandsLines writes average, upper and lower components
func BandsLines(name string, v BandsOutput, dst map[string]float64) {
	dst[name+".average"] = v.Average
	dst[name+".upper"] = v.Upper
	dst[name+".lower"] = v.Lower
}

// ChandelierLines writes long and short exits
func ChandelierLines(name string, v ChandelierOutput, dst map[string]float64) {
	dst[name+".long"] = v.Long
	dst[name+".short"] = v.Short
}

// StochasticLines writes the k and d components
func StochasticLines(name string, v StochasticOutput, dst map[string]float64) {
	dst[name+".k"] = v.K
	dst[name+".d"] = v.D
}
