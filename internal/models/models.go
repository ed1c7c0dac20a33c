package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Bar1m represents a finalized 1-minute bar
type Bar1m struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	VWAP      float64   `json:"vwap"`
}

func (b Bar1m) OpenPrice() float64    { return b.Open }
func (b Bar1m) HighPrice() float64    { return b.High }
func (b Bar1m) LowPrice() float64     { return b.Low }
func (b Bar1m) ClosePrice() float64   { return b.Close }
func (b Bar1m) TradedVolume() float64 { return float64(b.Volume) }

// Validate validates a Bar1m
func (b *Bar1m) Validate() error {
	if b.Symbol == "" {
		return ErrInvalidSymbol
	}
	if b.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return ErrInvalidPrice
		}
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// WireBar is a bar as published on the bar stream. Prices may arrive as
// JSON numbers or as strings; both decode exactly.
type WireBar struct {
	Symbol    string              `json:"symbol"`
	Timestamp time.Time           `json:"timestamp"`
	Open      decimal.Decimal     `json:"open"`
	High      decimal.Decimal     `json:"high"`
	Low       decimal.Decimal     `json:"low"`
	Close     decimal.Decimal     `json:"close"`
	Volume    decimal.Decimal     `json:"volume"`
	VWAP      decimal.NullDecimal `json:"vwap"`
}

// ToBar1m converts the wire representation to a Bar1m
func (w *WireBar) ToBar1m() (*Bar1m, error) {
	if !w.Volume.Equal(w.Volume.Truncate(0)) {
		return nil, fmt.Errorf("%w: fractional volume %s", ErrInvalidVolume, w.Volume)
	}
	bar := &Bar1m{
		Symbol:    w.Symbol,
		Timestamp: w.Timestamp,
		Open:      w.Open.InexactFloat64(),
		High:      w.High.InexactFloat64(),
		Low:       w.Low.InexactFloat64(),
		Close:     w.Close.InexactFloat64(),
		Volume:    w.Volume.IntPart(),
	}
	if w.VWAP.Valid {
		bar.VWAP = w.VWAP.Decimal.InexactFloat64()
	}
	return bar, nil
}

// NewWireBar converts a Bar1m to its wire representation
func NewWireBar(b *Bar1m) WireBar {
	return WireBar{
		Symbol:    b.Symbol,
		Timestamp: b.Timestamp,
		Open:      decimal.NewFromFloat(b.Open),
		High:      decimal.NewFromFloat(b.High),
		Low:       decimal.NewFromFloat(b.Low),
		Close:     decimal.NewFromFloat(b.Close),
		Volume:    decimal.NewFromInt(b.Volume),
		VWAP:      decimal.NewNullDecimal(decimal.NewFromFloat(b.VWAP)),
	}
}

// ParseBar decodes and validates a bar from its JSON wire form
func ParseBar(data []byte) (*Bar1m, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	var wire WireBar
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bar: %w", err)
	}
	bar, err := wire.ToBar1m()
	if err != nil {
		return nil, err
	}
	if err := bar.Validate(); err != nil {
		return nil, err
	}
	return bar, nil
}

// IndicatorUpdate is the latest set of indicator lines for a symbol,
// published after every processed bar
type IndicatorUpdate struct {
	Symbol    string             `json:"symbol"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
	TraceID   string             `json:"trace_id,omitempty"`
}
