package indicator

import (
	"fmt"
	"strconv"
)

// BandsOutput is a middle line with an upper and a lower envelope
type BandsOutput struct {
	Average float64 `json:"average"`
	Upper   float64 `json:"upper"`
	Lower   float64 `json:"lower"`
}

// BollingerBands is SMA(period) +/- k * population SD(period)
type BollingerBands struct {
	period int
	k      float64
	sma    *SMA
	sd     *RollingStdDev
	value  BandsOutput
}

// NewBollingerBands creates Bollinger Bands; k must be a non-negative number
func NewBollingerBands(period int, k float64) (*BollingerBands, error) {
	if err := checkPeriod("BB", period); err != nil {
		return nil, err
	}
	if err := checkMultiplier("BB", k); err != nil {
		return nil, err
	}
	sma, err := NewSMA(period)
	if err != nil {
		return nil, err
	}
	return &BollingerBands{period: period, k: k, sma: sma, sd: NewRollingStdDev(period)}, nil
}

// DefaultBollingerBands returns BB(20,2)
func DefaultBollingerBands() *BollingerBands { return must(NewBollingerBands(20, 2)) }

func (b *BollingerBands) Update(x float64) BandsOutput {
	mid := b.sma.Update(x)
	sd := b.sd.Push(x)
	b.value = BandsOutput{Average: mid, Upper: mid + b.k*sd, Lower: mid - b.k*sd}
	return b.value
}

func (b *BollingerBands) Value() BandsOutput { return b.value }

func (b *BollingerBands) Reset() {
	b.sma.Reset()
	b.sd.Reset()
	b.value = BandsOutput{}
}

func (b *BollingerBands) Period() int         { return b.period }
func (b *BollingerBands) Multiplier() float64 { return b.k }

func (b *BollingerBands) String() string {
	return fmt.Sprintf("BB(%d,%s)", b.period, formatParam(b.k))
}

// KeltnerChannel is EMA(typical price) +/- multiplier * ATR
type KeltnerChannel[B HighLowClose] struct {
	period int
	mult   float64
	ema    *EMA
	atr    *ATR[B]
	value  BandsOutput
}

// NewKeltnerChannel creates a Keltner Channel
func NewKeltnerChannel[B HighLowClose](period int, multiplier float64) (*KeltnerChannel[B], error) {
	if err := checkPeriod("KC", period); err != nil {
		return nil, err
	}
	if err := checkMultiplier("KC", multiplier); err != nil {
		return nil, err
	}
	return &KeltnerChannel[B]{
		period: period,
		mult:   multiplier,
		ema:    must(NewEMA(period)),
		atr:    must(NewATR[B](period)),
	}, nil
}

// DefaultKeltnerChannel returns KC(10,2)
func DefaultKeltnerChannel[B HighLowClose]() *KeltnerChannel[B] {
	return must(NewKeltnerChannel[B](10, 2))
}

func (k *KeltnerChannel[B]) Update(b B) BandsOutput {
	mid := k.ema.Update(TypicalPrice(b))
	width := k.mult * k.atr.Update(b)
	k.value = BandsOutput{Average: mid, Upper: mid + width, Lower: mid - width}
	return k.value
}

func (k *KeltnerChannel[B]) Value() BandsOutput { return k.value }

func (k *KeltnerChannel[B]) Reset() {
	k.ema.Reset()
	k.atr.Reset()
	k.value = BandsOutput{}
}

func (k *KeltnerChannel[B]) Period() int         { return k.period }
func (k *KeltnerChannel[B]) Multiplier() float64 { return k.mult }

func (k *KeltnerChannel[B]) String() string {
	return fmt.Sprintf("KC(%d,%s)", k.period, formatParam(k.mult))
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
