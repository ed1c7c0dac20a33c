package indicator

import (
	"testing"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Streaming output is checked against batch implementations once their
// lookback is satisfied.

type ohlcv struct {
	open, high, low, close, volume []float64
}

func columns(candles []Candle) ohlcv {
	var c ohlcv
	for _, b := range candles {
		c.open = append(c.open, b.Open)
		c.high = append(c.high, b.High)
		c.low = append(c.low, b.Low)
		c.close = append(c.close, b.Close)
		c.volume = append(c.volume, b.Volume)
	}
	return c
}

const referenceTolerance = 1e-6

func TestReference_TalibScalar(t *testing.T) {
	data := closes(randomCandles(101, 400))

	for _, period := range []int{2, 5, 14, 30} {
		sma := must(NewSMA(period))
		sd := must(NewStandardDeviation(period))
		roc := must(NewROC(period))
		bb := must(NewBollingerBands(period, 2))

		wantSMA := talib.Sma(data, period)
		wantSD := talib.StdDev(data, period, 1.0)
		wantROC := talib.Roc(data, period)
		upper, middle, lower := talib.BBands(data, period, 2, 2, talib.SMA)

		for i, x := range data {
			gotSMA := sma.Update(x)
			gotSD := sd.Update(x)
			gotROC := roc.Update(x)
			gotBB := bb.Update(x)

			if i >= period-1 {
				require.InDelta(t, wantSMA[i], gotSMA, referenceTolerance, "SMA(%d) at %d", period, i)
				require.InDelta(t, wantSD[i], gotSD, referenceTolerance, "SD(%d) at %d", period, i)
				require.InDelta(t, middle[i], gotBB.Average, referenceTolerance, "BB(%d) middle at %d", period, i)
				require.InDelta(t, upper[i], gotBB.Upper, referenceTolerance, "BB(%d) upper at %d", period, i)
				require.InDelta(t, lower[i], gotBB.Lower, referenceTolerance, "BB(%d) lower at %d", period, i)
			}
			if i >= period {
				require.InDelta(t, wantROC[i], gotROC, referenceTolerance, "ROC(%d) at %d", period, i)
			} else {
				require.Equal(t, 0.0, gotROC)
			}
		}
	}
}

func TestReference_TalibBars(t *testing.T) {
	candles := randomCandles(202, 400)
	c := columns(candles)

	for _, period := range []int{2, 5, 14} {
		minimum := must(NewMinimum[Candle](period))
		maximum := must(NewMaximum[Candle](period))
		cci := must(NewCCI[Candle](period))
		mfi := must(NewMFI[Candle](period))

		wantMin := talib.Min(c.low, period)
		wantMax := talib.Max(c.high, period)
		wantCCI := talib.Cci(c.high, c.low, c.close, period)
		wantMFI := talib.Mfi(c.high, c.low, c.close, c.volume, period)

		for i, b := range candles {
			gotMin := minimum.Update(b)
			gotMax := maximum.Update(b)
			gotCCI := cci.Update(b)
			gotMFI := mfi.Update(b)

			if i >= period-1 {
				require.Equal(t, wantMin[i], gotMin, "MIN(%d) at %d", period, i)
				require.Equal(t, wantMax[i], gotMax, "MAX(%d) at %d", period, i)
				require.InDelta(t, wantCCI[i], gotCCI, referenceTolerance, "CCI(%d) at %d", period, i)
			}
			if i >= period {
				require.InDelta(t, wantMFI[i], gotMFI, referenceTolerance, "MFI(%d) at %d", period, i)
			}
		}
	}
}

func TestReference_TalibTrueRangeAndOBV(t *testing.T) {
	candles := randomCandles(303, 300)
	c := columns(candles)

	tr := NewTrueRange[Candle]()
	obv := NewOBV[Candle]()
	wantTR := talib.TRange(c.high, c.low, c.close)
	wantOBV := talib.Obv(c.close, c.volume)

	for i, b := range candles {
		gotTR := tr.Update(b)
		gotOBV := obv.Update(b)
		if i >= 1 {
			require.InDelta(t, wantTR[i], gotTR, referenceTolerance, "TR at %d", i)
		}
		// the batch version seeds with the first volume, this one with 0
		require.InDelta(t, wantOBV[i]-c.volume[0], gotOBV, referenceTolerance, "OBV at %d", i)
	}
}

func TestReference_TechanEMAConverges(t *testing.T) {
	data := closes(randomCandles(404, 300))
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

	for _, period := range []int{3, 5, 9} {
		series := techan.NewTimeSeries()
		reference := techan.NewEMAIndicator(techan.NewClosePriceIndicator(series), period)
		ema := must(NewEMA(period))

		for i, x := range data {
			candle := techan.NewCandle(techan.NewTimePeriod(start.Add(time.Duration(i)*time.Minute), time.Minute))
			candle.OpenPrice = big.NewDecimal(x)
			candle.MaxPrice = big.NewDecimal(x)
			candle.MinPrice = big.NewDecimal(x)
			candle.ClosePrice = big.NewDecimal(x)
			series.AddCandle(candle)
			ema.Update(x)
		}

		// seeds differ, the difference decays by (1-alpha) per bar
		want := reference.Calculate(series.LastIndex()).Float()
		assert.InDelta(t, want, ema.Value(), referenceTolerance, "EMA(%d)", period)
	}
}
