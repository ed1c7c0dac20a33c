package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEMACalculator(period int) Calculator {
	return NewCalculator("ema_3", OnClose[Bar, float64](must(NewEMA(period))), period, ScalarLine)
}

func TestCalculator_ReadinessAndLines(t *testing.T) {
	calc := newEMACalculator(3)
	assert.Equal(t, "ema_3", calc.Name())
	assert.Equal(t, 3, calc.WindowSize())
	assert.False(t, calc.IsReady())

	for _, x := range []float64{2.0, 5.0, 1.0} {
		require.NoError(t, calc.Update(Candle{Close: x}))
	}
	assert.True(t, calc.IsReady())
	assert.Equal(t, 3, calc.BarsProcessed())

	lines := map[string]float64{}
	calc.Lines(lines)
	assert.Equal(t, map[string]float64{"ema_3": 2.25}, lines)

	calc.Reset()
	assert.False(t, calc.IsReady())
	assert.Equal(t, 0, calc.BarsProcessed())
}

func TestCalculator_NilBar(t *testing.T) {
	calc := newEMACalculator(3)
	assert.ErrorIs(t, calc.Update(nil), ErrNilBar)
	assert.Equal(t, 0, calc.BarsProcessed())
}

func TestCalculator_MultiLineOutputs(t *testing.T) {
	macd := NewCalculator("macd_12_26_9", OnClose[Bar, MACDOutput](DefaultMACD()), 26, MACDLines)
	bb := NewCalculator("bb_20_2", OnClose[Bar, BandsOutput](DefaultBollingerBands()), 20, BandsLines)
	stoch := NewCalculator("stoch_14_3_3", Indicator[Bar, StochasticOutput](DefaultSlowStochastic[Bar]()), 14, StochasticLines)
	ce := NewCalculator("ce_22_3", Indicator[Bar, ChandelierOutput](DefaultChandelierExit[Bar]()), 22, ChandelierLines)

	lines := map[string]float64{}
	for _, calc := range []Calculator{macd, bb, stoch, ce} {
		require.NoError(t, calc.Update(Candle{High: 11, Low: 9, Close: 10}))
		calc.Lines(lines)
	}
	for _, key := range []string{
		"macd_12_26_9.macd", "macd_12_26_9.signal", "macd_12_26_9.histogram",
		"bb_20_2.average", "bb_20_2.upper", "bb_20_2.lower",
		"stoch_14_3_3.k", "stoch_14_3_3.d",
		"ce_22_3.long", "ce_22_3.short",
	} {
		assert.Contains(t, lines, key)
	}
	assert.Equal(t, 10.0, lines["bb_20_2.average"])
}

func TestAdapters(t *testing.T) {
	bar := Candle{Open: 1, High: 12, Low: 6, Close: 9, Volume: 500}

	assert.Equal(t, 9.0, OnClose[Candle, float64](must(NewSMA(2))).Update(bar))
	assert.Equal(t, 12.0, OnHigh[Candle, float64](must(NewSMA(2))).Update(bar))
	assert.Equal(t, 6.0, OnLow[Candle, float64](must(NewSMA(2))).Update(bar))
	assert.Equal(t, 500.0, OnVolume[Candle, float64](must(NewSMA(2))).Update(bar))
	assert.Equal(t, 9.0, OnTypicalPrice[Candle, float64](must(NewSMA(2))).Update(bar))

	f := OnClose[Candle, float64](must(NewEMA(3)))
	assert.Equal(t, "EMA(3)[close]", f.String())
	f.Update(bar)
	f.Reset()
	assert.Equal(t, 0.0, f.Value())
	assert.Equal(t, 0.0, f.Inner().Value())
}

func TestChain_FeedsOutputForward(t *testing.T) {
	chain := Chain[float64, float64](must(NewSMA(2)), must(NewEMA(3)))
	assert.Equal(t, "EMA(3)(SMA(2))", chain.String())

	// SMA: 2, 3, 5 -> EMA(alpha .5): 2, 2.5, 3.75
	assert.Equal(t, 2.0, chain.Update(2))
	assert.Equal(t, 2.5, chain.Update(4))
	assert.Equal(t, 3.75, chain.Update(6))
	assert.Equal(t, 3.75, chain.Value())

	chain.Reset()
	assert.Equal(t, 7.0, chain.Update(7))
}

func TestSymbolState_UpdateAndValues(t *testing.T) {
	state := NewSymbolState("AAPL")
	require.NoError(t, state.AddCalculator(newEMACalculator(3)))
	require.NoError(t, state.AddCalculator(NewCalculator("obv", Indicator[Bar, float64](NewOBV[Bar]()), 1, ScalarLine)))
	assert.Error(t, state.AddCalculator(newEMACalculator(3)), "duplicate name")
	assert.Error(t, state.AddCalculator(nil))
	assert.Equal(t, []string{"ema_3", "obv"}, state.CalculatorNames())

	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	require.NoError(t, state.Update(Candle{Close: 10, Volume: 100}, now))

	values := state.GetAllValues()
	assert.Equal(t, map[string]float64{"obv": 0}, values, "ema_3 is not ready yet")

	require.NoError(t, state.Update(Candle{Close: 12, Volume: 50}, now.Add(time.Minute)))
	require.NoError(t, state.Update(Candle{Close: 11, Volume: 20}, now.Add(2*time.Minute)))

	v, ok := state.GetValue("obv")
	assert.True(t, ok)
	assert.Equal(t, 30.0, v)
	_, ok = state.GetValue("ema_3")
	assert.True(t, ok)
	assert.Equal(t, 3, state.BarsProcessed())
	assert.Equal(t, now.Add(2*time.Minute), state.GetLastUpdate())

	assert.ErrorIs(t, state.Update(nil, now), ErrNilBar)

	state.RemoveCalculator("ema_3")
	assert.Equal(t, []string{"obv"}, state.CalculatorNames())
}

func TestSymbolState_SnapshotRestore(t *testing.T) {
	build := func() *SymbolState {
		s := NewSymbolState("MSFT")
		require.NoError(t, s.AddCalculator(newEMACalculator(3)))
		require.NoError(t, s.AddCalculator(NewCalculator("rsi_5", OnClose[Bar, float64](must(NewRSI(5))), 6, ScalarLine)))
		return s
	}

	original := build()
	start := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	candles := randomCandles(77, 40)
	for i, c := range candles[:20] {
		require.NoError(t, original.Update(c, start.Add(time.Duration(i)*time.Minute)))
	}

	restored := build()
	require.NoError(t, restored.Restore(original.Snapshot()))
	assert.Equal(t, original.GetAllValues(), restored.GetAllValues())
	assert.Equal(t, original.BarsProcessed(), restored.BarsProcessed())

	for i, c := range candles[20:] {
		ts := start.Add(time.Duration(20+i) * time.Minute)
		require.NoError(t, original.Update(c, ts))
		require.NoError(t, restored.Update(c, ts))
	}
	assert.Equal(t, original.GetAllValues(), restored.GetAllValues())

	assert.ErrorIs(t, NewSymbolState("OTHER").Restore(original.Snapshot()), ErrSnapshotMismatch)
}

func TestSymbolState_RestoreColdStartsMismatchedCalculators(t *testing.T) {
	original := NewSymbolState("TSLA")
	require.NoError(t, original.AddCalculator(newEMACalculator(3)))
	for i := 0; i < 5; i++ {
		require.NoError(t, original.Update(Candle{Close: float64(10 + i)}, time.Now()))
	}
	snap := original.Snapshot()

	// same name, different configuration
	changed := NewSymbolState("TSLA")
	require.NoError(t, changed.AddCalculator(newEMACalculator(4)))
	err := changed.Restore(snap)
	assert.ErrorIs(t, err, ErrSnapshotMismatch)
	assert.Empty(t, changed.GetAllValues(), "mismatched calculator starts cold")
}

func TestSymbolState_Rehydrate(t *testing.T) {
	state := NewSymbolState("NVDA")
	require.NoError(t, state.AddCalculator(newEMACalculator(3)))

	bars := []Bar{Candle{Close: 2}, Candle{Close: 5}, nil, Candle{Close: 1}}
	last := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	require.NoError(t, state.Rehydrate(bars, last))

	v, ok := state.GetValue("ema_3")
	assert.True(t, ok)
	assert.Equal(t, 2.25, v)
	assert.Equal(t, 3, state.BarsProcessed())
	assert.Equal(t, last, state.GetLastUpdate())
}
