package indicator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotIndicator[In, Out any] interface {
	Indicator[In, Out]
	Snapshotter
}

// assertResumes feeds half of inputs, snapshots through JSON into a fresh
// instance and checks both continue identically
func assertResumes[In, Out any](t *testing.T, name string, original, fresh snapshotIndicator[In, Out], inputs []In) {
	t.Helper()
	half := len(inputs) / 2
	feedAll[In, Out](original, inputs[:half])

	data, err := json.Marshal(original.Snapshot())
	require.NoError(t, err, name)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap), name)
	require.NoError(t, fresh.Restore(snap), name)
	assert.Equal(t, original.Value(), fresh.Value(), "%s: restored value", name)

	for i, in := range inputs[half:] {
		require.Equal(t, original.Update(in), fresh.Update(in), "%s: step %d after restore", name, i)
	}
}

func TestSnapshot_RestoredIndicatorsContinueTheStream(t *testing.T) {
	candles := randomCandles(55, 120)
	prices := closes(candles)

	assertResumes[float64, float64](t, "EMA", must(NewEMA(7)), must(NewEMA(7)), prices)
	assertResumes[float64, float64](t, "SMA", must(NewSMA(7)), must(NewSMA(7)), prices)
	assertResumes[float64, float64](t, "WEMA", must(NewWEMA(7)), must(NewWEMA(7)), prices)
	assertResumes[float64, float64](t, "SD", must(NewStandardDeviation(7)), must(NewStandardDeviation(7)), prices)
	assertResumes[float64, float64](t, "MAD", must(NewMeanAbsoluteDeviation(7)), must(NewMeanAbsoluteDeviation(7)), prices)
	assertResumes[float64, float64](t, "RSI", must(NewRSI(7)), must(NewRSI(7)), prices)
	assertResumes[float64, float64](t, "ROC", must(NewROC(7)), must(NewROC(7)), prices)
	assertResumes[float64, MACDOutput](t, "MACD", DefaultMACD(), DefaultMACD(), prices)
	assertResumes[float64, MACDOutput](t, "PPO", DefaultPPO(), DefaultPPO(), prices)
	assertResumes[float64, BandsOutput](t, "BB", DefaultBollingerBands(), DefaultBollingerBands(), prices)
	assertResumes[Candle, float64](t, "MIN", must(NewMinimum[Candle](7)), must(NewMinimum[Candle](7)), candles)
	assertResumes[Candle, float64](t, "MAX", must(NewMaximum[Candle](7)), must(NewMaximum[Candle](7)), candles)
	assertResumes[Candle, float64](t, "TR", NewTrueRange[Candle](), NewTrueRange[Candle](), candles)
	assertResumes[Candle, float64](t, "ATR", DefaultATR[Candle](), DefaultATR[Candle](), candles)
	assertResumes[Candle, BandsOutput](t, "KC", DefaultKeltnerChannel[Candle](), DefaultKeltnerChannel[Candle](), candles)
	assertResumes[Candle, ChandelierOutput](t, "CE", DefaultChandelierExit[Candle](), DefaultChandelierExit[Candle](), candles)
	assertResumes[Candle, float64](t, "FSTOCH", DefaultFastStochastic[Candle](), DefaultFastStochastic[Candle](), candles)
	assertResumes[Candle, StochasticOutput](t, "SSTOCH", DefaultSlowStochastic[Candle](), DefaultSlowStochastic[Candle](), candles)
	assertResumes[Candle, float64](t, "CCI", DefaultCCI[Candle](), DefaultCCI[Candle](), candles)
	assertResumes[Candle, float64](t, "MFI", DefaultMFI[Candle](), DefaultMFI[Candle](), candles)
	assertResumes[Candle, float64](t, "OBV", NewOBV[Candle](), NewOBV[Candle](), candles)
	assertResumes[Candle, float64](t, "VWAP", DefaultVWAP[Candle](), DefaultVWAP[Candle](), candles)
	assertResumes[Candle, float64](t, "RVOL", DefaultRelativeVolume[Candle](), DefaultRelativeVolume[Candle](), candles)
}

func TestSnapshot_Adapters(t *testing.T) {
	candles := randomCandles(56, 80)

	rsiEMA := func() *Chained[Candle, float64] {
		return Chain[Candle, float64](OnClose[Candle, float64](must(NewRSI(5))), must(NewEMA(3)))
	}
	assertResumes[Candle, float64](t, "EMA(RSI)", rsiEMA(), rsiEMA(), candles)
	assertResumes[Candle, float64](t, "SMA[high]",
		OnHigh[Candle, float64](must(NewSMA(4))), OnHigh[Candle, float64](must(NewSMA(4))), candles)
}

func TestSnapshot_Mismatch(t *testing.T) {
	ema := must(NewEMA(9))
	ema.Update(10)
	snap := ema.Snapshot()

	other := must(NewEMA(10))
	assert.ErrorIs(t, other.Restore(snap), ErrSnapshotMismatch)

	sma := must(NewSMA(9))
	assert.ErrorIs(t, sma.Restore(snap), ErrSnapshotMismatch)

	// window larger than the target capacity
	big := must(NewSMA(9))
	for i := 0; i < 9; i++ {
		big.Update(float64(i))
	}
	s := big.Snapshot()
	s.Children[0].Window = append(s.Children[0].Window, 99)
	assert.ErrorIs(t, must(NewSMA(9)).Restore(s), ErrSnapshotMismatch)

	// deque entry older than the period
	minimum := must(NewMinimum[Candle](3))
	minimum.Update(Candle{Low: 1})
	ms := minimum.Snapshot()
	ms.Children[0].Scalars[0] = 5
	assert.ErrorIs(t, must(NewMinimum[Candle](3)).Restore(ms), ErrSnapshotMismatch)
}

func TestSnapshot_RejectedDequeLeavesStateIntact(t *testing.T) {
	candles := randomCandles(57, 30)
	target, twin := must(NewMaximum[Candle](5)), must(NewMaximum[Candle](5))
	feedAll[Candle, float64](target, candles[:10])
	feedAll[Candle, float64](twin, candles[:10])

	donor := must(NewMaximum[Candle](5))
	feedAll[Candle, float64](donor, candles[10:20])
	bad := donor.Snapshot()
	require.NotEmpty(t, bad.Children[0].Scalars)
	bad.Children[0].Scalars[len(bad.Children[0].Scalars)-1] = 7

	assert.ErrorIs(t, target.Restore(bad), ErrSnapshotMismatch)
	assert.Equal(t, twin.Value(), target.Value())
	for i, c := range candles[20:] {
		require.Equal(t, twin.Update(c), target.Update(c), "step %d after rejected restore", i)
	}
}

func TestSnapshot_BollingerCarriesMiddleAndDeviation(t *testing.T) {
	snap := DefaultBollingerBands().Snapshot()
	require.Len(t, snap.Children, 2)
	assert.Equal(t, "SMA(20)", snap.Children[0].Kind)
	assert.Equal(t, "stddev", snap.Children[1].Kind)
}

func TestSnapshot_KindNamesConfiguration(t *testing.T) {
	assert.Equal(t, "BB(20,2.5)", must(NewBollingerBands(20, 2.5)).Snapshot().Kind)
	assert.Equal(t, "MACD(12,26,9)", DefaultMACD().Snapshot().Kind)
}
