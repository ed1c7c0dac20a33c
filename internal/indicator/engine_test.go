package indicator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
	indicatorpkg "github.com/mohamedkhairy/streamta/pkg/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(DefaultEngineConfig(), nil)
	assert.Error(t, err)

	_, err = NewEngine(EngineConfig{Indicators: []string{"nope_1"}}, newTestRegistry(t))
	assert.Error(t, err)

	engine, err := NewEngine(EngineConfig{}, newTestRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, newTestRegistry(t).ListAvailable(), engine.Indicators(), "empty set means every indicator")
}

func TestEngine_ProcessBar(t *testing.T) {
	engine := newTestEngine(t, "sma_10", "rsi_14", "obv")

	var mu sync.Mutex
	var updates []models.IndicatorUpdate
	engine.SetOnIndicatorsUpdated(func(u models.IndicatorUpdate) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	})

	bars := makeBars("AAPL", 1, 20)
	for _, bar := range bars {
		require.NoError(t, engine.ProcessBar(bar))
	}

	values, err := engine.GetIndicators("AAPL")
	require.NoError(t, err)
	assert.Len(t, values, 3)

	var sum float64
	for _, bar := range bars[10:] {
		sum += bar.Close
	}
	assert.InDelta(t, sum/10, values["sma_10"], 1e-9)
	assert.GreaterOrEqual(t, values["rsi_14"], 0.0)
	assert.LessOrEqual(t, values["rsi_14"], 100.0)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 20, "obv is ready from the first bar")
	assert.Len(t, updates[0].Values, 1)
	assert.Equal(t, bars[19].Timestamp, updates[19].Timestamp)
	assert.Equal(t, values, updates[19].Values)
}

func TestEngine_ProcessBar_Errors(t *testing.T) {
	engine := newTestEngine(t, "ema_9")

	assert.Error(t, engine.ProcessBar(nil))

	invalid := &models.Bar1m{Symbol: "AAPL", Timestamp: testStart, High: 1, Low: 2, Close: 1.5}
	err := engine.ProcessBar(invalid)
	assert.ErrorIs(t, err, models.ErrInvalidBar)
	assert.Equal(t, 0, engine.GetSymbolCount(), "invalid bars never create state")

	bars := makeBars("AAPL", 2, 3)
	require.NoError(t, engine.ProcessBar(bars[1]))
	assert.ErrorIs(t, engine.ProcessBar(bars[1]), ErrStaleBar, "duplicate")
	assert.ErrorIs(t, engine.ProcessBar(bars[0]), ErrStaleBar, "out of order")
	require.NoError(t, engine.ProcessBar(bars[2]))

	summary, err := engine.GetSymbolSummary("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Bars)
	assert.Equal(t, bars[2].Timestamp, summary.LastUpdate)
}

func TestEngine_MaxSymbols(t *testing.T) {
	engine, err := NewEngine(EngineConfig{MaxSymbols: 2, Indicators: []string{"obv"}}, newTestRegistry(t))
	require.NoError(t, err)

	for _, symbol := range []string{"MSFT", "AAPL"} {
		require.NoError(t, engine.ProcessBar(makeBars(symbol, 3, 1)[0]))
	}
	err = engine.ProcessBar(makeBars("TSLA", 3, 1)[0])
	assert.ErrorIs(t, err, ErrTooManySymbols)

	assert.Equal(t, []string{"AAPL", "MSFT"}, engine.GetAllSymbols(), "symbols are listed in order")

	assert.True(t, engine.RemoveSymbol("MSFT"))
	assert.False(t, engine.RemoveSymbol("MSFT"))
	require.NoError(t, engine.ProcessBar(makeBars("TSLA", 3, 1)[0]))
	assert.Equal(t, []string{"AAPL", "TSLA"}, engine.GetAllSymbols())
}

func TestEngine_UnknownSymbol(t *testing.T) {
	engine := newTestEngine(t, "obv")

	_, err := engine.GetIndicators("NOPE")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
	_, err = engine.GetSymbolSummary("NOPE")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestEngine_SnapshotRestoreContinuesExactly(t *testing.T) {
	bars := makeBars("NVDA", 7, 120)
	other := makeBars("AMD", 8, 120)

	live := newTestEngine(t)
	for i := range bars {
		require.NoError(t, live.ProcessBar(bars[i]))
		require.NoError(t, live.ProcessBar(other[i]))
	}

	first := newTestEngine(t)
	for i := 0; i < 70; i++ {
		require.NoError(t, first.ProcessBar(bars[i]))
		require.NoError(t, first.ProcessBar(other[i]))
	}
	snap := first.Snapshot("1700000000000-5")
	assert.Equal(t, "1700000000000-5", snap.StreamID)
	require.Len(t, snap.Symbols, 2)
	assert.Equal(t, "AMD", snap.Symbols[0].Symbol, "snapshot is ordered by symbol")

	resumed := newTestEngine(t)
	require.NoError(t, resumed.Restore(snap))
	assert.ErrorIs(t, resumed.ProcessBar(bars[69]), ErrStaleBar, "redelivered bars are skipped")
	for i := 70; i < 120; i++ {
		require.NoError(t, resumed.ProcessBar(bars[i]))
		require.NoError(t, resumed.ProcessBar(other[i]))
	}

	for _, symbol := range []string{"NVDA", "AMD"} {
		want, err := live.GetIndicators(symbol)
		require.NoError(t, err)
		got, err := resumed.GetIndicators(symbol)
		require.NoError(t, err)
		require.Equal(t, len(want), len(got))
		for line, v := range want {
			assert.InDelta(t, v, got[line], 1e-9, line)
		}
	}
}

func TestEngine_RestorePartialAndIncompatible(t *testing.T) {
	small := newTestEngine(t, "ema_9")
	for _, bar := range makeBars("AAPL", 4, 30) {
		require.NoError(t, small.ProcessBar(bar))
	}
	snap := small.Snapshot("")

	// ema_9 resumes, sma_10 has no entry and starts cold
	wider := newTestEngine(t, "ema_9", "sma_10")
	require.NoError(t, wider.Restore(snap))
	values, err := wider.GetIndicators("AAPL")
	require.NoError(t, err)
	assert.Contains(t, values, "ema_9")
	assert.NotContains(t, values, "sma_10")

	snap.Version = models.EngineSnapshotVersion + 1
	err = wider.Restore(snap)
	assert.ErrorIs(t, err, indicatorpkg.ErrSnapshotMismatch)
	assert.Error(t, wider.Restore(nil))
}

func TestEngine_Rehydrate(t *testing.T) {
	bars := makeBars("META", 9, 40)

	live := newTestEngine(t, "atr_14", "ema_20")
	for _, bar := range bars {
		require.NoError(t, live.ProcessBar(bar))
	}

	replayed := newTestEngine(t, "atr_14", "ema_20")
	require.NoError(t, replayed.ProcessBar(makeBars("META", 10, 1)[0]))
	require.NoError(t, replayed.Rehydrate("META", append(bars, nil, &models.Bar1m{Symbol: "OTHER"})))

	want, err := live.GetSymbolSummary("META")
	require.NoError(t, err)
	got, err := replayed.GetSymbolSummary("META")
	require.NoError(t, err)
	assert.Equal(t, want.Bars, got.Bars)
	assert.Equal(t, want.LastUpdate, got.LastUpdate)
	for line, v := range want.Values {
		assert.InDelta(t, v, got.Values[line], 1e-12, line)
	}
}

func TestEngine_ConcurrentSymbols(t *testing.T) {
	engine := newTestEngine(t, "ema_9", "rsi_14")
	symbols := []string{"A", "B", "C", "D"}

	var wg sync.WaitGroup
	errs := make(chan error, len(symbols))
	for i, symbol := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, bar := range makeBars(symbol, uint64(i), 50) {
				if err := engine.ProcessBar(bar); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	require.NoError(t, errors.Join(all...))
	assert.Equal(t, symbols, engine.GetAllSymbols())

	snap := engine.Snapshot("")
	for _, sym := range snap.Symbols {
		assert.Equal(t, 50, sym.Bars)
		assert.True(t, sym.LastUpdate.Equal(testStart.Add(49*time.Minute)))
	}
}
