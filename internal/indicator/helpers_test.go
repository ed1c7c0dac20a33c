package indicator

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

// makeBars returns n consecutive 1-minute bars with a seeded random walk
func makeBars(symbol string, seed uint64, n int) []*models.Bar1m {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b9))
	bars := make([]*models.Bar1m, n)
	price := 100.0
	for i := range bars {
		open := price
		price = math.Max(1, price+rng.NormFloat64())
		bars[i] = &models.Bar1m{
			Symbol:    symbol,
			Timestamp: testStart.Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      math.Max(open, price) + rng.Float64(),
			Low:       math.Max(0.5, math.Min(open, price)-rng.Float64()),
			Close:     price,
			Volume:    int64(1000 + rng.IntN(5000)),
		}
	}
	return bars
}

func newTestRegistry(t *testing.T) *IndicatorRegistry {
	t.Helper()
	registry := NewIndicatorRegistry()
	require.NoError(t, RegisterAllIndicators(registry))
	return registry
}

func newTestEngine(t *testing.T, indicators ...string) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineConfig{MaxSymbols: 100, Indicators: indicators}, newTestRegistry(t))
	require.NoError(t, err)
	return engine
}

func barMessage(t *testing.T, id string, bar *models.Bar1m) storage.StreamMessage {
	t.Helper()
	data, err := json.Marshal(models.NewWireBar(bar))
	require.NoError(t, err)
	return storage.StreamMessage{ID: id, Values: map[string]interface{}{BarField: string(data)}}
}
