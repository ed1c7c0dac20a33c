package indicator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUpdate(symbol string, minute int) models.IndicatorUpdate {
	return models.IndicatorUpdate{
		Symbol:    symbol,
		Timestamp: testStart.Add(time.Duration(minute) * time.Minute),
		Values:    map[string]float64{"ema_9": 101.5, "rsi_14": 55.2},
	}
}

func TestPublisher_PublishIndicators(t *testing.T) {
	redis := storage.NewMockRedisClient()
	publisher := NewPublisher(redis, DefaultPublisherConfig())

	require.NoError(t, publisher.PublishIndicators(context.Background(), testUpdate("AAPL", 0)))

	raw, ok := redis.Value("ind:AAPL")
	require.True(t, ok)
	var stored models.IndicatorUpdate
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "AAPL", stored.Symbol)
	assert.Equal(t, 101.5, stored.Values["ema_9"])
	assert.NotEmpty(t, stored.TraceID)
	assert.Equal(t, 10*time.Minute, redis.TTLs["ind:AAPL"])

	assert.Equal(t, []string{"AAPL"}, redis.Members("indicators:symbols"))

	messages := redis.Messages("indicators.updated")
	require.Len(t, messages, 1)
	var notification map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(messages[0]), &notification))
	assert.Equal(t, "AAPL", notification["symbol"])
	assert.Equal(t, stored.TraceID, notification["trace_id"])
}

func TestPublisher_EmptyValuesAreSkipped(t *testing.T) {
	redis := storage.NewMockRedisClient()
	publisher := NewPublisher(redis, DefaultPublisherConfig())

	update := testUpdate("AAPL", 0)
	update.Values = nil
	require.NoError(t, publisher.PublishIndicators(context.Background(), update))

	_, ok := redis.Value("ind:AAPL")
	assert.False(t, ok)
	assert.Empty(t, redis.Messages("indicators.updated"))
}

func TestPublisher_Errors(t *testing.T) {
	t.Run("set failure is returned", func(t *testing.T) {
		redis := storage.NewMockRedisClient()
		redis.SetErr = errors.New("READONLY")
		publisher := NewPublisher(redis, DefaultPublisherConfig())

		err := publisher.PublishIndicators(context.Background(), testUpdate("AAPL", 0))
		assert.ErrorIs(t, err, redis.SetErr)
	})

	t.Run("notification failure is tolerated", func(t *testing.T) {
		redis := storage.NewMockRedisClient()
		redis.PublishErr = errors.New("connection reset")
		publisher := NewPublisher(redis, DefaultPublisherConfig())

		require.NoError(t, publisher.PublishIndicators(context.Background(), testUpdate("AAPL", 0)))
		_, ok := redis.Value("ind:AAPL")
		assert.True(t, ok)
	})
}

func TestPublisher_QueueDrainsOnStop(t *testing.T) {
	redis := storage.NewMockRedisClient()
	config := DefaultPublisherConfig()
	config.IndicatorKeyPrefix = "test:"
	publisher := NewPublisher(redis, config)

	require.NoError(t, publisher.Start())
	assert.True(t, publisher.IsRunning())
	assert.Error(t, publisher.Start())

	for i, symbol := range []string{"AAPL", "MSFT", "NVDA"} {
		publisher.QueueUpdate(testUpdate(symbol, i))
	}
	publisher.Stop()
	assert.False(t, publisher.IsRunning())

	for _, symbol := range []string{"AAPL", "MSFT", "NVDA"} {
		_, ok := redis.Value("test:" + symbol)
		assert.True(t, ok, symbol)
	}
	assert.Len(t, redis.Messages("indicators.updated"), 3)
	assert.Zero(t, publisher.Dropped())
}

func TestPublisher_QueueDropsWhenFull(t *testing.T) {
	redis := storage.NewMockRedisClient()
	config := DefaultPublisherConfig()
	config.QueueSize = 2
	publisher := NewPublisher(redis, config)

	// Not started, nothing drains the queue
	for i := 0; i < 5; i++ {
		publisher.QueueUpdate(testUpdate("AAPL", i))
	}
	assert.Equal(t, int64(3), publisher.Dropped())
}

func TestPublisher_EngineCallback(t *testing.T) {
	redis := storage.NewMockRedisClient()
	publisher := NewPublisher(redis, DefaultPublisherConfig())
	require.NoError(t, publisher.Start())

	engine := newTestEngine(t, "sma_10")
	engine.SetOnIndicatorsUpdated(publisher.QueueUpdate)
	for _, bar := range makeBars("AAPL", 11, 12) {
		require.NoError(t, engine.ProcessBar(bar))
	}
	publisher.Stop()

	// sma_10 is ready from the 10th bar
	assert.Len(t, redis.Messages("indicators.updated"), 3)

	raw, ok := redis.Value("ind:AAPL")
	require.True(t, ok)
	var stored models.IndicatorUpdate
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	expected, err := engine.GetIndicators("AAPL")
	require.NoError(t, err)
	assert.InDelta(t, expected["sma_10"], stored.Values["sma_10"], 1e-9)
}
