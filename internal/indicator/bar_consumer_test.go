package indicator

import (
	"errors"
	"testing"

	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProcessor struct {
	err  error
	seen []string
}

func (p *failingProcessor) ProcessBar(bar *models.Bar1m) error {
	p.seen = append(p.seen, bar.Symbol)
	return p.err
}

func TestDecodeBarMessage(t *testing.T) {
	bar := makeBars("AAPL", 1, 1)[0]

	got, err := DecodeBarMessage(barMessage(t, "1-0", bar))
	require.NoError(t, err)
	assert.Equal(t, bar.Symbol, got.Symbol)
	assert.True(t, bar.Timestamp.Equal(got.Timestamp))
	assert.InDelta(t, bar.Close, got.Close, 1e-9)
	assert.Equal(t, bar.Volume, got.Volume)

	// String prices and a non-standard field name
	raw := `{"symbol":"MSFT","timestamp":"2024-03-04T14:30:00Z","open":"410.10","high":"411","low":"409.5","close":"410.75","volume":"1200"}`
	got, err = DecodeBarMessage(storage.StreamMessage{ID: "2-0", Values: map[string]interface{}{"payload": raw}})
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got.Symbol)
	assert.InDelta(t, 410.75, got.Close, 1e-12)
	assert.Equal(t, int64(1200), got.Volume)

	_, err = DecodeBarMessage(storage.StreamMessage{ID: "3-0", Values: map[string]interface{}{"n": 1}})
	assert.Error(t, err)

	_, err = DecodeBarMessage(storage.StreamMessage{ID: "4-0", Values: map[string]interface{}{BarField: "{"}})
	assert.Error(t, err)

	_, err = DecodeBarMessage(storage.StreamMessage{ID: "5-0", Values: map[string]interface{}{BarField: 42}})
	assert.Error(t, err)
}

func TestBarConsumer_ProcessesAndAcks(t *testing.T) {
	bars := makeBars("AAPL", 5, 2)
	redis := storage.NewMockRedisClient()
	redis.StreamData = []storage.StreamMessage{
		barMessage(t, "1-0", bars[0]),
		{ID: "2-0", Values: map[string]interface{}{BarField: "not json"}},
		barMessage(t, "3-0", bars[0]), // duplicate
		barMessage(t, "4-0", bars[1]),
		{ID: "5-0", Values: map[string]interface{}{"n": 1}},
	}

	engine := newTestEngine(t, "obv", "ema_9")
	consumer := NewBarConsumer(redis, DefaultConsumerConfig("bars.finalized", "indicator-engine", "test"))
	consumer.SetProcessor(engine)

	require.NoError(t, consumer.Start())
	assert.True(t, consumer.IsRunning())
	consumer.Wait()
	consumer.Stop()
	assert.False(t, consumer.IsRunning())

	assert.Equal(t, []string{"1-0", "2-0", "3-0", "4-0", "5-0"}, redis.AckedIDs())
	assert.Len(t, redis.StreamEntries("bars.finalized.dlq"), 2)

	stats := consumer.GetStats()
	assert.Equal(t, int64(2), stats.BarsProcessed)
	assert.Equal(t, int64(1), stats.BarsSkipped)
	assert.Equal(t, int64(2), stats.BarsFailed)
	assert.Equal(t, int64(5), stats.BarsAcked)
	assert.Equal(t, int64(2), stats.DeadLettered)
	assert.Equal(t, "5-0", consumer.LastAckedID())
	assert.True(t, bars[1].Timestamp.Equal(stats.LastBarTime))

	summary, err := engine.GetSymbolSummary("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Bars)
}

func TestBarConsumer_TransientFailuresStayPending(t *testing.T) {
	bars := makeBars("AAPL", 6, 2)
	redis := storage.NewMockRedisClient()
	redis.StreamData = []storage.StreamMessage{
		barMessage(t, "1-0", bars[0]),
		barMessage(t, "2-0", bars[1]),
	}

	processor := &failingProcessor{err: errors.New("boom")}
	config := DefaultConsumerConfig("bars.finalized", "g", "c")
	config.DeadLetterStream = ""
	consumer := NewBarConsumer(redis, config)
	consumer.SetProcessor(processor)

	require.NoError(t, consumer.Start())
	consumer.Wait()
	consumer.Stop()

	assert.Equal(t, []string{"AAPL", "AAPL"}, processor.seen)
	assert.Empty(t, redis.AckedIDs())
	assert.Empty(t, consumer.LastAckedID())
	assert.Equal(t, int64(2), consumer.GetStats().BarsFailed)
}

func TestBarConsumer_StartErrors(t *testing.T) {
	redis := storage.NewMockRedisClient()
	consumer := NewBarConsumer(redis, DefaultConsumerConfig("bars.finalized", "g", "c"))
	assert.Error(t, consumer.Start(), "no processor")

	consumer.SetProcessor(&failingProcessor{})
	require.NoError(t, consumer.Start())
	assert.Error(t, consumer.Start(), "already running")
	consumer.Stop()
	consumer.Stop()
}

func TestBarConsumer_ConsumeError(t *testing.T) {
	redis := storage.NewMockRedisClient()
	redis.ConsumeErr = errors.New("NOAUTH")
	consumer := NewBarConsumer(redis, DefaultConsumerConfig("bars.finalized", "g", "c"))
	consumer.SetProcessor(&failingProcessor{})

	require.NoError(t, consumer.Start())
	consumer.Wait()
	consumer.Stop()
	assert.Equal(t, int64(0), consumer.GetStats().BarsProcessed)
}

func TestBarConsumer_Partitions(t *testing.T) {
	config := DefaultConsumerConfig("bars.finalized", "g", "c")
	assert.Equal(t, []string{"bars.finalized"}, NewBarConsumer(nil, config).getStreams())

	config.Partitions = 3
	assert.Equal(t,
		[]string{"bars.finalized.p0", "bars.finalized.p1", "bars.finalized.p2"},
		NewBarConsumer(nil, config).getStreams())
}
