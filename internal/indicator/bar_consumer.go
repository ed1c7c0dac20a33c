package indicator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/mohamedkhairy/streamta/pkg/logger"
)

// ConsumerConfig holds configuration for the bar consumer
type ConsumerConfig struct {
	StreamName       string
	ConsumerGroup    string
	ConsumerName     string
	Partitions       int // Number of partitions to consume from (0 = no partitioning)
	BatchSize        int // Number of messages to process before acknowledging
	AckTimeout       time.Duration
	DeadLetterStream string // Undecodable messages are copied here before being acked ("" = drop)
}

// DefaultConsumerConfig returns default configuration
func DefaultConsumerConfig(streamName, consumerGroup, consumerName string) ConsumerConfig {
	return ConsumerConfig{
		StreamName:       streamName,
		ConsumerGroup:    consumerGroup,
		ConsumerName:     consumerName,
		BatchSize:        100,
		AckTimeout:       1 * time.Second,
		DeadLetterStream: streamName + ".dlq",
	}
}

// BarConsumer consumes finalized bars from Redis streams
type BarConsumer struct {
	config    ConsumerConfig
	redis     storage.RedisClient
	processor BarProcessorInterface
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	stats     ConsumerStats
}

// ConsumerStats holds statistics about the consumer
type ConsumerStats struct {
	BarsProcessed int64     `json:"bars_processed"`
	BarsAcked     int64     `json:"bars_acked"`
	BarsFailed    int64     `json:"bars_failed"`
	BarsSkipped   int64     `json:"bars_skipped"`
	DeadLettered  int64     `json:"dead_lettered"`
	LastBarTime   time.Time `json:"last_bar_time"`
	LastAckedID   string    `json:"last_acked_id"`
	mu            sync.RWMutex
}

// NewBarConsumer creates a new bar consumer
func NewBarConsumer(redis storage.RedisClient, config ConsumerConfig) *BarConsumer {
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.AckTimeout <= 0 {
		config.AckTimeout = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &BarConsumer{
		config: config,
		redis:  redis,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetProcessor sets the bar processor
func (c *BarConsumer) SetProcessor(processor BarProcessorInterface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processor = processor
}

// Start starts consuming from the stream
func (c *BarConsumer) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}
	if c.processor == nil {
		c.mu.Unlock()
		return fmt.Errorf("no processor set")
	}
	c.running = true
	c.mu.Unlock()

	streams := c.getStreams()
	logger.Info("Starting bar consumer",
		logger.Stream(c.config.StreamName),
		logger.String("consumer_group", c.config.ConsumerGroup),
		logger.String("consumer", c.config.ConsumerName),
		logger.Int("stream_count", len(streams)),
	)

	for _, stream := range streams {
		c.wg.Add(1)
		go c.consumeStream(stream)
	}

	return nil
}

// Stop stops the consumer
func (c *BarConsumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	logger.Info("Stopping bar consumer")
	c.cancel()
	c.wg.Wait()
	logger.Info("Bar consumer stopped")
}

// Wait blocks until every stream goroutine has returned
func (c *BarConsumer) Wait() {
	c.wg.Wait()
}

// IsRunning returns whether the consumer is running
func (c *BarConsumer) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// GetStats returns consumer statistics
func (c *BarConsumer) GetStats() ConsumerStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	// Return a copy to avoid lock value copy warning
	return ConsumerStats{
		BarsProcessed: c.stats.BarsProcessed,
		BarsAcked:     c.stats.BarsAcked,
		BarsFailed:    c.stats.BarsFailed,
		BarsSkipped:   c.stats.BarsSkipped,
		DeadLettered:  c.stats.DeadLettered,
		LastBarTime:   c.stats.LastBarTime,
		LastAckedID:   c.stats.LastAckedID,
	}
}

// LastAckedID returns the ID of the most recently acknowledged message
func (c *BarConsumer) LastAckedID() string {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return c.stats.LastAckedID
}

// getStreams returns the list of streams to consume from
func (c *BarConsumer) getStreams() []string {
	if c.config.Partitions == 0 {
		return []string{c.config.StreamName}
	}

	streams := make([]string, c.config.Partitions)
	for i := 0; i < c.config.Partitions; i++ {
		streams[i] = fmt.Sprintf("%s.p%d", c.config.StreamName, i)
	}
	return streams
}

// consumeStream consumes messages from a single stream
func (c *BarConsumer) consumeStream(stream string) {
	defer c.wg.Done()

	messageChan, err := c.redis.ConsumeFromStream(c.ctx, stream, c.config.ConsumerGroup, c.config.ConsumerName)
	if err != nil {
		logger.Error("Failed to start consuming from stream",
			logger.ErrorField(err),
			logger.Stream(stream),
		)
		logger.CountError("indicator", "consume")
		return
	}

	batch := make([]storage.StreamMessage, 0, c.config.BatchSize)
	ticker := time.NewTicker(c.config.AckTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			// Process remaining batch before exiting
			c.processBatch(stream, batch)
			return

		case msg, ok := <-messageChan:
			if !ok {
				c.processBatch(stream, batch)
				logger.Warn("Message channel closed",
					logger.Stream(stream),
				)
				return
			}

			batch = append(batch, msg)

			// Process batch if it's full
			if len(batch) >= c.config.BatchSize {
				c.processBatch(stream, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			// Process batch on timeout
			if len(batch) > 0 {
				c.processBatch(stream, batch)
				batch = batch[:0]
			}
		}
	}
}

// processBatch processes a batch of messages in order. Messages that fail
// with a transient error stay pending and are redelivered after a restart.
func (c *BarConsumer) processBatch(stream string, messages []storage.StreamMessage) {
	if len(messages) == 0 {
		return
	}

	c.mu.RLock()
	processor := c.processor
	c.mu.RUnlock()

	ack := make([]string, 0, len(messages))
	failed := 0

	for _, msg := range messages {
		bar, err := DecodeBarMessage(msg)
		if err != nil {
			logger.Error("Failed to deserialize bar",
				logger.ErrorField(err),
				logger.Stream(stream),
				logger.String("message_id", msg.ID),
			)
			c.deadLetter(stream, msg, err)
			ack = append(ack, msg.ID)
			c.incrementFailed()
			continue
		}

		err = processor.ProcessBar(bar)
		switch {
		case err == nil:
			ack = append(ack, msg.ID)
			c.incrementProcessed(bar.Timestamp)
		case errors.Is(err, ErrStaleBar), errors.Is(err, ErrTooManySymbols):
			logger.Debug("Skipping bar",
				logger.ErrorField(err),
				logger.Symbol(bar.Symbol),
				logger.String("message_id", msg.ID),
			)
			ack = append(ack, msg.ID)
			c.incrementSkipped()
		default:
			logger.Error("Failed to process bar",
				logger.ErrorField(err),
				logger.Symbol(bar.Symbol),
				logger.String("message_id", msg.ID),
			)
			failed++
			c.incrementFailed()
		}
	}

	// Acknowledge handled messages
	if len(ack) > 0 {
		c.acknowledgeMessages(stream, ack)
	}

	if failed > 0 {
		logger.Warn("Some bars failed to process",
			logger.Int("failed_count", failed),
			logger.Stream(stream),
		)
		logger.CountError("indicator", "process_bar")
	}
}

// deadLetter copies an undecodable message to the dead letter stream
func (c *BarConsumer) deadLetter(stream string, msg storage.StreamMessage, cause error) {
	if c.config.DeadLetterStream == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.AckTimeout)
	defer cancel()

	entry := map[string]interface{}{
		"stream":     stream,
		"message_id": msg.ID,
		"values":     msg.Values,
		"error":      cause.Error(),
	}
	if err := c.redis.PublishToStream(ctx, c.config.DeadLetterStream, "entry", entry); err != nil {
		logger.Error("Failed to dead-letter message",
			logger.ErrorField(err),
			logger.String("message_id", msg.ID),
		)
		return
	}
	c.stats.mu.Lock()
	c.stats.DeadLettered++
	c.stats.mu.Unlock()
}

// acknowledgeMessages acknowledges a batch of messages
func (c *BarConsumer) acknowledgeMessages(stream string, messageIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.AckTimeout)
	defer cancel()

	var acked int64
	var last string
	for _, id := range messageIDs {
		err := c.redis.AcknowledgeMessage(ctx, stream, c.config.ConsumerGroup, id)
		if err != nil {
			logger.Error("Failed to acknowledge message",
				logger.ErrorField(err),
				logger.Stream(stream),
				logger.String("message_id", id),
			)
			continue
		}
		acked++
		last = id
	}

	c.stats.mu.Lock()
	c.stats.BarsAcked += acked
	if last != "" {
		c.stats.LastAckedID = last
	}
	c.stats.mu.Unlock()
}

func (c *BarConsumer) incrementProcessed(timestamp time.Time) {
	c.stats.mu.Lock()
	c.stats.BarsProcessed++
	c.stats.LastBarTime = timestamp
	c.stats.mu.Unlock()
}

func (c *BarConsumer) incrementSkipped() {
	c.stats.mu.Lock()
	c.stats.BarsSkipped++
	c.stats.mu.Unlock()
}

func (c *BarConsumer) incrementFailed() {
	c.stats.mu.Lock()
	c.stats.BarsFailed++
	c.stats.mu.Unlock()
}
