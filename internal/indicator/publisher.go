package indicator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/mohamedkhairy/streamta/pkg/logger"
)

// Publisher publishes indicators to Redis
type Publisher struct {
	redis         storage.RedisClient
	config        PublisherConfig
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
	running       bool
	updateChannel chan models.IndicatorUpdate // Queued updates, drained by updateProcessor
	dropped       int64
}

// PublisherConfig holds configuration for the indicator publisher
type PublisherConfig struct {
	IndicatorKeyPrefix string        // Prefix for indicator keys (default: "ind:")
	IndicatorTTL       time.Duration // TTL for indicators (default: 10 minutes)
	UpdateChannel      string        // Redis pub/sub channel for indicator updates (default: "indicators.updated")
	SymbolsKey         string        // Redis set of every published symbol (default: "indicators:symbols")
	QueueSize          int           // Capacity of the update queue (default: 1000)
	PublishTimeout     time.Duration // Timeout of one publish round trip (default: 5 seconds)
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		IndicatorKeyPrefix: "ind:",
		IndicatorTTL:       10 * time.Minute,
		UpdateChannel:      "indicators.updated",
		SymbolsKey:         "indicators:symbols",
		QueueSize:          1000,
		PublishTimeout:     5 * time.Second,
	}
}

// NewPublisher creates a new indicator publisher
func NewPublisher(redis storage.RedisClient, config PublisherConfig) *Publisher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultPublisherConfig().QueueSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultPublisherConfig().PublishTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Publisher{
		redis:         redis,
		config:        config,
		ctx:           ctx,
		cancel:        cancel,
		updateChannel: make(chan models.IndicatorUpdate, config.QueueSize),
	}
}

// Start starts the publisher
func (p *Publisher) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher is already running")
	}
	p.running = true
	p.mu.Unlock()

	logger.Info("Starting indicator publisher",
		logger.String("indicator_prefix", p.config.IndicatorKeyPrefix),
		logger.String("update_channel", p.config.UpdateChannel),
	)

	p.wg.Add(1)
	go p.updateProcessor()

	return nil
}

// Stop stops the publisher after draining queued updates
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	logger.Info("Stopping indicator publisher")
	p.cancel()
	p.wg.Wait()
	logger.Info("Indicator publisher stopped",
		logger.Int64("dropped_updates", p.Dropped()),
	)
}

// PublishIndicators stores the latest values of a symbol and notifies subscribers
func (p *Publisher) PublishIndicators(ctx context.Context, update models.IndicatorUpdate) error {
	if len(update.Values) == 0 {
		return nil // Nothing to publish
	}
	if update.TraceID == "" {
		update.TraceID = logger.NewTraceID()
	}

	key := p.config.IndicatorKeyPrefix + update.Symbol

	// Publish to Redis key
	if err := p.redis.Set(ctx, key, update, p.config.IndicatorTTL); err != nil {
		publishTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to publish indicators",
			logger.ErrorField(err),
			logger.Symbol(update.Symbol),
			logger.String("key", key),
			logger.String("trace_id", update.TraceID),
		)
		return fmt.Errorf("failed to publish indicators: %w", err)
	}

	if p.config.SymbolsKey != "" {
		if err := p.redis.SetAdd(ctx, p.config.SymbolsKey, update.Symbol); err != nil {
			logger.Warn("Failed to record symbol",
				logger.ErrorField(err),
				logger.Symbol(update.Symbol),
			)
		}
	}

	// Publish to pub/sub channel for real-time notifications
	updateMsg := map[string]interface{}{
		"symbol":    update.Symbol,
		"timestamp": update.Timestamp,
		"trace_id":  update.TraceID,
	}
	if err := p.redis.Publish(ctx, p.config.UpdateChannel, updateMsg); err != nil {
		logger.Warn("Failed to publish indicator update",
			logger.ErrorField(err),
			logger.Symbol(update.Symbol),
			logger.String("channel", p.config.UpdateChannel),
		)
		// Don't fail the whole operation if pub/sub fails
	}

	publishTotal.WithLabelValues("success").Inc()
	logger.Debug("Published indicators",
		logger.Symbol(update.Symbol),
		logger.Int("indicator_count", len(update.Values)),
		logger.String("trace_id", update.TraceID),
	)

	return nil
}

// QueueUpdate queues an update for asynchronous publishing. It never blocks:
// when the queue is full the update is dropped, the next bar supersedes it.
func (p *Publisher) QueueUpdate(update models.IndicatorUpdate) {
	select {
	case p.updateChannel <- update:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		publishTotal.WithLabelValues("dropped").Inc()
		logger.Warn("Update channel full, dropping update",
			logger.Symbol(update.Symbol),
		)
	}
}

// Dropped returns the number of updates dropped because the queue was full
func (p *Publisher) Dropped() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// updateProcessor publishes queued updates until stopped, then drains the queue
func (p *Publisher) updateProcessor() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			for {
				select {
				case update := <-p.updateChannel:
					p.publish(update)
				default:
					return
				}
			}
		case update := <-p.updateChannel:
			p.publish(update)
		}
	}
}

func (p *Publisher) publish(update models.IndicatorUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()
	// Errors are logged by PublishIndicators
	_ = p.PublishIndicators(ctx, update)
}

// IsRunning returns whether the publisher is running
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
