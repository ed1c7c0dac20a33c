package bars

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/mohamedkhairy/streamta/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BarField is the stream entry field holding the JSON encoded bar
const BarField = "bar"

var barsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bars_published_total",
		Help: "Total number of finalized bars written to the bar stream",
	},
	[]string{"status"},
)

// PublisherConfig holds configuration for the bar publisher
type PublisherConfig struct {
	FinalizedStream string        // Stream name for finalized bars (default: "bars.finalized")
	Partitions      int           // Number of stream partitions, keyed by symbol (0 = no partitioning)
	BatchSize       int           // Batch size for finalized bars (default: 100)
	BatchTimeout    time.Duration // Timeout for batching finalized bars (default: 100ms)
	WriteTimeout    time.Duration // Timeout of one batch write (default: 10s)
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		FinalizedStream: "bars.finalized",
		BatchSize:       100,
		BatchTimeout:    100 * time.Millisecond,
		WriteTimeout:    10 * time.Second,
	}
}

// Publisher writes finalized bars to the bar stream in batches
type Publisher struct {
	config  PublisherConfig
	redis   storage.RedisClient
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool

	batchMu   sync.Mutex
	batch     []*models.Bar1m
	published int64
}

// NewPublisher creates a new bar publisher
func NewPublisher(redis storage.RedisClient, config PublisherConfig) *Publisher {
	defaults := DefaultPublisherConfig()
	if config.FinalizedStream == "" {
		config.FinalizedStream = defaults.FinalizedStream
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = defaults.BatchTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Publisher{
		config: config,
		redis:  redis,
		ctx:    ctx,
		cancel: cancel,
		batch:  make([]*models.Bar1m, 0, config.BatchSize),
	}
}

// Start starts the periodic batch flush
func (p *Publisher) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher is already running")
	}
	p.running = true
	p.mu.Unlock()

	logger.Info("Starting bar publisher",
		logger.String("finalized_stream", p.config.FinalizedStream),
		logger.Int("partitions", p.config.Partitions),
		logger.Duration("batch_timeout", p.config.BatchTimeout),
	)

	p.wg.Add(1)
	go p.batchProcessor()

	return nil
}

// Stop stops the publisher and flushes the pending batch
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return p.Flush()
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	err := p.Flush()
	logger.Info("Bar publisher stopped", logger.Int64("published", p.Published()))
	return err
}

// PublishFinalizedBar queues a finalized bar; a full batch is written immediately
func (p *Publisher) PublishFinalizedBar(bar *models.Bar1m) error {
	if bar == nil {
		return fmt.Errorf("bar cannot be nil")
	}

	if err := bar.Validate(); err != nil {
		barsPublishedTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("invalid bar %s: %w", bar.Symbol, err)
	}

	p.batchMu.Lock()
	p.batch = append(p.batch, bar)
	shouldFlush := len(p.batch) >= p.config.BatchSize
	p.batchMu.Unlock()

	if shouldFlush {
		return p.Flush()
	}
	return nil
}

// Published returns the number of bars written so far
func (p *Publisher) Published() int64 {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()
	return p.published
}

// StreamFor returns the stream partition a symbol is routed to
func (p *Publisher) StreamFor(symbol string) string {
	if p.config.Partitions <= 0 {
		return p.config.FinalizedStream
	}
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return fmt.Sprintf("%s.p%d", p.config.FinalizedStream, h.Sum32()%uint32(p.config.Partitions))
}

// batchProcessor periodically flushes the pending batch
func (p *Publisher) batchProcessor() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.Flush(); err != nil {
				logger.Error("Periodic bar flush failed", logger.ErrorField(err))
			}
		}
	}
}

// Flush writes the pending batch, grouped by stream partition. Bars of one
// symbol keep their order.
func (p *Publisher) Flush() error {
	p.batchMu.Lock()
	if len(p.batch) == 0 {
		p.batchMu.Unlock()
		return nil
	}
	batch := p.batch
	p.batch = make([]*models.Bar1m, 0, p.config.BatchSize)
	p.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.config.WriteTimeout)
	defer cancel()

	streams := make([]string, 0, 1)
	messages := make(map[string][]map[string]interface{})
	for _, bar := range batch {
		data, err := json.Marshal(models.NewWireBar(bar))
		if err != nil {
			barsPublishedTotal.WithLabelValues("error").Inc()
			logger.Error("Failed to marshal bar",
				logger.ErrorField(err),
				logger.Symbol(bar.Symbol),
			)
			continue
		}
		stream := p.StreamFor(bar.Symbol)
		if _, ok := messages[stream]; !ok {
			streams = append(streams, stream)
		}
		messages[stream] = append(messages[stream], map[string]interface{}{BarField: string(data)})
	}

	var written int64
	for _, stream := range streams {
		if err := p.redis.PublishBatchToStream(ctx, stream, messages[stream]); err != nil {
			barsPublishedTotal.WithLabelValues("error").Add(float64(len(messages[stream])))
			logger.CountError("replay", "publish")
			return fmt.Errorf("failed to publish finalized bars: %w", err)
		}
		written += int64(len(messages[stream]))
		logger.Debug("Published finalized bars batch",
			logger.Stream(stream),
			logger.Int("count", len(messages[stream])),
		)
	}

	barsPublishedTotal.WithLabelValues("success").Add(float64(written))
	p.batchMu.Lock()
	p.published += written
	p.batchMu.Unlock()
	return nil
}

// IsRunning returns whether the publisher is running
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
