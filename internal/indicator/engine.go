package indicator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/mohamedkhairy/streamta/internal/models"
	indicatorpkg "github.com/mohamedkhairy/streamta/pkg/indicator"
	"github.com/mohamedkhairy/streamta/pkg/logger"
)

var (
	// ErrSymbolNotFound is returned for symbols the engine has never seen
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrStaleBar is returned for a bar not newer than the last one of its symbol.
	// Redelivered bars after a restart hit this and are skipped.
	ErrStaleBar = errors.New("stale bar")

	// ErrTooManySymbols is returned when a new symbol would exceed MaxSymbols
	ErrTooManySymbols = errors.New("too many symbols")
)

// OnIndicatorsUpdated is a callback function called after indicators are updated
type OnIndicatorsUpdated func(update models.IndicatorUpdate)

// Engine processes finalized bars and computes indicators
type Engine struct {
	indicatorRegistry   *IndicatorRegistry // Registry of all available indicators
	requiredIndicators  []string           // Indicator names to compute (empty = all)
	symbolStates        *treemap.Map       // symbol -> *indicatorpkg.SymbolState, ordered by symbol
	onIndicatorsUpdated OnIndicatorsUpdated
	maxSymbols          int
	mu                  sync.RWMutex
}

// EngineConfig holds configuration for the indicator engine
type EngineConfig struct {
	MaxSymbols int      // Maximum number of symbols tracked (default: 10000)
	Indicators []string // Indicators to compute per symbol (default: all registered)
}

// DefaultEngineConfig returns default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxSymbols: 10000,
	}
}

// SymbolSummary describes the state of one symbol
type SymbolSummary struct {
	Symbol     string             `json:"symbol"`
	LastUpdate time.Time          `json:"last_update"`
	Bars       int                `json:"bars"`
	Values     map[string]float64 `json:"values"`
}

// NewEngine creates a new indicator engine. Unknown indicator names are an error.
func NewEngine(config EngineConfig, registry *IndicatorRegistry) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if err := registry.Validate(config.Indicators); err != nil {
		return nil, err
	}
	if config.MaxSymbols <= 0 {
		config.MaxSymbols = DefaultEngineConfig().MaxSymbols
	}

	required := config.Indicators
	if len(required) == 0 {
		required = registry.ListAvailable()
	}

	return &Engine{
		indicatorRegistry:  registry,
		requiredIndicators: required,
		symbolStates:       treemap.NewWithStringComparator(),
		maxSymbols:         config.MaxSymbols,
	}, nil
}

// Indicators returns the names computed for every symbol
func (e *Engine) Indicators() []string {
	return append([]string(nil), e.requiredIndicators...)
}

// newSymbolState creates a symbol state with one calculator per required indicator
func (e *Engine) newSymbolState(symbol string) (*indicatorpkg.SymbolState, error) {
	state := indicatorpkg.NewSymbolState(symbol)
	for _, name := range e.requiredIndicators {
		factory, exists := e.indicatorRegistry.GetFactory(name)
		if !exists {
			return nil, fmt.Errorf("unknown indicator %q", name)
		}
		calc, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create calculator %q: %w", name, err)
		}
		if err := state.AddCalculator(calc); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// stateLocked returns the state of symbol, creating it when create is set
func (e *Engine) stateLocked(symbol string, create bool) (*indicatorpkg.SymbolState, error) {
	if v, found := e.symbolStates.Get(symbol); found {
		return v.(*indicatorpkg.SymbolState), nil
	}
	if !create {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	if e.symbolStates.Size() >= e.maxSymbols {
		return nil, fmt.Errorf("%w: limit %d reached, dropping %s", ErrTooManySymbols, e.maxSymbols, symbol)
	}
	state, err := e.newSymbolState(symbol)
	if err != nil {
		return nil, err
	}
	e.symbolStates.Put(symbol, state)
	symbolsTracked.Set(float64(e.symbolStates.Size()))
	return state, nil
}

// ProcessBar processes a finalized bar and updates indicators
func (e *Engine) ProcessBar(bar *models.Bar1m) error {
	if bar == nil {
		return fmt.Errorf("bar cannot be nil")
	}

	if err := bar.Validate(); err != nil {
		barsProcessedTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("invalid bar: %w", err)
	}

	e.mu.Lock()
	state, err := e.stateLocked(bar.Symbol, true)
	if err != nil {
		e.mu.Unlock()
		barsProcessedTotal.WithLabelValues("error").Inc()
		return err
	}

	if last := state.GetLastUpdate(); !last.IsZero() && !bar.Timestamp.After(last) {
		e.mu.Unlock()
		barsProcessedTotal.WithLabelValues("stale").Inc()
		return fmt.Errorf("%w: %s at %s, last %s", ErrStaleBar, bar.Symbol,
			bar.Timestamp.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	start := time.Now()
	err = state.Update(bar, bar.Timestamp)
	updateLatency.Observe(time.Since(start).Seconds())

	values := state.GetAllValues()
	callback := e.onIndicatorsUpdated
	e.mu.Unlock()

	if err != nil {
		barsProcessedTotal.WithLabelValues("error").Inc()
		return err
	}
	barsProcessedTotal.WithLabelValues("success").Inc()

	if callback != nil && len(values) > 0 {
		callback(models.IndicatorUpdate{
			Symbol:    bar.Symbol,
			Timestamp: bar.Timestamp,
			Values:    values,
		})
	}

	return nil
}

// GetIndicators returns all ready indicator values for a symbol
func (e *Engine) GetIndicators(symbol string) (map[string]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, err := e.stateLocked(symbol, false)
	if err != nil {
		return nil, err
	}
	return state.GetAllValues(), nil
}

// GetSymbolSummary returns the state summary of a symbol
func (e *Engine) GetSymbolSummary(symbol string) (SymbolSummary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, err := e.stateLocked(symbol, false)
	if err != nil {
		return SymbolSummary{}, err
	}
	return SymbolSummary{
		Symbol:     symbol,
		LastUpdate: state.GetLastUpdate(),
		Bars:       state.BarsProcessed(),
		Values:     state.GetAllValues(),
	}, nil
}

// GetAllSymbols returns every tracked symbol in sorted order
func (e *Engine) GetAllSymbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := e.symbolStates.Keys()
	symbols := make([]string, 0, len(keys))
	for _, k := range keys {
		symbols = append(symbols, k.(string))
	}
	return symbols
}

// GetSymbolCount returns the number of symbols being tracked
func (e *Engine) GetSymbolCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.symbolStates.Size()
}

// RemoveSymbol drops all state of a symbol
func (e *Engine) RemoveSymbol(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, found := e.symbolStates.Get(symbol); !found {
		return false
	}
	e.symbolStates.Remove(symbol)
	symbolsTracked.Set(float64(e.symbolStates.Size()))
	return true
}

// Rehydrate replaces the state of a symbol by replaying bars in order
func (e *Engine) Rehydrate(symbol string, bars []*models.Bar1m) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.stateLocked(symbol, true)
	if err != nil {
		return err
	}
	replay := make([]indicatorpkg.Bar, 0, len(bars))
	var last time.Time
	for _, bar := range bars {
		if bar == nil || bar.Symbol != symbol {
			continue
		}
		replay = append(replay, bar)
		last = bar.Timestamp
	}
	return state.Rehydrate(replay, last)
}

// Snapshot captures the state of every symbol in symbol order
func (e *Engine) Snapshot(streamID string) *models.EngineSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := &models.EngineSnapshot{
		Version:  models.EngineSnapshotVersion,
		StreamID: streamID,
		TakenAt:  time.Now().UTC(),
		Symbols:  make([]indicatorpkg.SymbolSnapshot, 0, e.symbolStates.Size()),
	}
	it := e.symbolStates.Iterator()
	for it.Next() {
		snap.Symbols = append(snap.Symbols, it.Value().(*indicatorpkg.SymbolState).Snapshot())
	}
	return snap
}

// Restore replaces the engine state with a snapshot. Symbols are rebuilt from
// the current indicator set; calculators the snapshot does not cover start
// cold. Per-calculator mismatches are logged, not returned.
func (e *Engine) Restore(snap *models.EngineSnapshot) error {
	if !snap.Compatible() {
		return fmt.Errorf("%w: unsupported engine snapshot", indicatorpkg.ErrSnapshotMismatch)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	restored := treemap.NewWithStringComparator()
	for _, sym := range snap.Symbols {
		if restored.Size() >= e.maxSymbols {
			logger.Warn("Snapshot exceeds symbol limit, truncating",
				logger.Int("max_symbols", e.maxSymbols),
				logger.Int("snapshot_symbols", len(snap.Symbols)),
			)
			break
		}
		state, err := e.newSymbolState(sym.Symbol)
		if err != nil {
			return err
		}
		if err := state.Restore(sym); err != nil {
			logger.Warn("Partial restore, some calculators start cold",
				logger.Symbol(sym.Symbol),
				logger.ErrorField(err),
			)
		}
		restored.Put(sym.Symbol, state)
	}

	e.symbolStates = restored
	symbolsTracked.Set(float64(restored.Size()))
	return nil
}

// SetOnIndicatorsUpdated sets the callback function called after indicators are updated
func (e *Engine) SetOnIndicatorsUpdated(callback OnIndicatorsUpdated) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onIndicatorsUpdated = callback
}
