package indicator

import (
	"fmt"
	"slices"
	"sync"

	indicatorpkg "github.com/mohamedkhairy/streamta/pkg/indicator"
)

// CalculatorFactory is a function that creates a new calculator instance
type CalculatorFactory func() (indicatorpkg.Calculator, error)

// IndicatorRegistry manages all available indicators
type IndicatorRegistry struct {
	mu        sync.RWMutex
	factories map[string]CalculatorFactory
	metadata  map[string]IndicatorMetadata
}

// IndicatorMetadata contains information about an indicator
type IndicatorMetadata struct {
	Name        string                 `json:"name"`
	Display     string                 `json:"display"` // e.g. "EMA(20)[close]"
	Description string                 `json:"description"`
	Category    string                 `json:"category"` // "momentum", "trend", "volatility", "volume", "price"
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Lines       []string               `json:"lines"`
	WindowSize  int                    `json:"window_size"`
}

// NewIndicatorRegistry creates a new indicator registry
func NewIndicatorRegistry() *IndicatorRegistry {
	return &IndicatorRegistry{
		factories: make(map[string]CalculatorFactory),
		metadata:  make(map[string]IndicatorMetadata),
	}
}

// Register registers an indicator factory
func (r *IndicatorRegistry) Register(
	name string,
	factory CalculatorFactory,
	metadata IndicatorMetadata,
) error {
	if factory == nil {
		return fmt.Errorf("indicator %q has no factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("indicator %q already registered", name)
	}

	metadata.Name = name
	r.factories[name] = factory
	r.metadata[name] = metadata
	return nil
}

// GetFactory returns a factory for an indicator
func (r *IndicatorRegistry) GetFactory(name string) (CalculatorFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, exists := r.factories[name]
	return factory, exists
}

// ListAvailable returns all available indicator names in sorted order
func (r *IndicatorRegistry) ListAvailable() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetMetadata returns metadata for an indicator
func (r *IndicatorRegistry) GetMetadata(name string) (IndicatorMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	metadata, exists := r.metadata[name]
	return metadata, exists
}

// GetAllMetadata returns all indicator metadata sorted by name
func (r *IndicatorRegistry) GetAllMetadata() []IndicatorMetadata {
	names := r.ListAvailable()

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]IndicatorMetadata, 0, len(names))
	for _, name := range names {
		result = append(result, r.metadata[name])
	}
	return result
}

// Validate checks that every name is registered
func (r *IndicatorRegistry) Validate(names []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range names {
		if _, exists := r.factories[name]; !exists {
			return fmt.Errorf("unknown indicator %q", name)
		}
	}
	return nil
}
