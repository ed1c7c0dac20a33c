package indicator

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// SymbolState manages the calculators of a single symbol. Calculators are
// updated in the order they were added.
type SymbolState struct {
	symbol      string
	mu          sync.RWMutex
	calculators []Calculator
	index       map[string]int
	lastUpdate  time.Time
	bars        int
}

// SymbolSnapshot is the plain-data state of a SymbolState
type SymbolSnapshot struct {
	Symbol      string     `json:"symbol"`
	LastUpdate  time.Time  `json:"last_update"`
	Bars        int        `json:"bars"`
	Calculators []Snapshot `json:"calculators"`
}

// NewSymbolState creates an empty symbol state
func NewSymbolState(symbol string) *SymbolState {
	return &SymbolState{
		symbol: symbol,
		index:  make(map[string]int),
	}
}

// Symbol returns the symbol this state belongs to
func (s *SymbolState) Symbol() string { return s.symbol }

// AddCalculator adds a calculator to this symbol's state
func (s *SymbolState) AddCalculator(calc Calculator) error {
	if calc == nil {
		return fmt.Errorf("calculator cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[calc.Name()]; exists {
		return fmt.Errorf("calculator with name %q already added", calc.Name())
	}
	s.index[calc.Name()] = len(s.calculators)
	s.calculators = append(s.calculators, calc)
	return nil
}

// RemoveCalculator removes a calculator from this symbol's state
func (s *SymbolState) RemoveCalculator(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[name]
	if !exists {
		return
	}
	s.calculators = append(s.calculators[:i], s.calculators[i+1:]...)
	delete(s.index, name)
	for j := i; j < len(s.calculators); j++ {
		s.index[s.calculators[j].Name()] = j
	}
}

// CalculatorNames returns the calculator names in update order
func (s *SymbolState) CalculatorNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.calculators))
	for i, calc := range s.calculators {
		names[i] = calc.Name()
	}
	return names
}

// Update feeds a bar observed at ts to every calculator
func (s *SymbolState) Update(bar Bar, ts time.Time) error {
	if bar == nil {
		return ErrNilBar
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, calc := range s.calculators {
		if err := calc.Update(bar); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", calc.Name(), err))
		}
	}
	s.bars++
	s.lastUpdate = ts
	return errors.Join(errs...)
}

// GetValue retrieves the current value of one output line
func (s *SymbolState) GetValue(line string) (float64, bool) {
	values := s.GetAllValues()
	v, ok := values[line]
	return v, ok
}

// GetAllValues returns the output lines of every ready calculator
func (s *SymbolState) GetAllValues() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]float64)
	for _, calc := range s.calculators {
		if calc.IsReady() {
			calc.Lines(values)
		}
	}
	return values
}

// GetLastUpdate returns the timestamp of the last bar
func (s *SymbolState) GetLastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// BarsProcessed returns the number of bars fed to this symbol
func (s *SymbolState) BarsProcessed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bars
}

// Reset clears all state (useful for rehydration)
func (s *SymbolState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *SymbolState) resetLocked() {
	for _, calc := range s.calculators {
		calc.Reset()
	}
	s.bars = 0
	s.lastUpdate = time.Time{}
}

// Rehydrate resets the state and replays bars in order.
// This is useful when a worker restarts without a snapshot.
func (s *SymbolState) Rehydrate(bars []Bar, last time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	for _, bar := range bars {
		if bar == nil {
			continue
		}
		for _, calc := range s.calculators {
			if err := calc.Update(bar); err != nil {
				return fmt.Errorf("%s: %w", calc.Name(), err)
			}
		}
		s.bars++
	}
	if len(bars) > 0 {
		s.lastUpdate = last
	}
	return nil
}

// Snapshot captures every calculator that supports snapshots
func (s *SymbolState) Snapshot() SymbolSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := SymbolSnapshot{
		Symbol:      s.symbol,
		LastUpdate:  s.lastUpdate,
		Bars:        s.bars,
		Calculators: make([]Snapshot, 0, len(s.calculators)),
	}
	for _, calc := range s.calculators {
		if sn, ok := calc.(Snapshotter); ok {
			snap.Calculators = append(snap.Calculators, sn.Snapshot())
		}
	}
	return snap
}

// Restore loads a snapshot. Calculators without a matching entry, and those
// whose entry does not fit, are reset and start cold. The returned error joins
// every mismatch; the state stays usable either way.
func (s *SymbolState) Restore(snap SymbolSnapshot) error {
	if snap.Symbol != s.symbol {
		return fmt.Errorf("%w: snapshot for %q restored into %q", ErrSnapshotMismatch, snap.Symbol, s.symbol)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := make(map[string]Snapshot, len(snap.Calculators))
	for _, c := range snap.Calculators {
		byName[c.Kind] = c
	}

	var errs []error
	for _, calc := range s.calculators {
		calc.Reset()
		c, found := byName[calc.Name()]
		if !found {
			continue
		}
		sn, ok := calc.(Snapshotter)
		if !ok {
			continue
		}
		if err := sn.Restore(c); err != nil {
			calc.Reset()
			errs = append(errs, fmt.Errorf("%s: %w", calc.Name(), err))
		}
	}
	s.bars = snap.Bars
	s.lastUpdate = snap.LastUpdate
	return errors.Join(errs...)
}
