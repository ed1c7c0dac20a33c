package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/streamta/internal/indicator"
	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/pkg/logger"
)

// maxRehydrateBody bounds the size of a rehydrate request body
const maxRehydrateBody = 8 << 20

// IndicatorEngine is the part of the indicator engine served over HTTP
type IndicatorEngine interface {
	Indicators() []string
	GetAllSymbols() []string
	GetSymbolSummary(symbol string) (indicator.SymbolSummary, error)
	RemoveSymbol(symbol string) bool
	Rehydrate(symbol string, bars []*models.Bar1m) error
}

// MetadataSource describes the registered indicators
type MetadataSource interface {
	GetMetadata(name string) (indicator.IndicatorMetadata, bool)
}

// IndicatorHandler handles indicator query endpoints
type IndicatorHandler struct {
	engine   IndicatorEngine
	metadata MetadataSource
}

// NewIndicatorHandler creates a new indicator handler
func NewIndicatorHandler(engine IndicatorEngine, metadata MetadataSource) *IndicatorHandler {
	return &IndicatorHandler{
		engine:   engine,
		metadata: metadata,
	}
}

// RegisterRoutes mounts the handler under /api/v1
func (h *IndicatorHandler) RegisterRoutes(router *mux.Router) {
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/indicators", h.ListIndicators).Methods(http.MethodGet)
	v1.HandleFunc("/indicators/{name}", h.GetIndicator).Methods(http.MethodGet)
	v1.HandleFunc("/symbols", h.ListSymbols).Methods(http.MethodGet)
	v1.HandleFunc("/symbols/{symbol}/indicators", h.GetSymbolIndicators).Methods(http.MethodGet)
	v1.HandleFunc("/symbols/{symbol}/rehydrate", h.RehydrateSymbol).Methods(http.MethodPost)
	v1.HandleFunc("/symbols/{symbol}", h.RemoveSymbol).Methods(http.MethodDelete)
}

// ListIndicators handles GET /api/v1/indicators
func (h *IndicatorHandler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	names := h.engine.Indicators()
	list := make([]indicator.IndicatorMetadata, 0, len(names))
	for _, name := range names {
		if meta, ok := h.metadata.GetMetadata(name); ok {
			list = append(list, meta)
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": list,
		"count":      len(list),
	})
}

// GetIndicator handles GET /api/v1/indicators/{name}
func (h *IndicatorHandler) GetIndicator(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	meta, ok := h.metadata.GetMetadata(name)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Indicator not found")
		return
	}
	respondWithJSON(w, http.StatusOK, meta)
}

// ListSymbols handles GET /api/v1/symbols
func (h *IndicatorHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := h.engine.GetAllSymbols()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

// GetSymbolIndicators handles GET /api/v1/symbols/{symbol}/indicators.
// An optional comma separated "names" query parameter filters the values.
func (h *IndicatorHandler) GetSymbolIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	summary, err := h.engine.GetSymbolSummary(symbol)
	if err != nil {
		if errors.Is(err, indicator.ErrSymbolNotFound) {
			respondWithError(w, http.StatusNotFound, "Symbol not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve indicators")
		return
	}

	if filter := r.URL.Query().Get("names"); filter != "" {
		selected := make(map[string]float64)
		for _, name := range strings.Split(filter, ",") {
			name = strings.TrimSpace(name)
			if v, ok := summary.Values[name]; ok {
				selected[name] = v
			}
		}
		summary.Values = selected
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// RehydrateRequest is the body of a rehydrate call
type RehydrateRequest struct {
	Bars []models.WireBar `json:"bars"`
}

// RehydrateSymbol handles POST /api/v1/symbols/{symbol}/rehydrate. The symbol
// state is rebuilt from the given bars, oldest first.
func (h *IndicatorHandler) RehydrateSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req RehydrateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRehydrateBody)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	bars, err := decodeHistory(symbol, req.Bars)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Rehydrate(symbol, bars); err != nil {
		if errors.Is(err, indicator.ErrTooManySymbols) {
			respondWithError(w, http.StatusConflict, "Symbol limit reached")
			return
		}
		logger.WithContext(r.Context()).Error("Failed to rehydrate symbol",
			logger.ErrorField(err),
			logger.Symbol(symbol),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to rehydrate symbol")
		return
	}

	summary, err := h.engine.GetSymbolSummary(symbol)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve indicators")
		return
	}

	logger.WithContext(r.Context()).Info("Symbol rehydrated",
		logger.Symbol(symbol),
		logger.Int("bars", len(bars)),
	)
	respondWithJSON(w, http.StatusOK, summary)
}

// RemoveSymbol handles DELETE /api/v1/symbols/{symbol}
func (h *IndicatorHandler) RemoveSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	if !h.engine.RemoveSymbol(symbol) {
		respondWithError(w, http.StatusNotFound, "Symbol not found")
		return
	}

	logger.WithContext(r.Context()).Info("Symbol removed", logger.Symbol(symbol))
	w.WriteHeader(http.StatusNoContent)
}

// decodeHistory converts wire bars and checks they belong to symbol in
// strictly increasing time order
func decodeHistory(symbol string, wire []models.WireBar) ([]*models.Bar1m, error) {
	if len(wire) == 0 {
		return nil, fmt.Errorf("no bars given")
	}
	bars := make([]*models.Bar1m, 0, len(wire))
	for i := range wire {
		bar, err := wire[i].ToBar1m()
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		if err := bar.Validate(); err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		if bar.Symbol != symbol {
			return nil, fmt.Errorf("bar %d: symbol %q does not match %q", i, bar.Symbol, symbol)
		}
		if n := len(bars); n > 0 && !bar.Timestamp.After(bars[n-1].Timestamp) {
			return nil, fmt.Errorf("bar %d: timestamps must be strictly increasing", i)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
