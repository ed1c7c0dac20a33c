package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/streamta/internal/indicator"
	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

func testBars(symbol string, n int) []*models.Bar1m {
	bars := make([]*models.Bar1m, n)
	for i := range bars {
		price := 100 + float64(i%7) - float64(i%3)
		bars[i] = &models.Bar1m{
			Symbol:    symbol,
			Timestamp: testStart.Add(time.Duration(i) * time.Minute),
			Open:      price - 0.5,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    int64(1000 + 10*i),
		}
	}
	return bars
}

func setupRouter(t *testing.T) (*mux.Router, *indicator.Engine) {
	t.Helper()
	registry := indicator.NewIndicatorRegistry()
	require.NoError(t, indicator.RegisterAllIndicators(registry))
	engine, err := indicator.NewEngine(indicator.EngineConfig{
		MaxSymbols: 2,
		Indicators: []string{"sma_10", "rsi_14", "obv"},
	}, registry)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewIndicatorHandler(engine, registry).RegisterRoutes(router)
	return router, engine
}

func serve(router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIndicatorHandler_ListIndicators(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/indicators", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Indicators []indicator.IndicatorMetadata `json:"indicators"`
		Count      int                           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Count)

	names := make([]string, 0, len(response.Indicators))
	for _, meta := range response.Indicators {
		names = append(names, meta.Name)
	}
	assert.ElementsMatch(t, []string{"sma_10", "rsi_14", "obv"}, names)
}

func TestIndicatorHandler_GetIndicator(t *testing.T) {
	router, _ := setupRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/indicators/macd_12_26_9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var meta indicator.IndicatorMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "macd_12_26_9", meta.Name)
	assert.Equal(t, 34, meta.WindowSize)

	w = serve(router, http.MethodGet, "/api/v1/indicators/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndicatorHandler_Symbols(t *testing.T) {
	router, engine := setupRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/symbols/AAPL/indicators", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, bar := range testBars("AAPL", 12) {
		require.NoError(t, engine.ProcessBar(bar))
	}

	w = serve(router, http.MethodGet, "/api/v1/symbols", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"symbols":["AAPL"],"count":1}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/v1/symbols/AAPL/indicators", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary indicator.SymbolSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "AAPL", summary.Symbol)
	assert.Equal(t, 12, summary.Bars)
	assert.Contains(t, summary.Values, "sma_10")
	assert.Contains(t, summary.Values, "obv")
	assert.NotContains(t, summary.Values, "rsi_14", "rsi_14 needs 15 bars")

	w = serve(router, http.MethodGet, "/api/v1/symbols/AAPL/indicators?names=obv,%20rsi_14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary = indicator.SymbolSummary{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Len(t, summary.Values, 1)
	assert.Contains(t, summary.Values, "obv")

	w = serve(router, http.MethodDelete, "/api/v1/symbols/AAPL", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = serve(router, http.MethodDelete, "/api/v1/symbols/AAPL", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func rehydrateBody(t *testing.T, bars []*models.Bar1m) []byte {
	t.Helper()
	req := RehydrateRequest{Bars: make([]models.WireBar, 0, len(bars))}
	for _, bar := range bars {
		req.Bars = append(req.Bars, models.NewWireBar(bar))
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

func TestIndicatorHandler_Rehydrate(t *testing.T) {
	router, engine := setupRouter(t)
	bars := testBars("MSFT", 20)

	w := serve(router, http.MethodPost, "/api/v1/symbols/MSFT/rehydrate", rehydrateBody(t, bars))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary indicator.SymbolSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 20, summary.Bars)
	assert.Len(t, summary.Values, 3)

	// Live processing continues after the replayed history
	next := testBars("MSFT", 21)[20]
	require.NoError(t, engine.ProcessBar(next))

	values, err := engine.GetIndicators("MSFT")
	require.NoError(t, err)
	var sum float64
	for _, bar := range testBars("MSFT", 21)[11:] {
		sum += bar.Close
	}
	assert.InDelta(t, sum/10, values["sma_10"], 1e-9)
}

func TestIndicatorHandler_RehydrateRejectsBadInput(t *testing.T) {
	router, _ := setupRouter(t)
	bars := testBars("MSFT", 3)

	tests := []struct {
		name string
		body []byte
		code int
	}{
		{"malformed json", []byte("{"), http.StatusBadRequest},
		{"no bars", []byte(`{"bars":[]}`), http.StatusBadRequest},
		{"other symbol", rehydrateBody(t, testBars("AAPL", 2)), http.StatusBadRequest},
		{"out of order", rehydrateBody(t, []*models.Bar1m{bars[1], bars[0]}), http.StatusBadRequest},
		{"duplicate timestamp", rehydrateBody(t, []*models.Bar1m{bars[0], bars[0]}), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, "/api/v1/symbols/MSFT/rehydrate", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestIndicatorHandler_RehydrateSymbolLimit(t *testing.T) {
	router, _ := setupRouter(t)

	for _, symbol := range []string{"AAPL", "MSFT"} {
		w := serve(router, http.MethodPost, "/api/v1/symbols/"+symbol+"/rehydrate", rehydrateBody(t, testBars(symbol, 2)))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := serve(router, http.MethodPost, "/api/v1/symbols/NVDA/rehydrate", rehydrateBody(t, testBars("NVDA", 2)))
	assert.Equal(t, http.StatusConflict, w.Code)
}
