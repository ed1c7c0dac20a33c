package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		require.NoError(t, Init(level, "production"))
		assert.NotNil(t, Get())
	}
	require.NoError(t, Init("debug", "development"))
	assert.True(t, Get().Core().Enabled(-1))
}

func TestInit_LevelsAboveErrorFallBackToInfo(t *testing.T) {
	require.NoError(t, Init("fatal", "production"))
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "symbol", Symbol("AAPL").Key)
	assert.Equal(t, "AAPL", Symbol("AAPL").String)
	assert.Equal(t, "stream", Stream("bars.finalized").Key)
	assert.Equal(t, "bars.finalized", Stream("bars.finalized").String)
}

func TestTraceContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = EnsureTraceID(ctx)
	traceID := GetTraceID(ctx)
	_, err := uuid.Parse(traceID)
	assert.NoError(t, err)
	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing trace ID is kept")

	ctx = WithSpanID(ctx, "span-1")
	assert.Equal(t, "span-1", GetSpanID(ctx))
	assert.NotNil(t, WithContext(ctx))

	// plain string keys do not collide with ours
	other := context.WithValue(context.Background(), "trace_id", "x")
	assert.Empty(t, GetTraceID(other))
}

func TestCountError(t *testing.T) {
	before := testutil.ToFloat64(ErrorsTotal.WithLabelValues("test", "boom"))
	CountError("test", "boom")
	assert.Equal(t, before+1, testutil.ToFloat64(ErrorsTotal.WithLabelValues("test", "boom")))
}
