package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceName is attached to every entry written by the configured logger
const serviceName = "streamta"

var (
	// globalLogger is shared by the indicator service, its consumers and the gateway
	globalLogger *zap.Logger
)

// Init configures the process logger. level is one of debug, info, warn or
// error (anything else means info); environment "development" switches to
// the colored console encoder, everything else writes JSON lines.
func Init(level string, environment string) error {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil || zapLevel > zapcore.ErrorLevel {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if environment == "development" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.InitialFields = map[string]interface{}{"service": serviceName}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	globalLogger = logger
	return nil
}

// Get returns the process logger, or a development logger when Init has not run (tests)
func Get() *zap.Logger {
	if globalLogger == nil {
		logger, _ := zap.NewDevelopmentConfig().Build()
		return logger
	}
	return globalLogger
}

// Sync flushes buffered entries; call it on shutdown
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// WithContext returns a logger tagged with the trace and span IDs that
// followed a bar from the stream consumer into the calculators
func WithContext(ctx context.Context) *zap.Logger {
	logger := Get()
	if traceID := GetTraceID(ctx); traceID != "" {
		logger = logger.With(zap.String("trace_id", traceID))
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		logger = logger.With(zap.String("span_id", spanID))
	}
	return logger
}

func Debug(msg string, fields ...zap.Field) { Get().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field) { Get().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { Get().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Get().Error(msg, fields...) }

// Fatal logs and exits the process; only cmd/ should call it
func Fatal(msg string, fields ...zap.Field) { Get().Fatal(msg, fields...) }

// Field constructors, re-exported so callers only import this package.

func String(key, value string) zap.Field { return zap.String(key, value) }
func Int(key string, value int) zap.Field { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field { return zap.Int64(key, value) }
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }
func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }
func Time(key string, value time.Time) zap.Field { return zap.Time(key, value) }
func ErrorField(err error) zap.Field { return zap.Error(err) }

// Symbol tags an entry with the instrument a bar or indicator value belongs to
func Symbol(value string) zap.Field {
	return zap.String("symbol", value)
}

// Stream tags an entry with the Redis stream being read or written
func Stream(value string) zap.Field {
	return zap.String("stream", value)
}

// NewTraceID returns a fresh ID for a bar entering the pipeline
func NewTraceID() string {
	return uuid.NewString()
}
