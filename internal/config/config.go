package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Snapshot store backends
const (
	SnapshotStoreRedis    = "redis"
	SnapshotStorePostgres = "postgres"
	SnapshotStoreNone     = "none"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Services
	Indicator IndicatorConfig
	WSGateway WSGatewayConfig
}

// DatabaseConfig holds Postgres configuration for the snapshot store
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// IndicatorConfig holds indicator engine configuration
type IndicatorConfig struct {
	Port            int
	HealthCheckPort int

	// Bar stream consumption
	StreamName     string
	ConsumerGroup  string
	ConsumerName   string
	BatchSize      int
	ProcessTimeout time.Duration
	AckTimeout     time.Duration

	// Publishing
	KeyPrefix     string
	ResultTTL     time.Duration
	UpdateChannel string

	// Checkpointing
	CheckpointInterval time.Duration
	SnapshotStore      string
	SnapshotKey        string

	// Engine limits
	MaxSymbols int
	Indicators []string
}

// WSGatewayConfig holds configuration of the live indicator WebSocket endpoint
type WSGatewayConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxConnections int
	SendBufferSize int
	JWTSecret      string // Empty disables token checks
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "streamta"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Indicator: IndicatorConfig{
			Port:               getEnvAsInt("INDICATOR_PORT", 8085),
			HealthCheckPort:    getEnvAsInt("INDICATOR_HEALTH_PORT", 8086),
			StreamName:         getEnv("INDICATOR_STREAM_NAME", "bars.finalized"),
			ConsumerGroup:      getEnv("INDICATOR_CONSUMER_GROUP", "indicator-engine"),
			ConsumerName:       getEnv("INDICATOR_CONSUMER_NAME", defaultConsumerName()),
			BatchSize:          getEnvAsInt("INDICATOR_BATCH_SIZE", 100),
			ProcessTimeout:     getEnvAsDuration("INDICATOR_PROCESS_TIMEOUT", 5*time.Second),
			AckTimeout:         getEnvAsDuration("INDICATOR_ACK_TIMEOUT", 1*time.Second),
			KeyPrefix:          getEnv("INDICATOR_KEY_PREFIX", "ind:"),
			ResultTTL:          getEnvAsDuration("INDICATOR_RESULT_TTL", 10*time.Minute),
			UpdateChannel:      getEnv("INDICATOR_UPDATE_CHANNEL", "indicators.updated"),
			CheckpointInterval: getEnvAsDuration("INDICATOR_CHECKPOINT_INTERVAL", 1*time.Minute),
			SnapshotStore:      strings.ToLower(getEnv("INDICATOR_SNAPSHOT_STORE", SnapshotStoreRedis)),
			SnapshotKey:        getEnv("INDICATOR_SNAPSHOT_KEY", "indicator-engine"),
			MaxSymbols:         getEnvAsInt("INDICATOR_MAX_SYMBOLS", 10000),
			Indicators:         getEnvAsStringSlice("INDICATOR_NAMES", []string{}),
		},
		WSGateway: WSGatewayConfig{
			ReadTimeout:    getEnvAsDuration("WS_GATEWAY_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getEnvAsDuration("WS_GATEWAY_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:   getEnvAsDuration("WS_GATEWAY_PING_INTERVAL", 30*time.Second),
			MaxConnections: getEnvAsInt("WS_GATEWAY_MAX_CONNECTIONS", 1000),
			SendBufferSize: getEnvAsInt("WS_GATEWAY_SEND_BUFFER", 256),
			JWTSecret:      getEnv("WS_GATEWAY_JWT_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	ind := c.Indicator
	if ind.StreamName == "" {
		return fmt.Errorf("INDICATOR_STREAM_NAME is required")
	}
	if ind.ConsumerGroup == "" {
		return fmt.Errorf("INDICATOR_CONSUMER_GROUP is required")
	}
	if ind.BatchSize <= 0 {
		return fmt.Errorf("INDICATOR_BATCH_SIZE must be positive, got %d", ind.BatchSize)
	}
	if ind.MaxSymbols <= 0 {
		return fmt.Errorf("INDICATOR_MAX_SYMBOLS must be positive, got %d", ind.MaxSymbols)
	}
	switch ind.SnapshotStore {
	case SnapshotStoreRedis, SnapshotStoreNone:
	case SnapshotStorePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres snapshot store")
		}
	default:
		return fmt.Errorf("INDICATOR_SNAPSHOT_STORE must be one of redis, postgres, none; got %q", ind.SnapshotStore)
	}
	if ind.SnapshotStore != SnapshotStoreNone && ind.CheckpointInterval <= 0 {
		return fmt.Errorf("INDICATOR_CHECKPOINT_INTERVAL must be positive when snapshots are enabled")
	}
	ws := c.WSGateway
	if ws.PingInterval <= 0 || ws.ReadTimeout <= ws.PingInterval {
		return fmt.Errorf("WS_GATEWAY_READ_TIMEOUT (%s) must exceed a positive WS_GATEWAY_PING_INTERVAL (%s)",
			ws.ReadTimeout, ws.PingInterval)
	}
	if ws.MaxConnections <= 0 {
		return fmt.Errorf("WS_GATEWAY_MAX_CONNECTIONS must be positive, got %d", ws.MaxConnections)
	}
	return nil
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// Addr returns host:port for the Redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Helper functions

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "indicator-1"
	}
	return "indicator-" + host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
