package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mohamedkhairy/streamta/internal/config"
	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotWriteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_store_write_total",
			Help: "Total number of snapshot writes",
		},
		[]string{"backend", "status"}, // "success" or "error"
	)

	snapshotLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_store_latency_seconds",
			Help:    "Snapshot store latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"backend", "operation"},
	)

	snapshotBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_store_bytes",
			Help: "Size of the last snapshot written",
		},
		[]string{"backend"},
	)
)

// undefinedTable is the Postgres error code for a missing relation
const undefinedTable = "42P01"

const createSnapshotTable = `
	CREATE TABLE IF NOT EXISTS indicator_snapshots (
		key        TEXT PRIMARY KEY,
		version    INTEGER NOT NULL,
		stream_id  TEXT NOT NULL DEFAULT '',
		taken_at   TIMESTAMPTZ NOT NULL,
		payload    JSONB NOT NULL
	)
`

const upsertSnapshot = `
	INSERT INTO indicator_snapshots (key, version, stream_id, taken_at, payload)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (key) DO UPDATE SET
		version = EXCLUDED.version,
		stream_id = EXCLUDED.stream_id,
		taken_at = EXCLUDED.taken_at,
		payload = EXCLUDED.payload
`

const selectSnapshot = `
	SELECT payload
	FROM indicator_snapshots
	WHERE key = $1
`

// PostgresSnapshotStore implements SnapshotStore on a Postgres table
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore connects to Postgres and creates the snapshot table if needed
func NewPostgresSnapshotStore(dbConfig config.DatabaseConfig) (*PostgresSnapshotStore, error) {
	connector, err := pq.NewConnector(dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	db := sql.OpenDB(connector)

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewPostgresSnapshotStoreFromDB(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to Postgres snapshot store",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return store, nil
}

// NewPostgresSnapshotStoreFromDB wraps an open database handle
func NewPostgresSnapshotStoreFromDB(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// EnsureSchema creates the snapshot table if it does not exist
func (p *PostgresSnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createSnapshotTable); err != nil {
		return fmt.Errorf("failed to create indicator_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the checkpoint stored under key
func (p *PostgresSnapshotStore) SaveSnapshot(ctx context.Context, key string, snap *models.EngineSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	startTime := time.Now()
	defer func() {
		snapshotLatency.WithLabelValues("postgres", "save").Observe(time.Since(startTime).Seconds())
	}()

	payload, err := json.Marshal(snap)
	if err != nil {
		snapshotWriteTotal.WithLabelValues("postgres", "error").Inc()
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = p.db.ExecContext(ctx, upsertSnapshot, key, snap.Version, snap.StreamID, snap.TakenAt, payload)
	if err != nil {
		snapshotWriteTotal.WithLabelValues("postgres", "error").Inc()
		return fmt.Errorf("failed to upsert snapshot %q: %w", key, err)
	}

	snapshotWriteTotal.WithLabelValues("postgres", "success").Inc()
	snapshotBytes.WithLabelValues("postgres").Set(float64(len(payload)))
	return nil
}

// LoadSnapshot returns the checkpoint stored under key. A missing row or a
// missing table is not an error: the caller starts cold.
func (p *PostgresSnapshotStore) LoadSnapshot(ctx context.Context, key string) (*models.EngineSnapshot, error) {
	startTime := time.Now()
	defer func() {
		snapshotLatency.WithLabelValues("postgres", "load").Observe(time.Since(startTime).Seconds())
	}()

	var payload []byte
	err := p.db.QueryRowContext(ctx, selectSnapshot, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot %q: %w", key, err)
	}

	var snap models.EngineSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %q: %w", key, err)
	}
	return &snap, nil
}

// Close closes the database connection
func (p *PostgresSnapshotStore) Close() error {
	return p.db.Close()
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}
