// Package store provides the reference PostgreSQL adapters for every
// persistence seam the core depends on: conversation messages and
// summaries, durable user memory, drained metric events, and the model
// pricing table. Callers needing only the interfaces (pkg/memory,
// pkg/metrics, pkg/pricing) never import this package directly; it exists
// so those interfaces have one real, exercised implementation rather than
// only mocks.
package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver, used only to drive migrations
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds connection parameters for the reference store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns production-sane pool settings.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxConns:        25,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 15 * time.Minute,
	}
}

func (c Config) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Store wraps a pgx connection pool shared by every adapter in this package.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL, applies pending embedded migrations, and
// returns a Store backed by a pgxpool.Pool sized per cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool. Safe to call once.
func (s *Store) Close() { s.pool.Close() }

// HealthStatus mirrors the connection pool's current utilization.
type HealthStatus struct {
	Status          string
	ResponseTime    time.Duration
	AcquiredConns   int32
	IdleConns       int32
	MaxConns        int32
}

// Health pings the pool and reports its current stats.
func (s *Store) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	if err := s.pool.Ping(ctx); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start)}, err
	}
	stat := s.pool.Stat()
	return &HealthStatus{
		Status:        "healthy",
		ResponseTime:  time.Since(start),
		AcquiredConns: stat.AcquiredConns(),
		IdleConns:     stat.IdleConns(),
		MaxConns:      stat.MaxConns(),
	}, nil
}

// MessageStore returns the pkg/memory.MemoryStore adapter over this pool.
func (s *Store) MessageStore() *MessageStore { return &MessageStore{pool: s.pool} }

// SummaryStore returns the pkg/memory.SummaryStore adapter over this pool.
func (s *Store) SummaryStore() *SummaryStore { return &SummaryStore{pool: s.pool} }

// UserMemoryStore returns the pkg/memory.UserMemoryStore adapter over this pool.
func (s *Store) UserMemoryStore() *UserMemoryStore { return &UserMemoryStore{pool: s.pool} }

// MetricEventStore returns the pkg/metrics.EventStore adapter over this pool.
func (s *Store) MetricEventStore() *MetricEventStore { return &MetricEventStore{pool: s.pool} }

// ModelPriceStore returns the pkg/pricing.Store adapter over this pool.
func (s *Store) ModelPriceStore() *ModelPriceStore { return &ModelPriceStore{pool: s.pool} }

// runMigrations applies every pending embedded migration using a short-lived
// database/sql connection. golang-migrate drives schema changes outside of
// pgxpool because its postgres driver expects a *sql.DB, not a pool.
func runMigrations(cfg Config) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found")
	}

	db, err := stdsql.Open("pgx", cfg.dsn())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, cfg.Database, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > 4 && e.Name()[len(e.Name())-4:] == ".sql" {
			return true, nil
		}
	}
	return false, nil
}
