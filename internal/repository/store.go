// Package repository holds the keyed analysis stores.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

// AnalysisStore is a keyed, insert-once store of finished analyses.
// Implementations are safe for concurrent use. Get returns common.ErrNotFound for
// unknown or expired ids. Saving an id that already exists leaves the first value in place.
type AnalysisStore interface {
	Save(ctx context.Context, invoiceID string, analysis entity.Analysis) error
	Get(ctx context.Context, invoiceID string) (entity.Analysis, error)
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (AnalysisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("repository.open", "driver", cfg.Driver, "ttl", cfg.TTL)

	var (
		store AnalysisStore
		err   error
	)
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(cfg.TTL, logger), nil
	case DriverRedis:
		store, err = OpenRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		}, logger)
	case DriverPostgres:
		store, err = OpenPostgresStore(ctx, Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
	case DriverSQLite:
		store, err = OpenSQLiteStore(ctx, cfg.SQLitePath, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown store driver %q", cfg.Driver), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func notFound(invoiceID string) error {
	return fmt.Errorf("analysis %s: %w", invoiceID, common.ErrNotFound)
}

func expired(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(createdAt) >= ttl
}
