package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	invoice_id TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps analyses in a single jsonb table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgresStore creates a pgx pool, pings it and ensures the analyses table exists.
func OpenPostgresStore(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := openPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := HealthCheck(ctx, pool, cfg.DialTimeout, logger); err != nil {
		pool.Close()
		return nil, common.WrapError(err, "ping database")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, common.WrapError(err, "ensure analyses table")
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func openPool(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, common.WrapError(err, "parse dsn")
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "scope3-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.WrapError(err, "connect database")
	}
	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool, bounded by timeout when positive.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, invoiceID string, analysis entity.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	created := analysis.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (invoice_id, payload, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (invoice_id) DO NOTHING`,
		invoiceID, payload, created)
	if err != nil {
		s.logger.Error("repository.postgres.save_error", "invoice_id", invoiceID, "error", err)
		return common.NewAppError("DB_SAVE", "failed to save analysis", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("repository.postgres.save_exists", "invoice_id", invoiceID)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, invoiceID string) (entity.Analysis, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM analyses WHERE invoice_id = $1`, invoiceID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Analysis{}, notFound(invoiceID)
	}
	if err != nil {
		s.logger.Error("repository.postgres.get_error", "invoice_id", invoiceID, "error", err)
		return entity.Analysis{}, common.NewAppError("DB_GET", "failed to load analysis", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	var a entity.Analysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return entity.Analysis{}, fmt.Errorf("decode analysis %s: %w", invoiceID, err)
	}
	return a, nil
}

func (s *PostgresStore) Close() error {
	s.logger.Info("closing database connections")
	s.pool.Close()
	return nil
}
