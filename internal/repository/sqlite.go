package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	invoice_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// SQLiteStore keeps analyses in a local sqlite file, or in memory for ":memory:".
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	// every pooled connection to ":memory:" would see its own empty database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "configure sqlite")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "ensure analyses table")
	}
	logger.Info("repository.sqlite.open", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, invoiceID string, analysis entity.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	created := analysis.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (invoice_id, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (invoice_id) DO NOTHING`,
		invoiceID, string(payload), created.Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Error("repository.sqlite.save_error", "invoice_id", invoiceID, "error", err)
		return common.NewAppError("DB_SAVE", "failed to save analysis", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.Debug("repository.sqlite.save_exists", "invoice_id", invoiceID)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, invoiceID string) (entity.Analysis, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM analyses WHERE invoice_id = ?`, invoiceID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Analysis{}, notFound(invoiceID)
	}
	if err != nil {
		s.logger.Error("repository.sqlite.get_error", "invoice_id", invoiceID, "error", err)
		return entity.Analysis{}, common.NewAppError("DB_GET", "failed to load analysis", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	var a entity.Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return entity.Analysis{}, fmt.Errorf("decode analysis %s: %w", invoiceID, err)
	}
	return a, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
