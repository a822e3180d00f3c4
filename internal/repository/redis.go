package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

// RedisKeyPrefix namespaces analysis keys.
const RedisKeyPrefix = "scope3:analysis:"

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	TTL         time.Duration // 0 = keys never expire
	DialTimeout time.Duration
}

// RedisStore keeps analyses as JSON values with a TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// OpenRedisStore connects and pings the server.
func OpenRedisStore(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, common.WrapError(err, "connect redis")
	}
	return NewRedisStore(client, cfg.TTL, logger), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func (s *RedisStore) key(invoiceID string) string {
	return RedisKeyPrefix + invoiceID
}

func (s *RedisStore) Save(ctx context.Context, invoiceID string, analysis entity.Analysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key(invoiceID), data, s.ttl).Result()
	if err != nil {
		s.logger.Error("repository.redis.save_error", "invoice_id", invoiceID, "error", err)
		return common.NewAppError("REDIS_SAVE", "failed to save analysis", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if !created {
		s.logger.Debug("repository.redis.save_exists", "invoice_id", invoiceID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, invoiceID string) (entity.Analysis, error) {
	data, err := s.client.Get(ctx, s.key(invoiceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Analysis{}, notFound(invoiceID)
	}
	if err != nil {
		s.logger.Error("repository.redis.get_error", "invoice_id", invoiceID, "error", err)
		return entity.Analysis{}, common.NewAppError("REDIS_GET", "failed to load analysis", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	var a entity.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return entity.Analysis{}, fmt.Errorf("decode analysis %s: %w", invoiceID, err)
	}
	return a, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
