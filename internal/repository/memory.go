package repository

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

type memoryEntry struct {
	analysis entity.Analysis
	storedAt time.Time
}

// MemoryStore keeps analyses in process memory. A zero TTL never expires entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *MemoryStore) Save(_ context.Context, invoiceID string, analysis entity.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[invoiceID]; ok && !expired(e.storedAt, s.ttl, now) {
		s.logger.Debug("repository.memory.save_exists", "invoice_id", invoiceID)
		return nil
	}
	s.entries[invoiceID] = memoryEntry{analysis: analysis, storedAt: now}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, invoiceID string) (entity.Analysis, error) {
	s.mu.RLock()
	e, ok := s.entries[invoiceID]
	s.mu.RUnlock()
	if !ok {
		return entity.Analysis{}, notFound(invoiceID)
	}
	if expired(e.storedAt, s.ttl, s.now()) {
		s.mu.Lock()
		// re-check under the write lock; a concurrent Save may have replaced it
		if cur, ok := s.entries[invoiceID]; ok && expired(cur.storedAt, s.ttl, s.now()) {
			delete(s.entries, invoiceID)
		}
		s.mu.Unlock()
		return entity.Analysis{}, notFound(invoiceID)
	}
	return e.analysis, nil
}

// Sweep drops expired entries and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if expired(e.storedAt, s.ttl, now) {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("repository.memory.sweep", "removed", removed, "remaining", len(s.entries))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }
