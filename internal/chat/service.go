// Package chat answers free-form questions about a stored analysis through a Completer.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
)

const maxMessageLength = 4000

// AnalysisGetter is satisfied by every repository.AnalysisStore.
type AnalysisGetter interface {
	Get(ctx context.Context, invoiceID string) (entity.Analysis, error)
}

type Service struct {
	store     AnalysisGetter
	completer llm.Completer
	logger    *slog.Logger
}

// NewService accepts a nil completer; every reply then reports the service as unavailable.
func NewService(store AnalysisGetter, completer llm.Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, completer: completer, logger: logger}
}

// Reply answers message in the context of the analysis stored under invoiceID.
// Errors wrap common.ErrInvalidInput, common.ErrNotFound or common.ErrServiceUnavailable.
func (s *Service) Reply(ctx context.Context, invoiceID, message string) (string, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	message = strings.TrimSpace(message)

	v := common.NewValidator()
	v.Field("invoice_id", invoiceID, common.Required)
	v.Field("message", message, common.Required, common.MaxLength(maxMessageLength))
	if err := v.Error(); err != nil {
		return "", err
	}

	analysis, err := s.store.Get(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("load analysis: %w", err)
	}

	if s.completer == nil {
		return "", common.NewAppError("CHAT_UNAVAILABLE", "no completion service configured", common.ErrServiceUnavailable)
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}

	start := time.Now()
	reply, err := s.completer.Complete(ctx, llm.CompletionRequest{Prompt: llm.BuildChatPrompt(message, payload)})
	if err != nil {
		s.logger.Warn("chat.reply.unavailable", "invoice_id", invoiceID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %w", common.ErrServiceUnavailable, err)
	}

	s.logger.Info("chat.reply.ok", "invoice_id", invoiceID, "chars", len(reply),
		"elapsed_ms", time.Since(start).Milliseconds())
	return reply, nil
}
