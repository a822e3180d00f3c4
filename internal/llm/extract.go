package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

var codeFence = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.+?)\\s*```\\s*$")

// Extractor turns invoice text into line items through a Completer.
type Extractor struct {
	completer Completer
	envelope  *jsonschema.Schema
	logger    *slog.Logger
}

func NewExtractor(completer Completer, logger *slog.Logger) (*Extractor, error) {
	if completer == nil {
		return nil, errors.New("llm: completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := CompileSchema(ItemsEnvelopeSchema())
	if err != nil {
		return nil, fmt.Errorf("items envelope schema: %w", err)
	}
	return &Extractor{completer: completer, envelope: schema, logger: logger}, nil
}

// ExtractInvoiceItems returns at least one item, or a *ServiceError, or a *NoItemsError.
func (e *Extractor) ExtractInvoiceItems(ctx context.Context, text string) ([]entity.LineItem, error) {
	rid := uuid.New().String()
	start := time.Now()
	e.logger.Info("llm.extract.start", "req_id", rid, "invoice_id", common.InvoiceIDFromContext(ctx), "text_len", len(text))

	reply, err := e.completer.Complete(ctx, CompletionRequest{Prompt: BuildExtractionPrompt(text), JSON: true})
	if err != nil {
		e.logger.Warn("llm.extract.completion_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, NewServiceError("extract.complete", err)
	}

	content := stripCodeFence(reply)
	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		e.logger.Warn("llm.extract.decode_error", "req_id", rid, "error", err, "reply_bytes", len(reply))
		return nil, &ServiceError{Op: "extract.decode", Err: fmt.Errorf("non-JSON response: %w", err)}
	}
	if err := e.envelope.Validate(doc); err != nil {
		e.logger.Warn("llm.extract.schema_validation_failed", "req_id", rid, "error", err)
		return nil, &ServiceError{Op: "extract.validate", Err: errors.New("response missing 'items' list")}
	}
	entries, ok := itemsPayload(doc)
	if !ok {
		return nil, &ServiceError{Op: "extract.validate", Err: errors.New("response missing 'items' list")}
	}

	items, dropped := NormalizeItems(entries)
	if len(dropped) > 0 {
		e.logger.Warn("llm.extract.normalize_sanitize", "req_id", rid, "dropped", dropped)
	}
	if len(items) == 0 {
		e.logger.Info("llm.extract.no_items", "req_id", rid, "entries", len(entries),
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, &NoItemsError{Entries: len(entries)}
	}

	e.logger.Info("llm.extract.ok",
		"req_id", rid,
		"items", len(items),
		"entries", len(entries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return items, nil
}

// stripCodeFence removes a surrounding ```json fence some models add despite JSON mode.
func stripCodeFence(s string) string {
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}
