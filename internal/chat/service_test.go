package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
	"github.com/joseph-ayodele/scope3-tracker/internal/repository"
)

type stubCompleter struct {
	reply  string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.prompt = req.Prompt
	return s.reply, s.err
}

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore(0, nil)
	require.NoError(t, store.Save(context.Background(), "INV-1", entity.Analysis{
		InvoiceID:      "INV-1",
		Summary:        entity.Summary{TotalEmissionsKg: 42, Currency: "USD"},
		Recommendation: "Focus decarbonization efforts on Acme to reduce Scope 3 emissions.",
	}))
	return store
}

func TestReply_OK(t *testing.T) {
	c := &stubCompleter{reply: "Acme is your hotspot."}
	svc := NewService(seededStore(t), c, nil)

	got, err := svc.Reply(context.Background(), " INV-1 ", "  Where should I start? ")
	require.NoError(t, err)
	assert.Equal(t, "Acme is your hotspot.", got)
	assert.Contains(t, c.prompt, `"total_emissions_kg":42`)
	assert.Contains(t, c.prompt, "User's question: Where should I start?")
}

func TestReply_InvalidInput(t *testing.T) {
	svc := NewService(seededStore(t), &stubCompleter{}, nil)

	_, err := svc.Reply(context.Background(), "", "hi")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Reply(context.Background(), "INV-1", "   ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Reply(context.Background(), "INV-1", strings.Repeat("a", maxMessageLength+1))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestReply_UnknownInvoice(t *testing.T) {
	svc := NewService(seededStore(t), &stubCompleter{}, nil)
	_, err := svc.Reply(context.Background(), "INV-404", "hi")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 404, common.HTTPStatus(err))
}

func TestReply_CompletionFailureIsUnavailable(t *testing.T) {
	cause := &llm.ServiceError{Op: "gemini.complete", Status: 500, Err: errors.New("boom")}
	svc := NewService(seededStore(t), &stubCompleter{err: cause}, nil)

	_, err := svc.Reply(context.Background(), "INV-1", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	assert.True(t, llm.IsServiceError(err))
	assert.Equal(t, 503, common.HTTPStatus(err))
}

func TestReply_NoCompleter(t *testing.T) {
	svc := NewService(seededStore(t), nil, nil)
	_, err := svc.Reply(context.Background(), "INV-1", "hi")
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}
