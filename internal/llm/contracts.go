package llm

import (
	"context"
	"errors"
	"fmt"
)

// CompletionRequest is a single prompt to a text-completion service.
// JSON asks the provider for a JSON-only reply when it supports that mode.
type CompletionRequest struct {
	Prompt string
	JSON   bool
}

// Completer is the text-completion boundary. Implementations must bound each call by a timeout
// and report every transport, auth or format failure as a *ServiceError.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ServiceError is a failure to obtain a conforming reply from the completion service.
type ServiceError struct {
	Op     string // e.g. "gemini.complete", "extract.decode"
	Status int    // HTTP status when the provider answered, else 0
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm %s (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps err unless it already is a *ServiceError.
func NewServiceError(op string, err error) error {
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Op: op, Err: err}
}

// ErrNoItems is matched by every *NoItemsError.
var ErrNoItems = errors.New("llm returned no usable items")

// NoItemsError means the service answered correctly but found nothing usable.
// It is an authoritative empty result, not a failure to fall back from.
type NoItemsError struct {
	Entries int // raw entries received before normalization
}

func (e *NoItemsError) Error() string {
	return fmt.Sprintf("%s (%d raw entries)", ErrNoItems.Error(), e.Entries)
}

func (e *NoItemsError) Is(target error) bool { return target == ErrNoItems }

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

func IsNoItems(err error) bool {
	return errors.Is(err, ErrNoItems)
}
