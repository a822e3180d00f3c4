package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyInvoiceID contextKey = "invoice_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithInvoiceID adds an invoice ID to the context
func WithInvoiceID(ctx context.Context, invoiceID string) context.Context {
	return context.WithValue(ctx, ContextKeyInvoiceID, invoiceID)
}

// InvoiceIDFromContext extracts the invoice ID from context
func InvoiceIDFromContext(ctx context.Context) string {
	if invoiceID, ok := ctx.Value(ContextKeyInvoiceID).(string); ok {
		return invoiceID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout. A non-positive
// timeout returns a cancelable context without a deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
