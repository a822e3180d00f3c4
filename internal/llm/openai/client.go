package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
)

const op = "openai.complete"

// Complete implements llm.Completer using chat/completions.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", &llm.ServiceError{Op: op, Err: errors.New("missing OPENAI_API_KEY")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	start := time.Now()

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": req.Prompt},
		},
	}
	if req.JSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, endpoint, body, headers, c.logger)
	if err != nil {
		return "", &llm.ServiceError{Op: op, Status: status, Err: withDetail(err, raw)}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.openai.decode_error", "error", err, "raw_bytes", len(raw))
		return "", &llm.ServiceError{Op: op, Status: status, Err: fmt.Errorf("decode openai response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		return "", &llm.ServiceError{Op: op, Status: status, Err: errors.New("no choices in openai response")}
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return "", &llm.ServiceError{Op: op, Status: status, Err: errors.New("empty response from openai")}
	}

	c.logger.Debug("llm.openai.ok", "model", c.cfg.Model, "chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

// withDetail appends the provider's error.message to a non-2xx failure.
func withDetail(err error, raw []byte) error {
	var se *llm.StatusError
	if !errors.As(err, &se) {
		return err
	}
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		return fmt.Errorf("%w: %s", err, env.Error.Message)
	}
	return err
}
