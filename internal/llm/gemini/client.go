package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
)

const op = "gemini.complete"

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements llm.Completer with a single-turn generateContent call.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", &llm.ServiceError{Op: op, Err: errors.New("missing GEMINI_API_KEY")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	start := time.Now()

	body := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{Temperature: c.cfg.Temperature},
	}
	if req.JSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	base := c.endpoint()
	full := base + "?key=" + url.QueryEscape(c.cfg.APIKey)

	raw, status, err := llm.SendJSON(ctx, c.http, full, base, body, nil, c.logger)

	var resp generateResponse
	decodeErr := json.Unmarshal(raw, &resp)

	if err != nil {
		if decodeErr == nil && resp.Error != nil && resp.Error.Message != "" {
			err = fmt.Errorf("%w: %s", err, resp.Error.Message)
		}
		return "", &llm.ServiceError{Op: op, Status: status, Err: err}
	}
	if decodeErr != nil {
		c.logger.Error("llm.gemini.decode_error", "error", decodeErr, "raw_bytes", len(raw))
		return "", &llm.ServiceError{Op: op, Status: status, Err: fmt.Errorf("decode gemini response: %w", decodeErr)}
	}
	if len(resp.Candidates) == 0 {
		return "", &llm.ServiceError{Op: op, Status: status, Err: errors.New("no candidates returned from gemini")}
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || strings.TrimSpace(parts[0].Text) == "" {
		return "", &llm.ServiceError{Op: op, Status: status, Err: errors.New("empty response from gemini")}
	}

	text := strings.TrimSpace(parts[0].Text)
	c.logger.Debug("llm.gemini.ok", "model", c.cfg.Model, "chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
