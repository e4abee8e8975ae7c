// Package llm calls an Anthropic-style messages endpoint for single-shot text generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/auditlog/ytdown/internal/httpx"
)

// ErrMissingAPIKey reports a client built without credentials.
var ErrMissingAPIKey = errors.New("llm api key is not configured")

// ErrEmptyResponse reports a 200 response carrying no text blocks.
var ErrEmptyResponse = errors.New("llm response contained no text")

// CompletionRequest is one non-streaming, single-message generation call.
type CompletionRequest struct {
	Prompt    string
	MaxTokens int
	// Model overrides the client default when set.
	Model string
}

// StatusError is a non-200 response from the text-generation service.
type StatusError struct {
	Code int
	// Body is a bounded excerpt of the response body.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.Code, e.Body)
}

// Client posts messages requests.
type Client struct {
	Endpoint   string
	APIKey     string
	Model      string
	Version    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends req and returns the concatenated text blocks of the reply.
func (c Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	if req.MaxTokens <= 0 {
		return "", fmt.Errorf("max tokens must be > 0, got %d", req.MaxTokens)
	}

	model := req.Model
	if model == "" {
		model = c.Model
	}
	payload, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: req.MaxTokens,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encode messages request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", c.Version)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("messages request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read messages response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: httpx.Excerpt(body, httpx.ExcerptLimit)}
	}

	var decoded messagesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode messages response: %w", err)
	}

	var out strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
