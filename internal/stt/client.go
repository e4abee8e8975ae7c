// Package stt calls an OpenAI-compatible speech-to-text transcription endpoint.
package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/auditlog/ytdown/internal/httpx"
)

// ErrTooLarge reports an upload over the service's per-call limit; it is never sent.
var ErrTooLarge = errors.New("audio exceeds upload limit")

// ErrMissingAPIKey reports a client built without credentials.
var ErrMissingAPIKey = errors.New("stt api key is not configured")

const responseFormatText = "text"

// TranscriptionRequest names one audio file to transcribe.
type TranscriptionRequest struct {
	Path string
	// Model overrides the client default when set.
	Model string
	// Language is an optional ISO-639-1 hint.
	Language string
}

// Client posts multipart audio uploads and returns plain-text transcripts.
type Client struct {
	Endpoint       string
	APIKey         string
	Model          string
	MaxUploadBytes int64
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Transcribe uploads req.Path and returns the service's text response, trimmed.
func (c Client) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", ErrMissingAPIKey
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return "", fmt.Errorf("stat audio: %w", err)
	}
	if c.MaxUploadBytes > 0 && info.Size() > c.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, info.Size(), c.MaxUploadBytes)
	}

	model := req.Model
	if model == "" {
		model = c.Model
	}

	body, contentType, err := buildMultipart(req.Path, model, req.Language)
	if err != nil {
		return "", err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: httpx.Excerpt(payload, httpx.ExcerptLimit)}
	}
	return strings.TrimSpace(string(payload)), nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func buildMultipart(path string, model string, language string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("copy audio into request: %w", err)
	}
	fields := [][2]string{
		{"model", model},
		{"response_format", responseFormatText},
	}
	if language != "" {
		fields = append(fields, [2]string{"language", language})
	}
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}
