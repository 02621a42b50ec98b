// Package ocr wraps a handwriting-recognition service: upload a photographed
// note, poll the job until it reaches a terminal state, and pull medical
// terms out of the transcript for intake prefill. The queue never waits on
// any of this; callers drive it from their own goroutines.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Job terminal and transient states.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusTimeout    = "timeout"
)

// Config holds the OCR service connection settings.
type Config struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxAttempts  int
}

// DefaultPollInterval and DefaultMaxAttempts bound a poll loop at about four
// minutes, matching the service's own processing ceiling.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 120
)

// Document is the state of one transcription job.
type Document struct {
	ID         string `json:"documentId"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Transcript string `json:"transcript,omitempty"`
}

// Client talks to a HandwritingOCR-style HTTP API.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "ocr").Logger(),
	}
}

// Upload sends an image for transcription and returns the job's document id.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	h["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := mw.WriteField("action", "transcribe"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/documents", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var doc Document
	if err := c.do(req, &doc); err != nil {
		return "", err
	}
	if doc.ID == "" {
		return "", fmt.Errorf("ocr upload: response carried no document id")
	}
	c.logger.Info().Str("document_id", doc.ID).Str("filename", filename).Msg("document uploaded")
	return doc.ID, nil
}

// Status fetches the current state of a transcription job.
func (c *Client) Status(ctx context.Context, documentID string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/documents/"+documentID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	var doc Document
	if err := c.do(req, &doc); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = documentID
	}
	return &doc, nil
}

// WaitForResult polls the job until it completes, fails, or the attempt
// budget runs out. The loop stops early when ctx is cancelled. The returned
// document's status is always terminal: completed, failed, or timeout.
func (c *Client) WaitForResult(ctx context.Context, documentID string) (*Document, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		doc, err := c.Status(ctx, documentID)
		if err != nil {
			return nil, err
		}
		switch doc.Status {
		case StatusCompleted, StatusFailed:
			return doc, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	c.logger.Warn().Str("document_id", documentID).Msg("transcription did not finish in time")
	return &Document{ID: documentID, Status: StatusTimeout}, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	// The service answers HTML when the API key is rejected.
	if strings.Contains(string(raw), "<html") || strings.Contains(string(raw), "<!DOCTYPE") {
		return fmt.Errorf("ocr service rejected credentials (status %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, excerpt(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode ocr response: %w", err)
	}
	return nil
}

func excerpt(raw []byte) string {
	const limit = 200
	if len(raw) > limit {
		raw = raw[:limit]
	}
	return string(raw)
}
