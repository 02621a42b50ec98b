// Package assistant relays staff questions to an OpenAI-compatible chat
// model, grounding each request with a compact snapshot of the current
// triage queue. It is a read-only consumer of the queue; nothing it does
// feeds back into scoring or ordering.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/triageflow/triageflow/internal/domain/triage"
)

// FallbackReply is returned to the caller when the model cannot be reached,
// so the chat panel degrades instead of erroring out.
const FallbackReply = "I'm having trouble processing your request right now. Please try again in a moment."

const systemPrompt = "You are a triage assistant for emergency department staff. " +
	"Answer questions about the current patient queue concisely. " +
	"Never invent patients that are not in the provided snapshot."

// Config holds the chat model connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// QueueReader is the slice of the triage service the assistant needs.
type QueueReader interface {
	List(ctx context.Context, status triage.Status) ([]*triage.Patient, error)
}

// Service builds prompts from the queue snapshot and calls the model.
type Service struct {
	cfg    Config
	queue  QueueReader
	httpc  *http.Client
	logger zerolog.Logger
}

func NewService(cfg Config, queue QueueReader, logger zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		queue:  queue,
		httpc:  &http.Client{Timeout: 60 * time.Second},
		logger: logger.With().Str("component", "assistant").Logger(),
	}
}

// Reply is a chat answer with the time it was produced.
type Reply struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// chat-completions wire types
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends the staff message plus a queue snapshot to the model. A model
// or transport failure yields the fallback reply, not an error; only a bad
// request from the caller is surfaced.
func (s *Service) Chat(ctx context.Context, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	snapshot, err := s.snapshotContext(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("queue snapshot unavailable")
		snapshot = "queue snapshot unavailable"
	}

	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt + "\n\nCurrent queue:\n" + snapshot},
			{Role: "user", Content: message},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Msg("chat request failed")
		return &Reply{Response: FallbackReply, Timestamp: time.Now()}, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error().Int("status", resp.StatusCode).Msg("chat model returned error")
		return &Reply{Response: FallbackReply, Timestamp: time.Now()}, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		s.logger.Error().Err(err).Msg("unusable chat model response")
		return &Reply{Response: FallbackReply, Timestamp: time.Now()}, nil
	}

	return &Reply{Response: parsed.Choices[0].Message.Content, Timestamp: time.Now()}, nil
}

// snapshotContext renders the queue as one line per patient in display
// order. Names stay out of the prompt; the model sees ids, not identities.
func (s *Service) snapshotContext(ctx context.Context) (string, error) {
	patients, err := s.queue.List(ctx, "")
	if err != nil {
		return "", err
	}
	if len(patients) == 0 {
		return "the queue is empty", nil
	}

	var b strings.Builder
	for i, p := range patients {
		fmt.Fprintf(&b, "%d. patient %s: age %d, %s, severity %s, priority %d, status %s\n",
			i+1, p.ID, p.Age, p.Condition, p.Severity, p.Priority, p.Status)
	}
	return b.String(), nil
}
