package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxContentRunes is Discord's per-message content limit.
const MaxContentRunes = 2000

// ErrUnexpectedStatus: the webhook answered with something other than 204.
var ErrUnexpectedStatus = errors.New("discord: unexpected status")

// Webhook posts reports to a Discord channel webhook.
type Webhook struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

func NewWebhook(url string, hc *http.Client, logger *zap.Logger) *Webhook {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{url: url, http: hc, logger: logger}
}

type message struct {
	Content string `json:"content"`
}

// Send posts text as one or more messages, in order. It stops at the first
// failed chunk; nothing is retried.
func (w *Webhook) Send(ctx context.Context, text string) error {
	chunks := Split(text, MaxContentRunes)
	for i, c := range chunks {
		if err := w.post(ctx, c); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	w.logger.Debug("report posted", zap.Int("chunks", len(chunks)))
	return nil
}

func (w *Webhook) post(ctx context.Context, content string) error {
	body, err := json.Marshal(message{Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// Split cuts text into pieces of at most max runes, preferring to break at
// the last newline inside each window. Empty text yields one empty chunk.
func Split(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	var out []string
	runes := []rune(text)
	for len(runes) > max {
		cut := max
		for i := max - 1; i > max/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
