// Package notify holds the outbound notification sinks. Sinks are fire and
// forget from the pipeline's point of view: a send error is reported to the
// caller but never fails the webhook that triggered it, and an unconfigured
// sink degrades to a logged no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nsoren/payhook/internal/logging"
)

const telegramAPIBaseURL = "https://api.telegram.org"

type Telegram struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:      token,
		chatID:     chatID,
		baseURL:    telegramAPIBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		logging.FromContext(ctx).Debug("telegram sink disabled, alert dropped")
		return nil
	}

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
