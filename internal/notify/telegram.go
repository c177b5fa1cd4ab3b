// Package notify posts run summaries to Telegram.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hnbabel/internal/logger"
	"hnbabel/internal/retry"
)

// Telegram sends messages through the Bot API. A nil *Telegram is a
// valid no-op sender, so callers never need to branch on whether
// notifications are configured.
type Telegram struct {
	token  string
	chatID string
	client *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	if token == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts text as an HTML message, retrying transient failures.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	return retry.Do(ctx, retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram API status %d", resp.StatusCode)
		}
		return nil
	})
}

// SendRunSummary formats and posts the stats of a finished pipeline run.
func (t *Telegram) SendRunSummary(ctx context.Context, fetched, newItems, failed, feeds int, duration time.Duration) {
	if t == nil {
		return
	}

	text := fmt.Sprintf(
		"<b>hnbabel run finished</b>\n"+
			"Fetched: %d\nNew: %d\nFailed: %d\nFeeds written: %d\nDuration: %s",
		fetched, newItems, failed, feeds, duration.Round(time.Second))

	if err := t.Send(ctx, text); err != nil {
		logger.Warn("telegram notification failed", "error", err)
	}
}
