package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	telegramDefaultBaseURL = "https://api.telegram.org"
	telegramDefaultTimeout = 10 * time.Second
)

// TelegramNotifier delivers outcomes through the Telegram Bot API.
// Any failure is logged and reported as false; nothing propagates to the
// caller.
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// TelegramOption configures the TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithTelegramBaseURL sets a custom API base URL, mainly for tests.
func WithTelegramBaseURL(baseURL string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.baseURL = baseURL
	}
}

// WithTelegramHTTPClient sets a custom HTTP client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(n *TelegramNotifier) {
		n.httpClient = client
	}
}

// NewTelegramNotifier creates a notifier backed by the Telegram Bot API.
func NewTelegramNotifier(token string, logger *slog.Logger, opts ...TelegramOption) *TelegramNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &TelegramNotifier{
		httpClient: &http.Client{Timeout: telegramDefaultTimeout},
		baseURL:    telegramDefaultBaseURL,
		token:      token,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Notify sends a sendMessage request for the outcome. Returns false on any
// failure: missing token, empty chat handle, transport error, or a non-2xx
// response.
func (n *TelegramNotifier) Notify(ctx context.Context, chatHandle string, outcome Outcome) bool {
	if n.token == "" || chatHandle == "" {
		return false
	}

	msg := telegramMessage{
		ChatID: chatHandle,
		Text:   formatOutcome(outcome),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		n.logger.Warn("telegram notify: marshal message", slog.String("error", err.Error()))
		return false
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("telegram notify: build request", slog.String("error", err.Error()))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("telegram notify: send request",
			slog.String("chat", chatHandle),
			slog.String("error", err.Error()))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn("telegram notify: unexpected status",
			slog.String("chat", chatHandle),
			slog.Int("status", resp.StatusCode))
		return false
	}

	return true
}

// formatOutcome renders the user-facing message text for an outcome.
func formatOutcome(o Outcome) string {
	title := o.Title
	if title == "" {
		title = "Your photo animation"
	}

	if !o.Succeeded {
		reason := o.Reason
		if reason == "" {
			reason = "generation failed"
		}
		return fmt.Sprintf("%s could not be completed: %s", title, reason)
	}

	text := fmt.Sprintf("%s is ready!", title)
	if o.WatchURL != "" {
		text += "\nWatch: " + o.WatchURL
	}
	if o.ShareURL != "" {
		text += "\nShare: " + o.ShareURL
	}
	return text
}

// Compile-time check that TelegramNotifier implements Notifier.
var _ Notifier = (*TelegramNotifier)(nil)
