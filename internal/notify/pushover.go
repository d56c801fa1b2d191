package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/bookmind/internal/errors"
)

const (
	defaultPushoverEndpoint = "https://api.pushover.net/1/messages.json"
	pushoverSound           = "bookSound"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Pushover sends notifications through the Pushover messages API.
type Pushover struct {
	user     string
	token    string
	endpoint string
	client   HTTPDoer
}

var _ Notifier = (*Pushover)(nil)

// PushoverOption configures a Pushover notifier.
type PushoverOption func(*Pushover)

// WithPushoverEndpoint overrides the messages endpoint.
func WithPushoverEndpoint(endpoint string) PushoverOption {
	return func(p *Pushover) {
		p.endpoint = endpoint
	}
}

// WithPushoverClient sets the HTTP client.
func WithPushoverClient(client HTTPDoer) PushoverOption {
	return func(p *Pushover) {
		p.client = client
	}
}

// NewPushover creates a notifier for the given user key and application token.
func NewPushover(user, token string, opts ...PushoverOption) *Pushover {
	p := &Pushover{
		user:     strings.TrimSpace(user),
		token:    strings.TrimSpace(token),
		endpoint: defaultPushoverEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	if !p.Enabled() {
		slog.Debug("Pushover credentials not set, notifications disabled")
	}
	return p
}

// Enabled reports whether both credentials are configured.
func (p *Pushover) Enabled() bool {
	return p.user != "" && p.token != ""
}

// Send posts the message. Failures are logged and reported as false.
func (p *Pushover) Send(ctx context.Context, title, message string) bool {
	if !p.Enabled() {
		slog.Debug("Push notification skipped", "title", title)
		return false
	}
	if title == "" {
		title = DefaultTitle
	}

	if err := p.post(ctx, title, message); err != nil {
		slog.Warn("Push notification failed", "title", title, "error", err)
		return false
	}
	slog.Info("Push notification sent", "title", title)
	return true
}

func (p *Pushover) post(ctx context.Context, title, message string) error {
	form := url.Values{}
	form.Set("token", p.token)
	form.Set("user", p.user)
	form.Set("title", title)
	form.Set("message", message)
	form.Set("sound", pushoverSound)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.NewProviderUnavailableError("pushover", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.NewRateLimitError("pushover rate limit reached")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.NewProviderUnavailableError("pushover", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
