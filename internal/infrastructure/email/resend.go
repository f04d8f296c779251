// Package email delivers rendered reminders through an email provider.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/domain"
)

const (
	// DefaultResendBaseURL is the public Resend API endpoint.
	DefaultResendBaseURL = "https://api.resend.com"

	// DefaultTimeout bounds one HTTP exchange with the provider.
	DefaultTimeout = 15 * time.Second

	// maxErrorBody caps how much of a failed response is kept in the error.
	maxErrorBody = 512
)

var _ notification.EmailGateway = (*ResendGateway)(nil)

// ResendConfig configures the Resend gateway.
type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string        // default: DefaultResendBaseURL
	Timeout time.Duration // default: DefaultTimeout
}

// ResendGateway sends email through the Resend HTTP API.
type ResendGateway struct {
	client   *http.Client
	endpoint string
	apiKey   string
	from     string
}

// ResendOption configures a ResendGateway.
type ResendOption func(*ResendGateway)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) ResendOption {
	return func(g *ResendGateway) {
		g.client = client
	}
}

// NewResendGateway creates a gateway; zero config values use defaults.
func NewResendGateway(cfg ResendConfig, opts ...ResendOption) *ResendGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultResendBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	g := &ResendGateway{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		endpoint: strings.TrimRight(baseURL, "/") + "/emails",
		apiKey:   cfg.APIKey,
		from:     cfg.From,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send posts one email and returns the provider message id.
func (g *ResendGateway) Send(ctx context.Context, email domain.Email) (string, error) {
	body, err := json.Marshal(sendRequest{
		From:    g.from,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("email provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("email provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	return out.ID, nil
}
