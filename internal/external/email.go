package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmailClient talks to a transactional email HTTP API (Resend-compatible)
type EmailClient struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

type EmailConfig struct {
	BaseURL string        `envconfig:"EMAIL_API_URL" default:"https://api.resend.com"`
	APIKey  string        `envconfig:"EMAIL_API_KEY"`
	From    string        `envconfig:"EMAIL_FROM" default:"Curated <hello@curated.local>"`
	Timeout time.Duration `envconfig:"EMAIL_TIMEOUT" default:"10s"`
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type sendEmailResponse struct {
	ID string `json:"id"`
}

func NewEmailClient(cfg EmailConfig) *EmailClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &EmailClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send returns the provider's message id
func (c *EmailClient) Send(ctx context.Context, to, subject, body string) (string, error) {
	payload, err := json.Marshal(sendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("email API returned status %d: %s", resp.StatusCode, string(body))
	}

	var out sendEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode email response: %w", err)
	}
	return out.ID, nil
}
