// Package client is a Go client for the curated API plus a local store
// that caches what it fetched.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "curated/internal/errors"
	"curated/internal/models"
)

const defaultListSize = 100

// APIError - ответ сервера с кодом не 2xx
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status back to the sentinel the server started from
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return apperrors.ErrValidation
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusUnprocessableEntity:
		return apperrors.ErrPaymentAccountMissing
	}
	return nil
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the Supabase access token sent as a Bearer header
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListExperiences(ctx context.Context) ([]models.Experience, error) {
	var out []models.Experience
	q := url.Values{"page": {"1"}, "pageSize": {fmt.Sprint(defaultListSize)}}
	err := c.do(ctx, http.MethodGet, "/api/experiences?"+q.Encode(), nil, &out, nil)
	return out, err
}

func (c *Client) ListCreators(ctx context.Context) ([]models.Creator, error) {
	var out []models.Creator
	err := c.do(ctx, http.MethodGet, "/api/creators", nil, &out, nil)
	return out, err
}

func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	err := c.do(ctx, http.MethodGet, "/api/bookings", nil, &out, nil)
	return out, err
}

func (c *Client) CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	var out models.Booking
	if err := c.do(ctx, http.MethodPost, "/api/bookings/"+url.PathEscape(bookingID)+"/cancel", nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckout sends req.IdempotencyKey also as the Idempotency-Key header
func (c *Client) CreateCheckout(ctx context.Context, req models.CreateCheckoutSessionRequest) (*models.CreateCheckoutSessionResponse, error) {
	var headers map[string]string
	if req.IdempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": req.IdempotencyKey}
	}
	var out models.CreateCheckoutSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/checkout/sessions", req, &out, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(conversationID)+"/messages", nil, &out, nil)
	return out, err
}

func (c *Client) PostMessage(ctx context.Context, conversationID string, req models.PostMessageRequest) (*models.Message, error) {
	var out models.Message
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(conversationID)+"/messages", req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
