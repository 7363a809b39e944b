package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailSend(t *testing.T) {
	var got sendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	c := NewEmailClient(EmailConfig{BaseURL: srv.URL, APIKey: "re_key", From: "hello@curated.test"})
	id, err := c.Send(context.Background(), "guest@example.com", "Booking confirmed", "See you there")
	require.NoError(t, err)
	assert.Equal(t, "em_1", id)
	assert.Equal(t, []string{"guest@example.com"}, got.To)
	assert.Equal(t, "Booking confirmed", got.Subject)
}

func TestEmailSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer srv.Close()

	c := NewEmailClient(EmailConfig{BaseURL: srv.URL})
	_, err := c.Send(context.Background(), "bad", "s", "b")
	assert.ErrorContains(t, err, "422")
}
