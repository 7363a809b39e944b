package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "curated/internal/errors"
	"curated/internal/models"
)

func TestCreateCheckoutSendsTokenAndIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

		var req models.CreateCheckoutSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.Quantity)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sessionId":"cs_1","bookingId":"b1","url":"https://checkout.test"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithToken("tok"))
	resp, err := c.CreateCheckout(context.Background(), models.CreateCheckoutSessionRequest{
		ExperienceID: "e1", Quantity: 2, IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", resp.SessionID)
	assert.Equal(t, "b1", resp.BookingID)
}

func TestErrorResponsesMapToSentinels(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, apperrors.ErrValidation},
		{http.StatusNotFound, apperrors.ErrNotFound},
		{http.StatusConflict, apperrors.ErrConflict},
		{http.StatusUnprocessableEntity, apperrors.ErrPaymentAccountMissing},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":"nope"}`))
		}))

		_, err := New(srv.URL).CancelBooking(context.Background(), "b1")
		srv.Close()

		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.want), "status %d", tc.status)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "nope", apiErr.Message)
	}
}

func TestListExperiencesRequestsFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		w.Write([]byte(`[{"id":"e1","title":"Night kayak","price":50.00}]`))
	}))
	defer srv.Close()

	exps, err := New(srv.URL).ListExperiences(context.Background())
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, int64(5000), exps[0].Price.Cents())
}
