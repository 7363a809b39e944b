package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	apperrors "curated/internal/errors"
)

const (
	StripeEventCheckoutCompleted = "checkout.session.completed"
	StripeEventChargeRefunded    = "charge.refunded"

	webhookTolerance = 300 * time.Second
)

// StripeClient creates hosted checkout sessions and verifies webhooks
type StripeClient struct {
	api           *client.API
	webhookSecret string
}

func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	return newStripeClient(secretKey, webhookSecret, nil)
}

func newStripeClient(secretKey, webhookSecret string, backends *stripe.Backends) *StripeClient {
	return &StripeClient{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
	}
}

// CheckoutSessionInput - данные для Stripe Checkout (суммы в центах)
type CheckoutSessionInput struct {
	BookingID          string
	ExperienceID       string
	UserID             string
	Title              string
	Description        string
	Currency           string
	UnitAmount         int64
	Quantity           int64
	ApplicationFee     int64
	DestinationAccount string
	SuccessURL         string
	CancelURL          string
	IdempotencyKey     string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	params := buildCheckoutParams(in)
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ExpireCheckoutSession closes an open session so it can no longer be paid
func (c *StripeClient) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := c.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("failed to expire checkout session %s: %w", sessionID, err)
	}
	return nil
}

func buildCheckoutParams(in CheckoutSessionInput) *stripe.CheckoutSessionParams {
	currency := in.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(in.Title),
	}
	if in.Description != "" {
		product.Description = stripe.String(in.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(in.UnitAmount),
				},
				Quantity: stripe.Int64(in.Quantity),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(in.ApplicationFee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(in.DestinationAccount),
			},
		},
	}
	params.AddMetadata("booking_id", in.BookingID)
	params.AddMetadata("experience_id", in.ExperienceID)
	params.AddMetadata("user_id", in.UserID)

	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	return params
}

// WebhookEvent is the verified subset of a Stripe event we reconcile on
type WebhookEvent struct {
	ID              string
	Type            string
	BookingID       string
	PaymentIntentID string
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// booking reference. Any verification failure wraps ErrInvalidSignature.
func (c *StripeClient) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                webhookTolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
	}

	ev := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return ev, nil
	}

	switch ev.Type {
	case StripeEventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		ev.BookingID = s.Metadata["booking_id"]
		if s.PaymentIntent != nil {
			ev.PaymentIntentID = s.PaymentIntent.ID
		}

	case StripeEventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("failed to parse charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			ev.PaymentIntentID = ch.PaymentIntent.ID
		}
	}

	return ev, nil
}
