package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	apperrors "curated/internal/errors"
	"curated/internal/external"
	"curated/internal/models"
	"curated/internal/repository"
)

type fakeBookings struct {
	mu       sync.Mutex
	rows     map[string]*models.Booking
	requests *fakeRequests
	failNext error
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{rows: map[string]*models.Booking{}}
}

func (f *fakeBookings) Create(_ context.Context, b *models.Booking) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.IdempotencyKey != nil {
		for _, row := range f.rows {
			if row.UserID == b.UserID && row.IdempotencyKey != nil && *row.IdempotencyKey == *b.IdempotencyKey {
				*b = *row
				return false, nil
			}
		}
	}
	b.ID = uuid.NewString()
	cp := *b
	f.rows[b.ID] = &cp
	return true, nil
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeBookings) GetByPaymentIntent(_ context.Context, pi string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.StripePaymentIntentID != nil && *row.StripePaymentIntentID == pi {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeBookings) ConfirmedUserIDs(_ context.Context, experienceID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, row := range f.rows {
		if row.ExperienceID == experienceID && row.State() == models.StateConfirmedPaid && !seen[row.UserID] {
			seen[row.UserID] = true
			ids = append(ids, row.UserID)
		}
	}
	return ids, nil
}

func (f *fakeBookings) SetCheckoutSession(_ context.Context, id, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("no booking %s", id)
	}
	row.StripeCheckoutSessionID = &sessionID
	return nil
}

func (f *fakeBookings) ApplyTransition(_ context.Context, id string, ev models.BookingEvent, pi *string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return nil, err
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.NotFound("booking not found")
	}
	next, err := models.NextState(row.State(), ev)
	if err != nil {
		return nil, err
	}
	pending := f.pendingRequest(id)
	if ev == models.EventCreatorDeclined && pending == nil {
		return nil, fmt.Errorf("booking %s has no pending request: %w", id, apperrors.ErrInvalidTransition)
	}
	row.Status, row.PaymentStatus = next.Status, next.PaymentStatus
	if pi != nil {
		row.StripePaymentIntentID = pi
	}
	if pending != nil && next.Status == models.BookingStatusCancelled {
		pending.Status = models.RequestStatusDeclined
	}
	cp := *row
	return &cp, nil
}

func (f *fakeBookings) pendingRequest(bookingID string) *models.BookingRequest {
	if f.requests == nil {
		return nil
	}
	for _, r := range f.requests.rows {
		if r.BookingID == bookingID && r.Status == models.RequestStatusPending {
			return r
		}
	}
	return nil
}

func (f *fakeBookings) SetPaymentIntent(_ context.Context, id, pi string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("no booking %s", id)
	}
	row.StripePaymentIntentID = &pi
	return nil
}

func (f *fakeBookings) put(b models.Booking) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	f.rows[b.ID] = &b
	return &b
}

type fakeRequests struct {
	bookings *fakeBookings
	rows     map[string]*models.BookingRequest
}

func (f *fakeRequests) CreateWithBooking(ctx context.Context, b *models.Booking, req *models.BookingRequest) (bool, error) {
	created, err := f.bookings.Create(ctx, b)
	if err != nil {
		return false, err
	}
	if !created {
		for _, r := range f.rows {
			if r.BookingID == b.ID {
				*req = *r
			}
		}
		return false, nil
	}
	req.ID = uuid.NewString()
	req.BookingID = b.ID
	req.Status = models.RequestStatusPending
	cp := *req
	f.rows[req.ID] = &cp
	return true, nil
}

func (f *fakeRequests) GetByID(_ context.Context, id string) (*models.BookingRequest, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) Approve(_ context.Context, id string) (*models.BookingRequest, error) {
	f.bookings.mu.Lock()
	defer f.bookings.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != models.RequestStatusPending {
		return nil, fmt.Errorf("booking request %s cannot be approved: %w", id, apperrors.ErrConflict)
	}
	if b, ok := f.bookings.rows[r.BookingID]; !ok || b.State() != models.StatePending {
		return nil, fmt.Errorf("booking request %s cannot be approved: %w", id, apperrors.ErrConflict)
	}
	r.Status = models.RequestStatusApproved
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) ListForCreator(_ context.Context, creatorID string) ([]models.BookingRequest, error) {
	out := []models.BookingRequest{}
	for _, r := range f.rows {
		if r.CreatorID == creatorID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeExperiences struct {
	rows map[string]*models.Experience
}

func (f *fakeExperiences) GetByID(_ context.Context, id string) (*models.Experience, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

type fakeUsers struct {
	users    map[string]*models.User
	profiles map[string]*models.CreatorProfile
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetCreatorProfile(_ context.Context, id string) (*models.CreatorProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type fakeCheckout struct {
	calls     []external.CheckoutSessionInput
	err       error
	expired   []string
	expireErr error
}

func (f *fakeCheckout) ExpireCheckoutSession(_ context.Context, sessionID string) error {
	f.expired = append(f.expired, sessionID)
	return f.expireErr
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, in external.CheckoutSessionInput) (*external.CheckoutSession, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return &external.CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", len(f.calls)),
		URL: fmt.Sprintf("https://checkout.stripe.test/%d", len(f.calls)),
	}, nil
}

type published struct {
	Subject string
	Data    interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{Subject: subject, Data: data})
	return nil
}

func (f *fakePublisher) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Subject
	}
	return out
}

// fakeLedger mirrors the transactional ledger: fn's error drops the ledger row
type fakeLedger struct {
	bookings *fakeBookings
	seen     map[string]bool
	calls    int
}

func (f *fakeLedger) ApplyOnce(ctx context.Context, eventID, _ string,
	fn func(ctx context.Context, bookings repository.BookingTransitions) error) (bool, error) {
	f.calls++
	if f.seen[eventID] {
		return false, nil
	}
	if err := fn(ctx, f.bookings); err != nil {
		return false, err
	}
	f.seen[eventID] = true
	return true, nil
}

type fakeVerifier struct {
	event *external.WebhookEvent
}

func (f *fakeVerifier) ParseWebhook(payload []byte, signature string) (*external.WebhookEvent, error) {
	if signature != "valid" {
		return nil, fmt.Errorf("%w: bad signature", apperrors.ErrInvalidSignature)
	}
	cp := *f.event
	return &cp, nil
}

var errProvider = errors.New("provider unavailable")
