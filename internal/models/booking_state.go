package models

import (
	"fmt"

	apperrors "curated/internal/errors"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// BookingState - пара (status, payment_status)
type BookingState struct {
	Status        BookingStatus
	PaymentStatus PaymentStatus
}

func (s BookingState) String() string {
	return string(s.Status) + "/" + string(s.PaymentStatus)
}

var (
	StatePending          = BookingState{BookingStatusPending, PaymentStatusPending}
	StateConfirmedPaid    = BookingState{BookingStatusConfirmed, PaymentStatusPaid}
	StateCancelledPending = BookingState{BookingStatusCancelled, PaymentStatusPending}
	StateCancelledRefund  = BookingState{BookingStatusCancelled, PaymentStatusRefunded}
)

type BookingEvent string

const (
	EventCheckoutCompleted BookingEvent = "checkout_completed"
	EventRefunded          BookingEvent = "refunded"
	EventUserCancelled     BookingEvent = "user_cancelled"
	EventCreatorDeclined   BookingEvent = "creator_declined"
)

// Transition describes the legal sources of an event and where it leads.
// A source equal to Target is a replay and leaves the row unchanged.
type Transition struct {
	Event   BookingEvent
	Sources []BookingState
	Target  BookingState
}

var transitions = map[BookingEvent]Transition{
	EventCheckoutCompleted: {
		Event:   EventCheckoutCompleted,
		Sources: []BookingState{StatePending, StateConfirmedPaid},
		Target:  StateConfirmedPaid,
	},
	EventRefunded: {
		Event:   EventRefunded,
		// cancelled/pending: оплата пришла после отмены и была возвращена
		Sources: []BookingState{StatePending, StateConfirmedPaid, StateCancelledPending, StateCancelledRefund},
		Target:  StateCancelledRefund,
	},
	EventUserCancelled: {
		Event:   EventUserCancelled,
		Sources: []BookingState{StatePending},
		Target:  StateCancelledPending,
	},
	EventCreatorDeclined: {
		Event:   EventCreatorDeclined,
		Sources: []BookingState{StatePending},
		Target:  StateCancelledPending,
	},
}

// TransitionFor returns the transition registered for ev
func TransitionFor(ev BookingEvent) (Transition, error) {
	t, ok := transitions[ev]
	if !ok {
		return Transition{}, fmt.Errorf("unknown booking event %q: %w", ev, apperrors.ErrInvalidTransition)
	}
	return t, nil
}

// Allows reports whether from is a legal source of the transition
func (t Transition) Allows(from BookingState) bool {
	for _, s := range t.Sources {
		if s == from {
			return true
		}
	}
	return false
}

// SourceKeys returns sources formatted as "status/payment_status" for SQL
func (t Transition) SourceKeys() []string {
	keys := make([]string, len(t.Sources))
	for i, s := range t.Sources {
		keys[i] = s.String()
	}
	return keys
}

// NextState применяет событие к состоянию брони
func NextState(from BookingState, ev BookingEvent) (BookingState, error) {
	t, err := TransitionFor(ev)
	if err != nil {
		return BookingState{}, err
	}
	if !t.Allows(from) {
		return BookingState{}, fmt.Errorf("%s cannot apply %s: %w", from, ev, apperrors.ErrInvalidTransition)
	}
	return t.Target, nil
}
