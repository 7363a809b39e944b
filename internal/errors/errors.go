package errors

import "errors"

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

var (
	ErrValidation            = errors.New("invalid request")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrPaymentAccountMissing = errors.New("Creator payment account not found")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrInvalidTransition     = errors.New("invalid booking status transition")
)

// Validation wraps msg so that errors.Is(err, ErrValidation) holds and the
// message is still shown to the caller as-is.
func Validation(msg string) error {
	return &userError{msg: msg, kind: ErrValidation}
}

// NotFound is the not-found counterpart of Validation.
func NotFound(msg string) error {
	return &userError{msg: msg, kind: ErrNotFound}
}

type userError struct {
	msg  string
	kind error
}

func (e *userError) Error() string { return e.msg }

func (e *userError) Unwrap() error { return e.kind }
