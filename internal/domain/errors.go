package domain

import "errors"

type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindAlreadyArrived    ErrorKind = "ALREADY_ARRIVED"
	KindCancelledBooking  ErrorKind = "CANCELLED_BOOKING"
	KindLockContention    ErrorKind = "LOCK_CONTENTION"
	KindPersistence       ErrorKind = "PERSISTENCE_ERROR"
)

// Error is the single error type crossing the service boundary. Callers
// branch on Kind, never on Message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid booking request"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "Booking not found"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrAlreadyArrived    = &Error{Kind: KindAlreadyArrived, Message: "Cannot cancel a booking that has already arrived or been delivered"}
	ErrCancelledBooking  = &Error{Kind: KindCancelledBooking, Message: "Cancelled booking cannot be changed"}
	ErrLockContention    = &Error{Kind: KindLockContention, Message: "Could not acquire lock for booking. Please try again."}
	ErrPersistence       = &Error{Kind: KindPersistence, Message: "Internal server error"}
)

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PublicMessage is the text safe to show a client. Persistence failures and
// foreign errors collapse to a generic message.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindPersistence {
		return ErrPersistence.Message
	}
	return e.Message
}
