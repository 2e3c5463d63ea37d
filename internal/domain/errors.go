package domain

import "errors"

// ErrorKind is the stable machine-readable class of a business rejection.
type ErrorKind string

const (
	KindNotFound                 ErrorKind = "not_found"
	KindRegistrationClosed       ErrorKind = "registration_closed"
	KindEventUnavailable         ErrorKind = "event_unavailable"
	KindCapacityReached          ErrorKind = "capacity_reached"
	KindNotPayable               ErrorKind = "not_payable"
	KindPaidEventRequiresPayment ErrorKind = "payment_required"
	KindAlreadyRegistered        ErrorKind = "already_registered"
	KindAmountMismatch           ErrorKind = "amount_mismatch"
	KindInvalidMetadata          ErrorKind = "invalid_metadata"
	KindUserMismatch             ErrorKind = "user_mismatch"
	KindInvalidState             ErrorKind = "invalid_state"
	KindInvalidInput             ErrorKind = "invalid_input"
	KindForbidden                ErrorKind = "forbidden"
	KindUnauthorized             ErrorKind = "unauthorized"
	KindCertificateRevoked       ErrorKind = "certificate_revoked"
	KindLookupNotFound           ErrorKind = "lookup_not_found"
)

// Error is a deterministic business rejection. Two errors match under errors.Is
// when their kinds are equal, so callers compare against the sentinels below
// while the message carries request-specific detail.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError returns a business error of the given kind with a custom message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Sentinel errors, one per kind.
var (
	ErrNotFound                 = NewError(KindNotFound, "not found")
	ErrRegistrationClosed       = NewError(KindRegistrationClosed, "Registration is closed for this event")
	ErrEventUnavailable         = NewError(KindEventUnavailable, "This event is not available")
	ErrCapacityReached          = NewError(KindCapacityReached, "Event is full. Registration capacity reached.")
	ErrNotPayable               = NewError(KindNotPayable, "This is a free event. Please use the free registration endpoint.")
	ErrPaidEventRequiresPayment = NewError(KindPaidEventRequiresPayment, "This is a paid event. Please complete payment to register.")
	ErrAlreadyRegistered        = NewError(KindAlreadyRegistered, "You are already registered for this event")
	ErrAmountMismatch           = NewError(KindAmountMismatch, "Invalid payment amount")
	ErrInvalidMetadata          = NewError(KindInvalidMetadata, "Invalid payment metadata")
	ErrUserMismatch             = NewError(KindUserMismatch, "Payment verification failed: User mismatch")
	ErrInvalidState             = NewError(KindInvalidState, "operation not allowed in current state")
	ErrInvalidInput             = NewError(KindInvalidInput, "invalid input")
	ErrForbidden                = NewError(KindForbidden, "forbidden")
	ErrUnauthorized             = NewError(KindUnauthorized, "unauthorized")
	ErrCertificateRevoked       = NewError(KindCertificateRevoked, "This certificate has been revoked")
	ErrLookupNotFound           = NewError(KindLookupNotFound, "lookup code not found")
)

// ErrDuplicateSlug is returned by storage when an event slug is already taken.
var ErrDuplicateSlug = errors.New("slug already in use")

// ErrTransient marks database, gateway or broker unavailability. It may be retried by the caller.
var ErrTransient = errors.New("transient infrastructure failure")

// TransientError wraps an infrastructure failure so it matches ErrTransient.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return ErrTransient.Error() + ": " + e.Err.Error()
}

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Business errors and nil pass through unchanged.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) || errors.Is(err, ErrTransient) {
		return err
	}
	return &TransientError{Err: err}
}
