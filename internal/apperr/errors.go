package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindAuth
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimited
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the application error carried from services to handlers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// New creates an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code so a re-messaged sentinel still compares equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e carrying a different client message.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// Wrap returns a copy of e with err attached as its cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Unexpected wraps an infrastructure error with context. Application errors
// pass through untouched.
func Unexpected(err error, context string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return ErrInternal.Wrap(errors.Wrap(err, context))
}

// Validation builds an ad-hoc validation error.
func Validation(message string) *Error {
	return ErrValidation.WithMessage(message)
}

var (
	ErrInternal   = New(KindUnexpected, "internal_error", "internal server error")
	ErrValidation = New(KindValidation, "validation_error", "invalid request")
	ErrNotFound   = New(KindNotFound, "not_found", "resource not found")
	ErrConflict   = New(KindConflict, "conflict", "conflict")

	ErrUnauthorized       = New(KindAuth, "unauthorized", "authentication required")
	ErrInvalidToken       = New(KindAuth, "invalid_token", "invalid or expired token")
	ErrForbidden          = New(KindAuthorization, "forbidden", "access denied")
	ErrAccountDeactivated = New(KindAuthorization, "account_deactivated", "account is deactivated")
	ErrRateLimited        = New(KindRateLimited, "rate_limited", "too many requests")

	ErrInvalidPhone        = New(KindValidation, "invalid_phone", "valid phone number required")
	ErrInvalidOrExpiredOtp = New(KindValidation, "invalid_or_expired_otp", "invalid or expired OTP")
	ErrOtpThrottled        = New(KindConflict, "otp_throttled", "please wait before requesting a new code")

	ErrProductUnavailable = New(KindNotFound, "product_unavailable", "product not available")
	ErrInvalidQuantity    = New(KindValidation, "invalid_quantity", "quantity must be at least 1")
	ErrInsufficientStock  = New(KindValidation, "insufficient_stock", "insufficient stock")

	ErrEmptyCart           = New(KindValidation, "empty_cart", "cart is empty")
	ErrMissingDeliveryInfo = New(KindValidation, "missing_delivery_info", "delivery information is required")
	ErrInvalidStatus       = New(KindValidation, "invalid_status", "invalid status")
	ErrNoOpTransition      = New(KindConflict, "noop_transition", "order already has this status")
	ErrInvalidTransition   = New(KindConflict, "invalid_transition", "order status can no longer change")

	ErrEmailTaken = New(KindConflict, "email_taken", "email already in use")
)
