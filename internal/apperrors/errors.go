package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so callers can decide whether the failure
// is a caller mistake, a business-rule violation, or an external dependency
// being unavailable (and therefore worth retrying).
type Kind string

const (
	KindValidation           Kind = "VALIDATION"
	KindAuthentication       Kind = "AUTHENTICATION"
	KindAuthorization        Kind = "AUTHORIZATION"
	KindInvalidTransition    Kind = "INVALID_TRANSITION"
	KindAmountMismatch       Kind = "AMOUNT_MISMATCH"
	KindDuplicatePayment     Kind = "DUPLICATE_PAYMENT"
	KindDuplicateShipment    Kind = "DUPLICATE_SHIPMENT"
	KindUnknownLocation      Kind = "UNKNOWN_LOCATION"
	KindPaymentRequired      Kind = "PAYMENT_REQUIRED"
	KindUnrecognizedStatus   Kind = "UNRECOGNIZED_STATUS"
	KindGatewayUnavailable   Kind = "GATEWAY_UNAVAILABLE"
	KindCourierUnavailable   Kind = "COURIER_UNAVAILABLE"
	KindCourierProtocol      Kind = "COURIER_PROTOCOL"
	KindPriceFeedUnavailable Kind = "PRICE_FEED_UNAVAILABLE"
	KindNotFound             Kind = "NOT_FOUND"
	KindInternal             Kind = "INTERNAL"
)

// Error is the domain error type. Kind drives HTTP status mapping and retry
// decisions; Message is safe to return to the caller; Err carries the
// underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two apperrors by Kind, so errors.Is(err, apperrors.E(kind))
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// E returns a bare error of the given kind, usable as an errors.Is target.
func E(kind Kind) *Error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func AmountMismatch(expected, got int64) *Error {
	return &Error{
		Kind:    KindAmountMismatch,
		Message: fmt.Sprintf("amount %d does not match order total %d", got, expected),
	}
}

func DuplicatePayment(orderID int64) *Error {
	return &Error{
		Kind:    KindDuplicatePayment,
		Message: fmt.Sprintf("order %d already has a completed payment", orderID),
	}
}

func DuplicateShipment(orderID int64) *Error {
	return &Error{
		Kind:    KindDuplicateShipment,
		Message: fmt.Sprintf("order %d already has an active shipment", orderID),
	}
}

func UnknownLocation(comuna string) *Error {
	return &Error{
		Kind:    KindUnknownLocation,
		Message: fmt.Sprintf("comuna %q is not serviceable", comuna),
	}
}

func PaymentRequired(orderID int64) *Error {
	return &Error{
		Kind:    KindPaymentRequired,
		Message: fmt.Sprintf("order %d has no completed payment", orderID),
	}
}

func UnrecognizedStatus(status string) *Error {
	return &Error{
		Kind:    KindUnrecognizedStatus,
		Message: fmt.Sprintf("unrecognized courier status %q", status),
	}
}

func GatewayUnavailable(err error) *Error {
	return &Error{Kind: KindGatewayUnavailable, Message: "payment gateway unavailable", Err: err}
}

func CourierUnavailable(err error) *Error {
	return &Error{Kind: KindCourierUnavailable, Message: "courier network unavailable", Err: err}
}

func CourierProtocol(msg string, err error) *Error {
	return &Error{Kind: KindCourierProtocol, Message: msg, Err: err}
}

func PriceFeedUnavailable(err error) *Error {
	return &Error{Kind: KindPriceFeedUnavailable, Message: "no price sources reachable", Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}
