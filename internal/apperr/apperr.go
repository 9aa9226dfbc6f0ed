// Package apperr holds the error taxonomy shared by the ticketing and event
// services. Callers wrap the sentinels with fmt.Errorf("...: %w") and the HTTP
// boundary classifies them once with Status and CodeOf.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "validation failed"}
	ErrEventNotFound       = &Error{Kind: KindNotFound, Code: "EVENT_NOT_FOUND", Message: "event not found"}
	ErrTicketNotFound      = &Error{Kind: KindNotFound, Code: "TICKET_NOT_FOUND", Message: "ticket not found"}
	ErrDuplicateBooking    = &Error{Kind: KindConflict, Code: "DUPLICATE_BOOKING", Message: "a ticket for this event is already booked with this email"}
	ErrBookingInProgress   = &Error{Kind: KindConflict, Code: "BOOKING_IN_PROGRESS", Message: "another booking for this event and email is still being processed"}
	ErrSoldOut             = &Error{Kind: KindConflict, Code: "SOLD_OUT", Message: "event is sold out"}
	ErrPaymentNotConfirmed = &Error{Kind: KindConflict, Code: "PAYMENT_NOT_CONFIRMED", Message: "payment has not been confirmed"}
	ErrAlreadyCheckedIn    = &Error{Kind: KindConflict, Code: "ALREADY_CHECKED_IN", Message: "ticket is already checked in"}
	ErrInvalidTransition   = &Error{Kind: KindConflict, Code: "INVALID_TRANSITION", Message: "payment status cannot change"}
	ErrCapacityLocked      = &Error{Kind: KindConflict, Code: "CAPACITY_LOCKED", Message: "capacity cannot change after tickets are sold"}
	ErrEventHasTickets     = &Error{Kind: KindConflict, Code: "EVENT_HAS_TICKETS", Message: "event cannot be deleted after tickets are sold"}
	ErrInvalidQRCode       = &Error{Kind: KindValidation, Code: "INVALID_QR_CODE", Message: "qr code does not match ticket"}
	ErrNotAuthorized       = &Error{Kind: KindAuthorization, Code: "NOT_AUTHORIZED", Message: "resource belongs to another organization"}
	ErrOrganizationUnknown = &Error{Kind: KindAuthorization, Code: "ORGANIZATION_NOT_REGISTERED", Message: "organization is not registered"}
)

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL_ERROR"
}

// badRequestCodes are conflicts the booking and gate clients expect as 400.
var badRequestCodes = map[string]bool{
	ErrDuplicateBooking.Code:    true,
	ErrSoldOut.Code:             true,
	ErrPaymentNotConfirmed.Code: true,
}

func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		if badRequestCodes[CodeOf(err)] {
			return http.StatusBadRequest
		}
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
