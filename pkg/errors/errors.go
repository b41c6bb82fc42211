package errors

import (
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"

	// Booking-core codes.
	CodeSlotUnavailable    = "SLOT_UNAVAILABLE"
	CodeInvalidWindow      = "INVALID_WINDOW"
	CodeInvalidCourtConfig = "INVALID_COURT_CONFIGURATION"
	CodePaymentFailed      = "PAYMENT_FAILED"
	CodeLeaseExpired       = "LEASE_EXPIRED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// SlotUnavailable reports that the requested window is claimed by another
// holder or already booked. Recoverable: the caller should re-select.
func SlotUnavailable(courtID, date, start, end string) *AppError {
	return &AppError{
		Code:       CodeSlotUnavailable,
		Message:    "The requested time slot is no longer available",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"court_id": courtID,
			"date":     date,
			"start":    start,
			"end":      end,
		},
	}
}

func InvalidWindow(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidWindow,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func InvalidCourtConfiguration(courtID, message string) *AppError {
	return &AppError{
		Code:       CodeInvalidCourtConfig,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"court_id": courtID,
		},
	}
}

func PaymentFailed(err error) *AppError {
	return &AppError{
		Code:       CodePaymentFailed,
		Message:    "Payment was not completed. Please retry or choose another method",
		HTTPStatus: http.StatusPaymentRequired,
		Err:        err,
	}
}

// LeaseExpired reports that a held lease lapsed mid-flow. The caller must
// re-quote and re-lease; from their perspective this behaves like
// SlotUnavailable.
func LeaseExpired(leaseID string) *AppError {
	return &AppError{
		Code:       CodeLeaseExpired,
		Message:    "The slot hold expired before the booking could be completed",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"lease_id": leaseID,
		},
	}
}

// StoreUnavailable is fatal for the current request. The message stays
// generic; the cause goes to the log, not the client.
func StoreUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeStoreUnavailable,
		Message:    "Service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
