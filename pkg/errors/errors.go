package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of engine failure. Codes are part of the API
// contract: clients branch on them (e.g. re-query availability after a
// SLOT_CONFLICT), so they must stay stable.
type Code string

const (
	CodeInvalidScheduleRule      Code = "INVALID_SCHEDULE_RULE"
	CodeSlotUnavailable          Code = "SLOT_UNAVAILABLE"
	CodeSlotConflict             Code = "SLOT_CONFLICT"
	CodeRescheduleWindowClosed   Code = "RESCHEDULING_WINDOW_CLOSED"
	CodeCancellationWindowClosed Code = "CANCELLATION_WINDOW_CLOSED"
	CodeInvalidTransition        Code = "INVALID_TRANSITION"
	CodeStoreUnavailable         Code = "STORE_UNAVAILABLE"

	CodeNotFound     Code = "NOT_FOUND"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInternal     Code = "INTERNAL"
)

// AppError is the error type returned across the engine's boundaries.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps engine codes onto HTTP statuses; consumed by the error
// middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeInvalidScheduleRule, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSlotConflict:
		return http.StatusConflict
	case CodeSlotUnavailable, CodeRescheduleWindowClosed,
		CodeCancellationWindowClosed, CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the engine code from err, or CodeInternal if err carries
// no AppError in its chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given engine code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func New(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func InvalidScheduleRule(message string) *AppError {
	return &AppError{Code: CodeInvalidScheduleRule, Message: message}
}

func SlotUnavailable(message string) *AppError {
	return &AppError{Code: CodeSlotUnavailable, Message: message}
}

func SlotConflict(err error) *AppError {
	return &AppError{Code: CodeSlotConflict, Message: "slot was taken by a concurrent booking", Err: err}
}

func RescheduleWindowClosed() *AppError {
	return &AppError{Code: CodeRescheduleWindowClosed, Message: "cannot reschedule within 24 hours of the appointment"}
}

func CancellationWindowClosed() *AppError {
	return &AppError{Code: CodeCancellationWindowClosed, Message: "cannot cancel within 24 hours of the appointment"}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", from, to),
	}
}

func StoreUnavailable(err error) *AppError {
	return &AppError{Code: CodeStoreUnavailable, Message: "persistence layer unavailable", Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, Err: err}
}

func Unauthorized(err error) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: "unauthorized", Err: err}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal server error", Err: err}
}
