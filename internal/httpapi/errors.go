package httpapi

import (
	"errors"
	"net/http"
)

const (
	MessageOK                  = "OK"
	MessageCreated             = "Created"
	MessageBadRequest          = "Bad request"
	MessageUnauthorized        = "Unauthorized"
	MessageForbidden           = "Forbidden"
	MessageNotFound            = "Not found"
	MessageConflict            = "Conflict"
	MessageInternalServerError = "Internal server error"
	MessageError               = "Error"
)

// AppError is an error with the HTTP status and message shown to the caller.
// Cause is logged but never written to the response.
type AppError struct {
	StatusCode int
	Message    string
	Data       any
	Cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewAppError(statusCode int, message string, data any, cause error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Data: data, Cause: cause}
}

// normalizeError picks the status, message and data written for err.
// Internal errors get a generic message.
func normalizeError(err error) (int, string, any) {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.StatusCode <= 0 {
		return http.StatusInternalServerError, MessageInternalServerError, nil
	}

	status := appErr.StatusCode
	if status == http.StatusInternalServerError {
		return status, MessageInternalServerError, nil
	}

	msg := appErr.Message
	if msg == "" {
		msg = defaultMessageForStatus(status)
	}
	return status, msg, appErr.Data
}

func defaultMessageForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return MessageBadRequest
	case http.StatusUnauthorized:
		return MessageUnauthorized
	case http.StatusForbidden:
		return MessageForbidden
	case http.StatusNotFound:
		return MessageNotFound
	case http.StatusConflict:
		return MessageConflict
	default:
		if status >= 500 {
			return MessageInternalServerError
		}
		return MessageError
	}
}
