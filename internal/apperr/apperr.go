// Package apperr defines the domain error taxonomy. Every failure a
// handler can surface to a client maps to exactly one Code, and the
// API layer translates codes to HTTP statuses in one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeValidationFailed covers malformed or missing input.
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// CodeNotFound means a referenced entity does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeForbidden means the caller is not authorized for the
	// operation (e.g. a non-host managing join requests).
	CodeForbidden Code = "FORBIDDEN"

	// CodeSelfJoin means a host tried to request to join their own post.
	CodeSelfJoin Code = "SELF_JOIN"

	// CodeInvalidState means the operation is not valid for the
	// entity's current lifecycle state, including re-processing an
	// already approved or rejected request.
	CodeInvalidState Code = "INVALID_STATE"

	// CodeAlreadyRequested means a join request for this (post, user)
	// pair already exists, whatever its status.
	CodeAlreadyRequested Code = "ALREADY_REQUESTED"

	// CodePostFull means the post has no remaining capacity.
	CodePostFull Code = "POST_FULL"

	// CodeQuotaExceeded means the free-tier monthly post limit was hit.
	CodeQuotaExceeded Code = "QUOTA_EXCEEDED"

	// CodeNotMember means the caller does not belong to the chat.
	CodeNotMember Code = "NOT_MEMBER"

	// CodeExpired means the entity's lifetime has passed.
	CodeExpired Code = "EXPIRED"

	// CodeRateLimited means the caller is sending too many requests.
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeUnauthenticated means the credential is missing or invalid.
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// CodeUnavailable means the store failed transiently. The request
	// itself may be perfectly valid.
	CodeUnavailable Code = "UNAVAILABLE"
)

// Error carries a code plus a message safe to show to the client.
// The wrapped cause, if any, stays server-side.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from an error chain. Anything that is not
// an *Error is treated as Unavailable: if the store blew up we must
// not tell the client their request was invalid.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnavailable
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// MessageOf returns the client-safe message, or a generic one for
// unexpected errors so internal details never leak.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "service temporarily unavailable"
}

// HTTPStatus maps a code to the status the API layer should send.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidationFailed, CodeSelfJoin, CodeInvalidState:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotMember, CodeQuotaExceeded:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyRequested, CodePostFull:
		return http.StatusConflict
	case CodeExpired:
		return http.StatusGone
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
