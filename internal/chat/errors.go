package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an Error for callers.
type Code string

// Error codes exposed to clients.
const (
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInternal     Code = "INTERNAL_SERVER_ERROR"
)

// Error is a client-facing failure of a chat operation.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the code to an HTTP status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode maps the code to a JSON-RPC 2.0 error code.
func (e *Error) ErrorCode() int {
	switch e.Code {
	case CodeBadRequest:
		return -32600
	case CodeNotFound:
		return -32004
	case CodeUnauthorized:
		return -32001
	case CodeForbidden:
		return -32003
	default:
		return -32603
	}
}

// ErrorData carries the symbolic code in JSON-RPC error responses.
func (e *Error) ErrorData() interface{} {
	return string(e.Code)
}

// NewError builds an Error with the given code and client-facing message.
func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func badRequest(format string, args ...any) *Error {
	return NewError(CodeBadRequest, fmt.Sprintf(format, args...))
}

func notFound(msg string) *Error {
	return NewError(CodeNotFound, msg)
}

func internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "internal server error", cause: cause}
}

var (
	errRoomNotFound = notFound("chat room not found")
	errUnauthorized = NewError(CodeUnauthorized, "authentication required")
	errForbidden    = NewError(CodeForbidden, "only the author or the room creator may delete this message")
)

// AsError converts any error into an *Error, classifying unknown errors as internal.
func AsError(err error) *Error {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr
	}
	return internal(err)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var chatErr *Error
	return errors.As(err, &chatErr) && chatErr.Code == code
}
