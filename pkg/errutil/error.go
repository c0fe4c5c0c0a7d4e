package errutil

import (
	"errors"
	"fmt"
	"net/http"
)

// BaseError carries the HTTP status it should be rendered with.
// Message is the only text a client ever sees; Err stays server side.
type BaseError struct {
	Code    int               `json:"-"`
	Message string            `json:"detail"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Retryable reports whether a caller may repeat the request unchanged.
func (e BaseError) Retryable() bool {
	return e.Code == http.StatusServiceUnavailable
}

func (e BaseError) JSON() map[string]interface{} {
	body := map[string]interface{}{"detail": e.Message}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	return body
}

type Option func(*BaseError)

func WithErr(err error) Option {
	return func(be *BaseError) { be.Err = err }
}

func WithFields(fields map[string]string) Option {
	return func(be *BaseError) { be.Fields = fields }
}

func New(code int, message string, opts ...Option) error {
	be := BaseError{Code: code, Message: message}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func BadRequest(msg string, opts ...Option) error {
	return New(http.StatusBadRequest, msg, opts...)
}

// Validation reports field-level input problems.
func Validation(fields map[string]string) error {
	return New(http.StatusBadRequest, "invalid input", WithFields(fields))
}

func Unauthorized(msg string, opts ...Option) error {
	return New(http.StatusUnauthorized, msg, opts...)
}

func Forbidden(msg string, opts ...Option) error {
	return New(http.StatusForbidden, msg, opts...)
}

func NotFound(msg string, opts ...Option) error {
	return New(http.StatusNotFound, msg, opts...)
}

func Conflict(msg string, opts ...Option) error {
	return New(http.StatusConflict, msg, opts...)
}

func TooManyRequests(msg string, opts ...Option) error {
	return New(http.StatusTooManyRequests, msg, opts...)
}

// Unavailable marks transient infrastructure failures such as lock contention.
func Unavailable(msg string, opts ...Option) error {
	return New(http.StatusServiceUnavailable, msg, opts...)
}

func Internal(msg string, opts ...Option) error {
	return New(http.StatusInternalServerError, msg, opts...)
}

// As extracts a BaseError from anywhere in err's chain.
func As(err error) (BaseError, bool) {
	var be BaseError
	if errors.As(err, &be) {
		return be, true
	}
	return BaseError{}, false
}

// StatusOf returns the HTTP status for err, 500 when it is not a BaseError.
func StatusOf(err error) int {
	if be, ok := As(err); ok {
		return be.Code
	}
	return http.StatusInternalServerError
}
