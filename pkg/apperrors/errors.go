// Package apperrors holds the error kinds shared by every service. Callers wrap
// a kind with context using github.com/pkg/errors and classify with errors.Is.
package apperrors

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrBadRequest     = errors.New("bad request")
	ErrEncodeFailure  = errors.New("encode failure")
	ErrTimeout        = errors.New("timeout")
	ErrStorageFailure = errors.New("storage failure")
	ErrPublishFailure = errors.New("publish failure")
)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

func BadRequest(format string, args ...interface{}) error {
	return errors.Wrapf(ErrBadRequest, format, args...)
}

// HTTPStatus maps an error to the status code returned at the HTTP boundary.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
