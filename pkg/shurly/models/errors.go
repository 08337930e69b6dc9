package models

import (
	"errors"
	"net/http"
)

// Domain errors, mapped to HTTP statuses at the handler boundary. These are
// expected outcomes, not failures; anything else coming out of a handler is
// treated as a server error.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidSlug    = errors.New("invalid slug")
	ErrSlugConflict   = errors.New("slug conflict")
	ErrImmutableField = errors.New("immutable field")
	ErrNotFound       = errors.New("not found")
)

// HTTPStatus maps a domain error to its HTTP status code
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidSlug), errors.Is(err, ErrImmutableField):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSlugConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsDomainError reports whether the error is an expected domain outcome
func IsDomainError(err error) bool {
	return HTTPStatus(err) != http.StatusInternalServerError
}
