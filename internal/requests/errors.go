package requests

import (
	"errors"
	"net/http"
)

// Domain errors for offer request snapshots.
var (
	ErrNotFound       = errors.New("offer request not found")
	ErrDuplicate      = errors.New("offer request already exists")
	ErrMissingOffer   = errors.New("offer request has no offer number")
	ErrEncodeSnapshot = errors.New("encode offer request")
)

// MapHTTPStatus maps snapshot errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrMissingOffer):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
