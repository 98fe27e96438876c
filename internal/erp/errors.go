package erp

import (
	"errors"
	"net/http"
)

// Errors returned by adapters. Adapters wrap native failures with these
// sentinels so callers can branch with errors.Is.
var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrPersonNotFound   = errors.New("person not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOfferNotFound    = errors.New("offer not found")
	ErrOfferCreation    = errors.New("offer creation failed")
	ErrUnknownType      = errors.New("unknown erp type")
)

// MapHTTPStatus maps adapter errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrPersonNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOfferCreation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
