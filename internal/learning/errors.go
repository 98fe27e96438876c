package learning

import (
	"errors"
	"net/http"
)

// Per-offer failures. They are counted in Summary.Failed and leave the
// offer's state untouched so the next run retries it.
var (
	ErrFetchFailed          = errors.New("fetch current offer failed")
	ErrClassificationFailed = errors.New("swap classification failed")
	ErrPersistFailed        = errors.New("persist learnings failed")
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("learning run already in progress")

// MapHTTPStatus maps learning errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrRunInProgress) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
