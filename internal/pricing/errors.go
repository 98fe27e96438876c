package pricing

import "errors"

// ErrSourceUnavailable marks a pricing tier whose data source could not be read.
var ErrSourceUnavailable = errors.New("pricing source unavailable")
