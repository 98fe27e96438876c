package workflow

import "errors"

// Sentinel errors for workflow steps.
var (
	ErrInvalidEmail         = errors.New("invalid email")
	ErrExtractionAmbiguous  = errors.New("company extraction ambiguous")
	ErrSalespersonNotFound  = errors.New("salesperson not found")
	ErrNoProducts           = errors.New("no products requested")
	ErrProductUnresolved    = errors.New("product unresolved")
	ErrPricingDegraded      = errors.New("pricing degraded")
	ErrOfferBuildFailed     = errors.New("offer build failed")
	ErrOfferCreationFailed  = errors.New("offer creation failed")
	ErrVerificationMismatch = errors.New("offer verification mismatch")
	ErrPanic                = errors.New("workflow panicked")
)

// Batch request errors.
var (
	ErrEmptyBatch    = errors.New("batch contains no emails")
	ErrBatchTooLarge = errors.New("batch too large")
)
