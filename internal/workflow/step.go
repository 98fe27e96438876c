package workflow

import "context"

// Step names, in execution order.
const (
	StepParseEmail         = "ParseEmail"
	StepExtractCompany     = "ExtractCompany"
	StepResolveCustomer    = "ResolveCustomer"
	StepResolveSalesperson = "ResolveSalesperson"
	StepExtractProducts    = "ExtractProducts"
	StepMatchProducts      = "MatchProducts"
	StepResolvePricing     = "ResolvePricing"
	StepBuildOffer         = "BuildOffer"
	StepCreateOffer        = "CreateOffer"
	StepVerifyOffer        = "VerifyOffer"
	StepRecordRequest      = "RecordRequest"
)

// Step is one stage of the offer workflow. When Run fails, a critical step
// ends the run as failed; a soft step's error becomes a warning.
type Step struct {
	Name     string
	Critical bool
	Run      func(ctx context.Context, wc *Context) error
}

// Steps returns the fixed step table. ResolveCustomer is soft only when a
// fallback customer is configured.
func Steps(rt *Runtime) []Step {
	return []Step{
		ParseEmailStep(rt),
		ExtractCompanyStep(rt),
		ResolveCustomerStep(rt),
		ResolveSalespersonStep(rt),
		ExtractProductsStep(rt),
		MatchProductsStep(rt),
		ResolvePricingStep(rt),
		BuildOfferStep(rt),
		CreateOfferStep(rt),
		VerifyOfferStep(rt),
	}
}
