package erp

import "context"

// CustomerRepository resolves customers and their commercial terms.
type CustomerRepository interface {
	FindByName(ctx context.Context, name string) (*Customer, error)
	FindByNumber(ctx context.Context, number string) (*Customer, error)
	Search(ctx context.Context, query string, limit int) ([]Customer, error)
	PaymentTerms(ctx context.Context, customerNumber string) (*PaymentTerms, error)
	InvoicingDetails(ctx context.Context, customerNumber string) (*InvoicingDetails, error)
}

// PersonRepository resolves ERP users and contacts.
type PersonRepository interface {
	FindByEmail(ctx context.Context, email string) (*Person, error)
	FindByNumber(ctx context.Context, number string) (*Person, error)
}

// ProductRepository searches the product catalog. WildcardSearch accepts
// patterns where '*' matches any run of characters.
type ProductRepository interface {
	WildcardSearch(ctx context.Context, pattern string) ([]Product, error)
	SearchByCodes(ctx context.Context, codes []string) ([]Product, error)
}

// OfferRepository creates and reads offers. Create returns the offer number
// assigned by the ERP; lines are added separately.
type OfferRepository interface {
	Create(ctx context.Context, offer Offer) (string, error)
	AddLine(ctx context.Context, offerNumber string, line OfferLine) error
	Get(ctx context.Context, offerNumber string) (*Offer, error)
	Verify(ctx context.Context, offerNumber string) (*Verification, error)
}

// PricingService prices matched lines for a customer. Calculate returns one
// resolution per match, in input order. SupportsNativeOptimization reports
// whether the ERP re-prices lines itself when they are stored.
type PricingService interface {
	Calculate(ctx context.Context, customer Customer, matches []Match) ([]PriceResolution, error)
	SupportsNativeOptimization() bool
}

// System is one ERP adapter set. Exactly one set is opened per process,
// selected by Config.Type.
type System struct {
	Name      string
	Customers CustomerRepository
	Persons   PersonRepository
	Products  ProductRepository
	Offers    OfferRepository
	Pricing   PricingService
}
