package workflow

import (
	"context"

	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
)

// Extractor reads structured intent out of an email. ExtractCompany returns
// ErrExtractionAmbiguous when it cannot name the company confidently.
type Extractor interface {
	ExtractCompany(ctx context.Context, email EmailData) (CompanyExtraction, error)
	ExtractProducts(ctx context.Context, email EmailData) ([]ProductTerm, error)
}

// ProductMatcher proposes catalog products for requested terms.
type ProductMatcher interface {
	Match(ctx context.Context, terms []ProductTerm, attachments []Attachment) ([]ProductCandidate, error)
}

// RequestLogger records the snapshot of a successful run.
type RequestLogger interface {
	Persist(ctx context.Context, snapshot requests.OfferRequest) error
}
