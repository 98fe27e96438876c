package requests

import (
	"context"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
)

// System persists and reads offer request snapshots. There is no update
// operation: a persisted snapshot never changes.
type System interface {
	// Persist stores a new snapshot. A zero ID or CreatedAt is assigned.
	Persist(ctx context.Context, snapshot OfferRequest) error
	// LatestSince returns the newest snapshot of each offer created at or
	// after since, ordered by offer number.
	LatestSince(ctx context.Context, since time.Time) ([]OfferRequest, error)
	// History returns every snapshot of an offer, newest first.
	History(ctx context.Context, offerNumber string) ([]OfferRequest, error)
	// List pages through snapshots, filtered by customer number when set.
	List(ctx context.Context, page pagination.Request, customerNumber string) (pagination.Result[OfferRequest], error)
}
