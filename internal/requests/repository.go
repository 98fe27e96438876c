package requests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/query"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/repository"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/storage"
)

type repo struct {
	db      *sql.DB
	archive storage.System
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a PostgreSQL-backed snapshot store. When archive is non-nil a
// JSON copy of every snapshot is uploaded to it; archive failures are logged.
func New(db *sql.DB, archive storage.System, logger *slog.Logger) System {
	return &repo{
		db:      db,
		archive: archive,
		logger:  logger.With("system", "requests"),
		now:     time.Now,
	}
}

func (r *repo) Persist(ctx context.Context, snapshot OfferRequest) error {
	if snapshot.OfferNumber == "" {
		return ErrMissingOffer
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = r.now().UTC()
	}

	lines, err := json.Marshal(snapshot.Lines)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeSnapshot, err)
	}
	summary, err := json.Marshal(snapshot.PricingSummary)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeSnapshot, err)
	}

	q := `
		INSERT INTO offer_requests(id, offer_number, email_id, sender, subject, company_name,
			customer_number, customer_name, lines, pricing_summary, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	err = repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return repository.ExecExpectOne(ctx, tx, q,
			snapshot.ID,
			snapshot.OfferNumber,
			snapshot.EmailID,
			snapshot.Sender,
			snapshot.Subject,
			snapshot.CompanyName,
			snapshot.CustomerNumber,
			snapshot.CustomerName,
			lines,
			summary,
			snapshot.TotalAmount,
			snapshot.CreatedAt,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("offer request persisted",
		"offer_number", snapshot.OfferNumber,
		"lines", len(snapshot.Lines),
		"total", snapshot.TotalAmount.StringFixed(2))

	r.archiveCopy(ctx, snapshot)
	return nil
}

func (r *repo) archiveCopy(ctx context.Context, snapshot OfferRequest) {
	if r.archive == nil {
		return
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		r.logger.Warn("snapshot archive encode failed", "offer_number", snapshot.OfferNumber, "error", err)
		return
	}

	key := ArchiveKey(snapshot)
	if err := r.archive.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		r.logger.Warn("snapshot archive upload failed", "key", key, "error", err)
	}
}

// ArchiveKey is the blob key of a snapshot's JSON copy.
func ArchiveKey(snapshot OfferRequest) string {
	return fmt.Sprintf("offer-requests/%s/%s.json",
		snapshot.OfferNumber,
		snapshot.CreatedAt.UTC().Format("20060102T150405Z"))
}

func (r *repo) LatestSince(ctx context.Context, since time.Time) ([]OfferRequest, error) {
	q := `
		SELECT DISTINCT ON (r.offer_number)
			r.id, r.offer_number, r.email_id, r.sender, r.subject, r.company_name,
			r.customer_number, r.customer_name, r.lines, r.pricing_summary, r.total_amount, r.created_at
		FROM public.offer_requests r
		WHERE r.created_at >= $1
		ORDER BY r.offer_number, r.created_at DESC`

	out, err := repository.QueryMany(ctx, r.db, q, []any{since}, scanOfferRequest)
	if err != nil {
		return nil, fmt.Errorf("query offer requests since %s: %w", since.Format(time.RFC3339), err)
	}
	return out, nil
}

func (r *repo) History(ctx context.Context, offerNumber string) ([]OfferRequest, error) {
	q, args := query.NewBuilder(projection, newestFirst).
		WhereEquals("OfferNumber", offerNumber).
		Build()

	out, err := repository.QueryMany(ctx, r.db, q, args, scanOfferRequest)
	if err != nil {
		return nil, fmt.Errorf("query offer request history: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *repo) List(ctx context.Context, page pagination.Request, customerNumber string) (pagination.Result[OfferRequest], error) {
	qb := query.NewBuilder(projection, newestFirst).
		WhereEquals("CustomerNumber", customerNumber).
		WhereContains(page.Search, "OfferNumber", "CustomerName", "Subject").
		OrderBy(query.ParseSort(projection, page.Sort))

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return pagination.Result[OfferRequest]{}, fmt.Errorf("count offer requests: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.Size)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanOfferRequest)
	if err != nil {
		return pagination.Result[OfferRequest]{}, fmt.Errorf("query offer requests: %w", err)
	}

	return pagination.NewResult(items, total, page), nil
}
