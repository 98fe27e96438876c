package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/query"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/repository"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/storage"
)

var swapProjection = query.NewProjection("public", "product_swaps", "s").
	Project("customer_term", "CustomerTerm").
	Project("original_product_code", "OriginalProductCode").
	Project("matched_product_code", "MatchedProductCode").
	Project("matched_product_name", "MatchedProductName").
	Project("confidence", "Confidence").
	Project("reasoning", "Reasoning").
	Project("offer_number", "OfferNumber").
	Project("customer_number", "CustomerNumber").
	Project("created_at", "CreatedAt")

var newestSwapFirst = query.Sort{Field: "CreatedAt", Descending: true}

func scanSwap(s repository.Scanner) (ProductSwap, error) {
	var sw ProductSwap
	err := s.Scan(
		&sw.CustomerTerm,
		&sw.OriginalProductCode,
		&sw.MatchedProductCode,
		&sw.MatchedProductName,
		&sw.Confidence,
		&sw.Reasoning,
		&sw.OfferNumber,
		&sw.CustomerNumber,
		&sw.CreatedAt,
	)
	return sw, err
}

// PostgresStore keeps state and swaps in PostgreSQL and appends general
// rules to a markdown blob.
type PostgresStore struct {
	db       *sql.DB
	blobs    storage.System
	rulesKey string
	logger   *slog.Logger
	swapMu   sync.Mutex
}

// NewPostgresStore creates a PostgresStore. Rules are appended to the blob
// at rulesKey.
func NewPostgresStore(db *sql.DB, blobs storage.System, rulesKey string, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		blobs:    blobs,
		rulesKey: rulesKey,
		logger:   logger.With("system", "learning-store"),
	}
}

func (s *PostgresStore) State(ctx context.Context, offerNumber string) (State, bool, error) {
	q := `
		SELECT offer_number, last_processed_hash, last_check, learned
		FROM public.learning_state
		WHERE offer_number = $1`

	st, err := repository.QueryOne(ctx, s.db, q, []any{offerNumber}, func(sc repository.Scanner) (State, error) {
		var (
			st      State
			learned string
		)
		err := sc.Scan(&st.OfferNumber, &st.LastProcessedHash, &st.LastCheck, &learned)
		if learned != "" {
			st.Learned = strings.Split(learned, "\n")
		}
		return st, err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read learning state %s: %w", offerNumber, err)
	}
	return st, true, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, st State) error {
	q := `
		INSERT INTO learning_state(offer_number, last_processed_hash, last_check, learned)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (offer_number) DO UPDATE
		SET last_processed_hash = EXCLUDED.last_processed_hash,
			last_check = EXCLUDED.last_check,
			learned = EXCLUDED.learned`

	learned := strings.Join(st.Learned, "\n")
	if _, err := s.db.ExecContext(ctx, q, st.OfferNumber, st.LastProcessedHash, st.LastCheck, learned); err != nil {
		return fmt.Errorf("save learning state %s: %w", st.OfferNumber, err)
	}
	return nil
}

// MergeSwaps upserts swaps keyed by (customer_term, matched_product_code).
// An existing row is replaced only by a swap at least as recent.
func (s *PostgresStore) MergeSwaps(ctx context.Context, swaps []ProductSwap) error {
	q := `
		INSERT INTO product_swaps(customer_term, original_product_code, matched_product_code,
			matched_product_name, confidence, reasoning, offer_number, customer_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (customer_term, matched_product_code) DO UPDATE
		SET original_product_code = EXCLUDED.original_product_code,
			matched_product_name = EXCLUDED.matched_product_name,
			confidence = EXCLUDED.confidence,
			reasoning = EXCLUDED.reasoning,
			offer_number = EXCLUDED.offer_number,
			customer_number = EXCLUDED.customer_number,
			created_at = EXCLUDED.created_at
		WHERE product_swaps.created_at <= EXCLUDED.created_at`

	s.swapMu.Lock()
	defer s.swapMu.Unlock()

	return repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, sw := range Dedup(swaps) {
			_, err := tx.ExecContext(ctx, q,
				normalizeTerm(sw.CustomerTerm),
				sw.OriginalProductCode,
				sw.MatchedProductCode,
				sw.MatchedProductName,
				sw.Confidence,
				sw.Reasoning,
				sw.OfferNumber,
				sw.CustomerNumber,
				sw.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("upsert swap %q -> %s: %w", sw.CustomerTerm, sw.MatchedProductCode, err)
			}
		}
		return nil
	})
}

// AppendRules appends one dated markdown bullet per rule.
func (s *PostgresStore) AppendRules(ctx context.Context, rules []GeneralRule) error {
	if len(rules) == 0 {
		return nil
	}
	if err := s.blobs.Append(ctx, s.rulesKey, FormatRules(rules)); err != nil {
		return fmt.Errorf("append general rules: %w", err)
	}
	s.logger.Info("general rules appended", "key", s.rulesKey, "count", len(rules))
	return nil
}

func (s *PostgresStore) Swaps(ctx context.Context, page pagination.Request) (pagination.Result[ProductSwap], error) {
	page.Normalize(pagination.Limits{})

	qb := query.NewBuilder(swapProjection, newestSwapFirst).
		WhereContains(page.Search, "CustomerTerm", "MatchedProductCode", "MatchedProductName").
		OrderBy(query.ParseSort(swapProjection, page.Sort))

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return pagination.Result[ProductSwap]{}, fmt.Errorf("count product swaps: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.Size)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanSwap)
	if err != nil {
		return pagination.Result[ProductSwap]{}, fmt.Errorf("query product swaps: %w", err)
	}
	return pagination.NewResult(items, total, page), nil
}

func (s *PostgresStore) Lookup(ctx context.Context, term string) (ProductSwap, bool, error) {
	q, args := query.NewBuilder(swapProjection, newestSwapFirst).
		WhereEquals("CustomerTerm", normalizeTerm(term)).
		BuildPage(1, 1)

	sw, err := repository.QueryOne(ctx, s.db, q, args, scanSwap)
	if errors.Is(err, sql.ErrNoRows) {
		return ProductSwap{}, false, nil
	}
	if err != nil {
		return ProductSwap{}, false, fmt.Errorf("lookup swap for %q: %w", term, err)
	}
	return sw, true, nil
}

// FormatRules renders rules as dated markdown bullets.
func FormatRules(rules []GeneralRule) string {
	var sb strings.Builder
	for _, r := range rules {
		fmt.Fprintf(&sb, "- %s (offer %s): %s\n",
			r.CreatedAt.UTC().Format("2006-01-02"), r.OfferNumber, r.Text)
	}
	return sb.String()
}
