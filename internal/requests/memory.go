package requests

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
)

// Memory is a process-local System for the memory ERP and tests.
type Memory struct {
	mu        sync.RWMutex
	snapshots []OfferRequest
	now       func() time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Persist(_ context.Context, snapshot OfferRequest) error {
	if snapshot.OfferNumber == "" {
		return ErrMissingOffer
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.ID == snapshot.ID {
			return ErrDuplicate
		}
	}
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *Memory) LatestSince(_ context.Context, since time.Time) ([]OfferRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]OfferRequest)
	for _, s := range m.snapshots {
		if s.CreatedAt.Before(since) {
			continue
		}
		if cur, ok := latest[s.OfferNumber]; !ok || s.CreatedAt.After(cur.CreatedAt) {
			latest[s.OfferNumber] = s
		}
	}

	out := make([]OfferRequest, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b OfferRequest) int { return cmp.Compare(a.OfferNumber, b.OfferNumber) })
	return out, nil
}

func (m *Memory) History(_ context.Context, offerNumber string) ([]OfferRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []OfferRequest
	for _, s := range m.snapshots {
		if s.OfferNumber == offerNumber {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	slices.SortStableFunc(out, func(a, b OfferRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *Memory) List(_ context.Context, page pagination.Request, customerNumber string) (pagination.Result[OfferRequest], error) {
	page.Normalize(pagination.Limits{})
	search := strings.ToLower(page.Search)

	m.mu.RLock()
	var all []OfferRequest
	for _, s := range m.snapshots {
		if customerNumber != "" && s.CustomerNumber != customerNumber {
			continue
		}
		if search != "" && !matches(s, search) {
			continue
		}
		all = append(all, s)
	}
	m.mu.RUnlock()

	slices.SortStableFunc(all, func(a, b OfferRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })

	total := len(all)
	start := min((page.Page-1)*page.Size, total)
	end := min(start+page.Size, total)
	return pagination.NewResult(all[start:end], total, page), nil
}

func matches(s OfferRequest, search string) bool {
	for _, f := range []string{s.OfferNumber, s.CustomerName, s.Subject} {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}
