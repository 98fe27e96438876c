package learning

import (
	"context"
	"strings"
	"sync"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
)

// Store persists learning state and learnings. State writes are
// last-writer-wins per offer number. MergeSwaps keeps the most recent swap
// per key; AppendRules only ever appends.
type Store interface {
	State(ctx context.Context, offerNumber string) (State, bool, error)
	SaveState(ctx context.Context, s State) error
	MergeSwaps(ctx context.Context, swaps []ProductSwap) error
	AppendRules(ctx context.Context, rules []GeneralRule) error
	Swaps(ctx context.Context, page pagination.Request) (pagination.Result[ProductSwap], error)
	// Lookup returns the most recent swap recorded for term.
	Lookup(ctx context.Context, term string) (ProductSwap, bool, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
	swaps  map[string]ProductSwap
	rules  []GeneralRule
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]State),
		swaps:  make(map[string]ProductSwap),
	}
}

func (m *MemoryStore) State(_ context.Context, offerNumber string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[offerNumber]
	return s, ok, nil
}

func (m *MemoryStore) SaveState(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.OfferNumber] = s
	return nil
}

func (m *MemoryStore) MergeSwaps(_ context.Context, swaps []ProductSwap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range swaps {
		k := s.Key()
		if cur, ok := m.swaps[k]; !ok || newer(s, cur) {
			m.swaps[k] = s
		}
	}
	return nil
}

func (m *MemoryStore) AppendRules(_ context.Context, rules []GeneralRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rules...)
	return nil
}

func (m *MemoryStore) Swaps(_ context.Context, page pagination.Request) (pagination.Result[ProductSwap], error) {
	page.Normalize(pagination.Limits{})

	m.mu.Lock()
	all := make([]ProductSwap, 0, len(m.swaps))
	for _, s := range m.swaps {
		all = append(all, s)
	}
	m.mu.Unlock()

	all = Dedup(all)
	if q := strings.ToLower(page.Search); q != "" {
		filtered := all[:0]
		for _, s := range all {
			if strings.Contains(normalizeTerm(s.CustomerTerm), q) || strings.Contains(strings.ToLower(s.MatchedProductCode), q) {
				filtered = append(filtered, s)
			}
		}
		all = filtered
	}

	total := len(all)
	start := min((page.Page-1)*page.Size, total)
	end := min(start+page.Size, total)
	return pagination.NewResult(all[start:end], total, page), nil
}

func (m *MemoryStore) Lookup(_ context.Context, term string) (ProductSwap, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := normalizeTerm(term)
	var (
		best  ProductSwap
		found bool
	)
	for _, s := range m.swaps {
		if normalizeTerm(s.CustomerTerm) != want {
			continue
		}
		if !found || newer(s, best) {
			best, found = s, true
		}
	}
	return best, found, nil
}

// Rules returns the appended general rules in order.
func (m *MemoryStore) Rules() []GeneralRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GeneralRule(nil), m.rules...)
}
