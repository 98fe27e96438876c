package learning

import (
	"strings"
	"time"
)

// State is the idempotence gate for one offer: the content hash of the
// offer's lines when it was last processed.
type State struct {
	OfferNumber       string    `json:"offer_number"`
	LastProcessedHash string    `json:"last_processed_hash"`
	LastCheck         time.Time `json:"last_check"`
	// Learned holds the swap keys already classified for this offer, so a
	// later edit to the offer does not learn the same correction twice.
	Learned []string `json:"learned,omitempty"`
}

// ProductSwap records that a salesperson replaced the automatically matched
// product for a customer term with another product.
type ProductSwap struct {
	CustomerTerm        string    `json:"customer_term"`
	OriginalProductCode string    `json:"original_product_code"`
	MatchedProductCode  string    `json:"matched_product_code"`
	MatchedProductName  string    `json:"matched_product_name"`
	Confidence          float64   `json:"confidence"`
	Reasoning           string    `json:"reasoning"`
	OfferNumber         string    `json:"offer_number"`
	CustomerNumber      string    `json:"customer_number"`
	CreatedAt           time.Time `json:"created_at"`
}

// Key identifies a swap for deduplication.
func (s ProductSwap) Key() string {
	return normalizeTerm(s.CustomerTerm) + "\x00" + s.MatchedProductCode
}

// GeneralRule is a free-text matching principle. Rules are never deduplicated.
type GeneralRule struct {
	Text        string    `json:"text"`
	OfferNumber string    `json:"offer_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary reports one pipeline run.
type Summary struct {
	Processed      int `json:"processed"`
	Skipped        int `json:"skipped"`
	WithLearnings  int `json:"with_learnings"`
	TotalLearnings int `json:"total_learnings"`
	Failed         int `json:"failed"`
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}
