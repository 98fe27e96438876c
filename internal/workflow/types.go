package workflow

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attachment is an email attachment whose text has already been extracted.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
}

// EmailData is one inbound quote request as supplied by intake.
type EmailData struct {
	ID          string       `json:"id"`
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Date        time.Time    `json:"date"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// CompanyExtraction is the extractor's best guess at the requesting company.
// CustomerNumber is set when the email quotes one explicitly.
type CompanyExtraction struct {
	Name           string   `json:"name"`
	Confidence     float64  `json:"confidence"`
	Candidates     []string `json:"candidates,omitempty"`
	CustomerNumber string   `json:"customer_number,omitempty"`
}

// ProductTerm is one requested item as written by the customer.
type ProductTerm struct {
	Term     string          `json:"term"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit,omitempty"`
}

// ProductCandidate is a matcher's proposal for a term.
type ProductCandidate struct {
	Term        string  `json:"term"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	Confidence  float64 `json:"confidence"`
	MatchMethod string  `json:"match_method"`
}

// State is the terminal state of a run.
type State string

const (
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Result is the outcome of one Process call. Errors are set only on failure
// and FailedStep names the step that stopped the run. Warnings are collected
// on every run so degraded successes are distinguishable from clean ones.
type Result struct {
	RequestID    string          `json:"request_id"`
	EmailID      string          `json:"email_id"`
	State        State           `json:"state"`
	Success      bool            `json:"success"`
	OfferNumber  string          `json:"offer_number,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	FailedStep   string          `json:"failed_step,omitempty"`
	Errors       []string        `json:"errors"`
	Warnings     []string        `json:"warnings"`
}
