package requests

import (
	"encoding/json"
	"fmt"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/query"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/repository"
)

var projection = query.NewProjection("public", "offer_requests", "r").
	Project("id", "ID").
	Project("offer_number", "OfferNumber").
	Project("email_id", "EmailID").
	Project("sender", "Sender").
	Project("subject", "Subject").
	Project("company_name", "CompanyName").
	Project("customer_number", "CustomerNumber").
	Project("customer_name", "CustomerName").
	Project("lines", "Lines").
	Project("pricing_summary", "PricingSummary").
	Project("total_amount", "TotalAmount").
	Project("created_at", "CreatedAt")

var newestFirst = query.Sort{Field: "CreatedAt", Descending: true}

func scanOfferRequest(s repository.Scanner) (OfferRequest, error) {
	var (
		r       OfferRequest
		lines   []byte
		summary []byte
	)

	err := s.Scan(
		&r.ID,
		&r.OfferNumber,
		&r.EmailID,
		&r.Sender,
		&r.Subject,
		&r.CompanyName,
		&r.CustomerNumber,
		&r.CustomerName,
		&lines,
		&summary,
		&r.TotalAmount,
		&r.CreatedAt,
	)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal(lines, &r.Lines); err != nil {
		return r, fmt.Errorf("decode lines of %s: %w", r.OfferNumber, err)
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &r.PricingSummary); err != nil {
			return r, fmt.Errorf("decode pricing summary of %s: %w", r.OfferNumber, err)
		}
	}
	return r, nil
}
