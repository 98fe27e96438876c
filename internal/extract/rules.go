// Package extract provides rule-based stand-ins for the language-model
// collaborators of the offer workflow: a text Extractor and a catalog-backed
// ProductMatcher.
package extract

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/workflow"
)

var (
	customerNumberRe = regexp.MustCompile(`(?i)(?:customer\s*(?:no|number|#)|asiakas(?:numero|nro))\.?\s*[:#]?\s*(\d{3,10})`)
	companyRe        = regexp.MustCompile(`(?i)^\s*([\p{L}0-9&.,' -]{2,80}?\s(?:oy|oyj|ab|ltd|llc|inc|gmbh|ky|tmi))\.?\s*$`)

	leadingQtyRe  = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s*)?(\d+(?:[.,]\d+)?)\s*(kpl|pcs|pc|st|m|kg|x)\.?\s+(.{2,})$`)
	trailingQtyRe = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s*)?(.{2,}?)[\s:,-]+(\d+(?:[.,]\d+)?)\s*(kpl|pcs|pc|st|m|kg)\.?\s*$`)
)

// Rules extracts companies and product lines from plain email text with
// regular expressions.
type Rules struct{}

// NewRules creates a Rules extractor.
func NewRules() *Rules {
	return &Rules{}
}

// ExtractCompany looks for an explicit customer number and for a line ending
// in a legal-form suffix such as "Oy" or "Ltd". Without either it falls back
// to the sender's mail domain at low confidence.
func (r *Rules) ExtractCompany(_ context.Context, email workflow.EmailData) (workflow.CompanyExtraction, error) {
	text := email.Subject + "\n" + email.Body
	var out workflow.CompanyExtraction

	if m := customerNumberRe.FindStringSubmatch(text); m != nil {
		out.CustomerNumber = m[1]
		out.Confidence = 0.95
	}

	var names []string
	for _, line := range strings.Split(text, "\n") {
		if m := companyRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if i := strings.LastIndex(name, ","); i >= 0 {
				name = name[i+1:]
			}
			names = append(names, strings.TrimSpace(name))
		}
	}
	if len(names) > 0 {
		out.Name = names[len(names)-1]
		out.Candidates = dedupe(names)
		out.Confidence = max(out.Confidence, 0.9)
		if len(out.Candidates) > 1 {
			out.Confidence = max(out.Confidence-0.2, 0.7)
		}
		return out, nil
	}

	if domain := senderDomain(email.Sender); domain != "" {
		out.Candidates = append(out.Candidates, domain)
		if out.Name == "" {
			out.Name = domain
		}
		out.Confidence = max(out.Confidence, 0.4)
	}

	if out.Name == "" && out.CustomerNumber == "" {
		return out, fmt.Errorf("%w: no company found in email %s", workflow.ErrExtractionAmbiguous, email.ID)
	}
	return out, nil
}

// ExtractProducts reads one product term per line of the body and every
// attachment, taking the quantity from the start or the end of the line.
func (r *Rules) ExtractProducts(_ context.Context, email workflow.EmailData) ([]workflow.ProductTerm, error) {
	texts := []string{email.Body}
	for _, a := range email.Attachments {
		texts = append(texts, a.Text)
	}

	var terms []workflow.ProductTerm
	for _, text := range texts {
		for _, line := range strings.Split(text, "\n") {
			if t, ok := parseLine(line); ok {
				terms = append(terms, t)
			}
		}
	}
	return terms, nil
}

func parseLine(line string) (workflow.ProductTerm, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return workflow.ProductTerm{}, false
	}

	if m := leadingQtyRe.FindStringSubmatch(line); m != nil {
		return term(m[3], m[1], m[2])
	}
	if m := trailingQtyRe.FindStringSubmatch(line); m != nil {
		return term(m[1], m[2], m[3])
	}
	return workflow.ProductTerm{}, false
}

func term(text, qty, unit string) (workflow.ProductTerm, bool) {
	q, err := decimal.NewFromString(strings.Replace(qty, ",", ".", 1))
	if err != nil || !q.IsPositive() {
		return workflow.ProductTerm{}, false
	}
	text = strings.Trim(strings.TrimSpace(text), ".,:;-")
	if len([]rune(text)) < 2 {
		return workflow.ProductTerm{}, false
	}

	unit = strings.ToLower(unit)
	if unit == "x" {
		unit = ""
	}
	return workflow.ProductTerm{Term: text, Quantity: q, Unit: unit}, true
}

func senderDomain(sender string) string {
	addr, err := mail.ParseAddress(sender)
	if err != nil {
		return ""
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 0 {
		return ""
	}
	host := addr.Address[at+1:]
	if dot := strings.Index(host, "."); dot > 0 {
		host = host[:dot]
	}
	return host
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := strings.ToLower(n)
		if !seen[k] {
			seen[k] = true
			out = append(out, n)
		}
	}
	return out
}
