// Package workflow turns one inbound quote email into an ERP offer by running
// a fixed, ordered table of steps against the selected ERP adapter set.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lauripelkonen/erp-agent-sub000/internal/limiter"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/middleware"
)

// Orchestrator drives emails through the step table.
type Orchestrator struct {
	rt     *Runtime
	steps  []Step
	logger *slog.Logger
}

// New creates an Orchestrator running Steps(rt).
func New(rt *Runtime) *Orchestrator {
	return &Orchestrator{
		rt:     rt,
		steps:  Steps(rt),
		logger: rt.Logger.With("system", "workflow"),
	}
}

// Steps returns a copy of the step table.
func (o *Orchestrator) Steps() []Step {
	return append([]Step(nil), o.steps...)
}

// Process runs one email to a terminal state. Steps run in table order and
// never repeat. The first critical failure ends the run; soft failures are
// kept as warnings. A completed run records one snapshot through the
// request logger. Once started, a run ignores cancellation of ctx so an offer
// is never left half created in the ERP.
func (o *Orchestrator) Process(ctx context.Context, email EmailData) Result {
	ctx = context.WithoutCancel(ctx)
	wc := &Context{
		RequestID: uuid.NewString(),
		Email:     email,
	}
	logger := o.logger.With("request_id", wc.RequestID, "email_id", email.ID)
	if id := middleware.RequestIDFrom(ctx); id != "" {
		logger = logger.With("http_request_id", id)
	}
	started := time.Now()

	for _, step := range o.steps {
		wc.Step = step.Name
		stepStart := time.Now()

		if err := runStep(ctx, step, wc); err != nil {
			if step.Critical {
				wc.fail(err)
				logger.ErrorContext(ctx, "workflow failed", "step", step.Name, "error", err)
				return o.result(wc, StateFailed, step.Name)
			}
			wc.Warn("%v", err)
			logger.WarnContext(ctx, "step degraded", "step", step.Name, "error", err)
			continue
		}

		logger.InfoContext(ctx, "step complete", "step", step.Name, "duration", time.Since(stepStart))
	}

	wc.Step = StepRecordRequest
	o.record(ctx, wc, logger)

	logger.InfoContext(ctx, "workflow completed",
		"offer_number", wc.OfferNumber,
		"customer", wc.customerName(),
		"lines", len(wc.Lines),
		"warnings", len(wc.Warnings),
		"duration", time.Since(started))

	return o.result(wc, StateCompleted, "")
}

// ProcessAll runs emails through l and returns results aligned with emails.
func (o *Orchestrator) ProcessAll(ctx context.Context, l *limiter.Limiter, emails []EmailData) []Result {
	return limiter.SubmitAll(ctx, l, emails, o.Process, func(email EmailData, err error) Result {
		return Result{
			EmailID:  email.ID,
			State:    StateFailed,
			Errors:   []string{err.Error()},
			Warnings: []string{},
		}
	})
}

func runStep(ctx context.Context, step Step, wc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return step.Run(ctx, wc)
}

func (o *Orchestrator) record(ctx context.Context, wc *Context, logger *slog.Logger) {
	summary := pricing.Summarize(wc.Priced)
	for _, s := range summary {
		logger.InfoContext(ctx, "discount method", "tier", s.Tier, "lines", s.Lines, "total", s.Total.StringFixed(2))
	}

	if o.rt.Requests == nil {
		return
	}
	if err := o.rt.Requests.Persist(ctx, o.snapshot(wc, summary)); err != nil {
		wc.Warn("snapshot not recorded: %v", err)
		logger.WarnContext(ctx, "snapshot persist failed", "offer_number", wc.OfferNumber, "error", err)
	}
}

func (o *Orchestrator) snapshot(wc *Context, summary []pricing.MethodSummary) requests.OfferRequest {
	lines := make([]requests.Line, len(wc.Offer.Lines))
	for i, ol := range wc.Offer.Lines {
		l := wc.Lines[i]
		p := wc.Priced[i]
		lines[i] = requests.Line{
			Position:        ol.Position,
			Term:            l.Term.Term,
			ProductCode:     ol.ProductCode,
			ProductName:     ol.ProductName,
			Quantity:        ol.Quantity,
			Confidence:      l.Candidate.Confidence,
			MatchMethod:     l.Candidate.MatchMethod,
			Fallback:        l.Fallback,
			UnitPrice:       ol.UnitPrice,
			DiscountPercent: ol.DiscountPercent,
			Tier:            p.Tier.String(),
			DiscountSource:  p.Source,
		}
	}

	return requests.OfferRequest{
		ID:             uuid.New(),
		OfferNumber:    wc.OfferNumber,
		EmailID:        wc.Email.ID,
		Sender:         wc.Email.Sender,
		Subject:        wc.Email.Subject,
		CompanyName:    wc.Company.Name,
		CustomerNumber: wc.Customer.Number,
		CustomerName:   wc.Customer.Name,
		Lines:          lines,
		PricingSummary: summary,
		TotalAmount:    wc.total(),
		CreatedAt:      o.rt.now().UTC(),
	}
}

func (o *Orchestrator) result(wc *Context, state State, failedStep string) Result {
	r := Result{
		RequestID:    wc.RequestID,
		EmailID:      wc.Email.ID,
		State:        state,
		Success:      state == StateCompleted,
		CustomerName: wc.customerName(),
		FailedStep:   failedStep,
		Errors:       wc.Errors,
		Warnings:     wc.Warnings,
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if r.Success {
		r.OfferNumber = wc.OfferNumber
		r.TotalAmount = wc.total()
	}
	return r
}
