package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
)

// Snapshots lists the offer request snapshots to examine.
type Snapshots interface {
	LatestSince(ctx context.Context, since time.Time) ([]requests.OfferRequest, error)
}

// Pipeline compares generated offers with their current ERP state and
// records what salespeople corrected.
type Pipeline struct {
	snapshots  Snapshots
	offers     erp.OfferRepository
	classifier Classifier
	store      Store
	logger     *slog.Logger
	now        func() time.Time
	running    sync.Mutex
}

// NewPipeline creates a Pipeline.
func NewPipeline(snapshots Snapshots, offers erp.OfferRepository, classifier Classifier, store Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		snapshots:  snapshots,
		offers:     offers,
		classifier: classifier,
		store:      store,
		logger:     logger.With("system", "learning"),
		now:        time.Now,
	}
}

// Run examines every offer with a snapshot in the last windowDays days.
// Per-offer failures are counted in Summary.Failed; Run itself fails only
// when the snapshot list cannot be read or ctx is cancelled. A Run started
// while another is active returns ErrRunInProgress.
func (p *Pipeline) Run(ctx context.Context, windowDays int) (Summary, error) {
	var sum Summary
	if !p.running.TryLock() {
		return sum, ErrRunInProgress
	}
	defer p.running.Unlock()

	if windowDays < 1 {
		windowDays = 1
	}

	start := p.now()
	since := start.AddDate(0, 0, -windowDays)
	snaps, err := p.snapshots.LatestSince(ctx, since)
	if err != nil {
		return sum, fmt.Errorf("list snapshots: %w", err)
	}

	for _, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		learned, skipped, err := p.processOffer(ctx, snap)
		switch {
		case err != nil:
			sum.Failed++
			p.logger.Warn("offer not processed", "offer_number", snap.OfferNumber, "error", err)
		case skipped:
			sum.Skipped++
		default:
			sum.Processed++
			if learned > 0 {
				sum.WithLearnings++
				sum.TotalLearnings += learned
			}
		}
	}

	p.logger.Info("learning run complete",
		"window_days", windowDays,
		"snapshots", len(snaps),
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"with_learnings", sum.WithLearnings,
		"total_learnings", sum.TotalLearnings,
		"failed", sum.Failed,
		"duration", time.Since(start))
	return sum, nil
}

func (p *Pipeline) processOffer(ctx context.Context, snap requests.OfferRequest) (int, bool, error) {
	offer, err := p.offers.Get(ctx, snap.OfferNumber)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	hash := ContentHash(offer.Lines)
	state, ok, err := p.store.State(ctx, snap.OfferNumber)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if ok && state.LastProcessedHash == hash {
		return 0, true, nil
	}

	known := make(map[string]bool, len(state.Learned))
	for _, k := range state.Learned {
		known[k] = true
	}

	swaps, rules, keys, err := p.learn(ctx, snap, offer, known)
	if err != nil {
		return 0, false, err
	}

	if len(swaps) > 0 {
		if err := p.store.MergeSwaps(ctx, Dedup(swaps)); err != nil {
			return 0, false, fmt.Errorf("%w: %w", ErrPersistFailed, err)
		}
	}
	if len(rules) > 0 {
		if err := p.store.AppendRules(ctx, rules); err != nil {
			return 0, false, fmt.Errorf("%w: %w", ErrPersistFailed, err)
		}
	}

	if err := p.store.SaveState(ctx, State{
		OfferNumber:       snap.OfferNumber,
		LastProcessedHash: hash,
		LastCheck:         p.now().UTC(),
		Learned:           keys,
	}); err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	learned := len(swaps) + len(rules)
	if learned > 0 {
		p.logger.Info("learnings recorded",
			"offer_number", snap.OfferNumber,
			"swaps", len(swaps),
			"rules", len(rules))
	}
	return learned, false, nil
}

// learn classifies the swaps between snap and offer. Swaps whose key is in
// known were learned on an earlier run and are skipped. keys lists every swap
// currently present.
func (p *Pipeline) learn(ctx context.Context, snap requests.OfferRequest, offer *erp.Offer, known map[string]bool) (swaps []ProductSwap, rules []GeneralRule, keys []string, err error) {
	now := p.now().UTC()

	for _, d := range Diff(snap.Lines, offer.Lines) {
		if d.Kind != KindSwap {
			continue
		}

		key := swapKey(d)
		keys = append(keys, key)
		if known[key] {
			continue
		}

		c, err := p.classifier.Classify(ctx, Swap{
			OfferNumber:    snap.OfferNumber,
			CustomerNumber: snap.CustomerNumber,
			CustomerName:   snap.CustomerName,
			Original:       *d.Original,
			Current:        *d.Current,
		})
		if err != nil {
			if !errors.Is(err, ErrClassificationFailed) {
				err = fmt.Errorf("%w: %w", ErrClassificationFailed, err)
			}
			return nil, nil, nil, err
		}

		switch c.Verdict {
		case VerdictSpecific:
			swaps = append(swaps, ProductSwap{
				CustomerTerm:        d.Original.Term,
				OriginalProductCode: d.Original.ProductCode,
				MatchedProductCode:  d.Current.ProductCode,
				MatchedProductName:  d.Current.ProductName,
				Confidence:          c.Confidence,
				Reasoning:           c.Reasoning,
				OfferNumber:         snap.OfferNumber,
				CustomerNumber:      snap.CustomerNumber,
				CreatedAt:           now,
			})
		case VerdictGeneral:
			rules = append(rules, GeneralRule{
				Text:        c.Rule,
				OfferNumber: snap.OfferNumber,
				CreatedAt:   now,
			})
		default:
			p.logger.Debug("swap ignored",
				"offer_number", snap.OfferNumber,
				"term", d.Original.Term,
				"reason", c.Reasoning)
		}
	}
	return swaps, rules, keys, nil
}

func swapKey(d Difference) string {
	return fmt.Sprintf("%d|%s|%s", d.Original.Position, d.Original.ProductCode, d.Current.ProductCode)
}
