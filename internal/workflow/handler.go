package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lauripelkonen/erp-agent-sub000/internal/limiter"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/handlers"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
)

// BatchRequest is a set of emails submitted together.
type BatchRequest struct {
	Emails []EmailData `json:"emails"`
}

// BatchResponse carries one result per submitted email, in input order.
type BatchResponse struct {
	Results   []Result `json:"results"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
}

// Handler accepts quote emails over HTTP and runs them through the
// orchestrator under the shared limiter.
type Handler struct {
	orch     *Orchestrator
	limiter  *limiter.Limiter
	maxBatch int
	logger   *slog.Logger
}

// NewHandler creates a Handler accepting at most maxBatch emails per request.
func NewHandler(orch *Orchestrator, l *limiter.Limiter, maxBatch int, logger *slog.Logger) *Handler {
	return &Handler{
		orch:     orch,
		limiter:  l,
		maxBatch: maxBatch,
		logger:   logger.With("handler", "offers"),
	}
}

// emailBodyLimit bounds the encoded size of one submitted email.
const emailBodyLimit = 1 << 20

// Routes returns the route group definition for offer generation. The batch
// body is capped at emailBodyLimit per allowed email.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/offers",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Process, MaxBody: int64(max(h.maxBatch, 1)) * emailBodyLimit},
		},
	}
}

// Process runs a batch of emails and reports every result. The response is
// 200 even when some runs fail; each result carries its own state.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
			err = fmt.Errorf("%w: body exceeds %d bytes", ErrBatchTooLarge, mbe.Limit)
		} else {
			err = fmt.Errorf("%w: %w", ErrInvalidEmail, err)
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	switch {
	case len(req.Emails) == 0:
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyBatch)
		return
	case len(req.Emails) > h.maxBatch:
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%w: %d emails, limit %d", ErrBatchTooLarge, len(req.Emails), h.maxBatch))
		return
	}

	results := h.orch.ProcessAll(r.Context(), h.limiter, req.Emails)

	resp := BatchResponse{Results: results}
	for _, res := range results {
		if res.State == StateCompleted {
			resp.Completed++
		} else {
			resp.Failed++
		}
	}

	h.logger.Info("batch processed",
		"emails", len(req.Emails),
		"completed", resp.Completed,
		"failed", resp.Failed)
	handlers.RespondJSON(w, http.StatusOK, resp)
}
