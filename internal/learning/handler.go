package learning

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/handlers"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
)

// Handler exposes manual runs and the learned swap table.
type Handler struct {
	pipeline   *Pipeline
	store      Store
	windowDays int
	limits     pagination.Limits
	logger     *slog.Logger
}

// NewHandler creates a Handler. windowDays is used when a run request does
// not name its own window.
func NewHandler(p *Pipeline, store Store, windowDays int, limits pagination.Limits, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline:   p,
		store:      store,
		windowDays: windowDays,
		limits:     limits,
		logger:     logger.With("handler", "learning"),
	}
}

// Routes returns the route group definition for learning endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:  "/learning",
		MaxBody: 4 << 10,
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/run", Handler: h.Run},
			{Method: "GET", Pattern: "/swaps", Handler: h.Swaps},
		},
	}
}

// Run executes one pipeline run and returns its summary.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	window := h.windowDays
	if v := r.URL.Query().Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			handlers.RespondError(w, h.logger, http.StatusBadRequest,
				fmt.Errorf("invalid window_days: %q", v))
			return
		}
		window = n
	}

	sum, err := h.pipeline.Run(r.Context(), window)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sum)
}

// Swaps pages through learned product swaps, newest first. The search
// query parameter filters by customer term.
func (h *Handler) Swaps(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromQuery(r.URL.Query(), h.limits)

	result, err := h.store.Swaps(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
