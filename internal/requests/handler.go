package requests

import (
	"log/slog"
	"net/http"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/handlers"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
)

// Handler provides read-only HTTP endpoints over offer request snapshots.
type Handler struct {
	sys    System
	logger *slog.Logger
	limits pagination.Limits
}

// NewHandler creates a Handler over sys.
func NewHandler(sys System, logger *slog.Logger, limits pagination.Limits) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "requests"),
		limits: limits,
	}
}

// Routes returns the route group definition for snapshot endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/requests",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{offer}", Handler: h.History},
		},
	}
}

// List pages through snapshots, newest first. The customer query parameter
// filters by customer number.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromQuery(r.URL.Query(), h.limits)

	result, err := h.sys.List(r.Context(), page, r.URL.Query().Get("customer"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// History returns every snapshot of one offer, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.sys.History(r.Context(), r.PathValue("offer"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, history)
}
