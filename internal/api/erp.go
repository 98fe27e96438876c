package api

import (
	"log/slog"
	"net/http"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/handlers"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
)

// erpHandler reads offers back from the ERP as salespeople left them.
type erpHandler struct {
	offers erp.OfferRepository
	logger *slog.Logger
}

func newERPHandler(sys *erp.System, logger *slog.Logger) *erpHandler {
	return &erpHandler{
		offers: sys.Offers,
		logger: logger.With("handler", "erp"),
	}
}

func (h *erpHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/erp/offers",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{offer}", Handler: h.offer},
			{Method: "GET", Pattern: "/{offer}/verify", Handler: h.verify},
		},
	}
}

func (h *erpHandler) offer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.offers.Get(r.Context(), r.PathValue("offer"))
	if err != nil {
		handlers.RespondError(w, h.logger, erp.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, offer)
}

func (h *erpHandler) verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.offers.Verify(r.Context(), r.PathValue("offer"))
	if err != nil {
		handlers.RespondError(w, h.logger, erp.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, v)
}
