package api

import (
	"net/http"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/handlers"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
)

// Status reports what the process is running against and how busy it is.
type Status struct {
	Version  string   `json:"version"`
	ERP      string   `json:"erp"`
	Adapters []string `json:"adapters"`
	Durable  bool     `json:"durable"`
	Capacity int      `json:"capacity"`
	InFlight int      `json:"in_flight"`
	Ready    bool     `json:"ready"`
}

type statusHandler struct {
	domain  *Domain
	runtime *Runtime
}

func newStatusHandler(domain *Domain, runtime *Runtime) *statusHandler {
	return &statusHandler{domain: domain, runtime: runtime}
}

func (h *statusHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/status",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.status},
		},
	}
}

func (h *statusHandler) status(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, Status{
		Version:  h.runtime.Version,
		ERP:      h.domain.ERP.Name,
		Adapters: erp.Registered(),
		Durable:  h.runtime.Database != nil,
		Capacity: h.domain.Limiter.Capacity(),
		InFlight: h.domain.Limiter.InFlight(),
		Ready:    h.runtime.Lifecycle.Ready(),
	})
}
