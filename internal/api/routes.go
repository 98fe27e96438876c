package api

import (
	"net/http"

	"github.com/lauripelkonen/erp-agent-sub000/internal/config"
	"github.com/lauripelkonen/erp-agent-sub000/internal/learning"
	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
	"github.com/lauripelkonen/erp-agent-sub000/internal/workflow"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		workflow.NewHandler(domain.Orchestrator, domain.Limiter, runtime.MaxBatchSize, runtime.Logger).Routes(),
		requests.NewHandler(domain.Requests, runtime.Logger, runtime.Pagination).Routes(),
		learning.NewHandler(domain.Pipeline, domain.Learning, cfg.Learning.WindowDays, runtime.Pagination, runtime.Logger).Routes(),
		newERPHandler(domain.ERP, runtime.Logger).routes(),
		newStorageHandler(runtime.Storage, cfg.Learning.RulesKey, runtime.Logger).routes(),
		newStatusHandler(domain, runtime).routes(),
	)
}
