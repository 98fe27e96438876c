package api

import (
	"fmt"

	"github.com/lauripelkonen/erp-agent-sub000/internal/config"
	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/extract"
	"github.com/lauripelkonen/erp-agent-sub000/internal/learning"
	"github.com/lauripelkonen/erp-agent-sub000/internal/limiter"
	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
	"github.com/lauripelkonen/erp-agent-sub000/internal/workflow"

	_ "github.com/lauripelkonen/erp-agent-sub000/internal/erp/lemonsoft"
	_ "github.com/lauripelkonen/erp-agent-sub000/internal/erp/memory"
	_ "github.com/lauripelkonen/erp-agent-sub000/internal/erp/sqlerp"
)

// learningStore is what both the pipeline and the catalog matcher need from
// the swap table.
type learningStore interface {
	learning.Store
	extract.Learned
}

// Domain holds all domain systems that comprise the API.
type Domain struct {
	ERP          *erp.System
	Requests     requests.System
	Learning     learningStore
	Pipeline     *learning.Pipeline
	Orchestrator *workflow.Orchestrator
	Limiter      *limiter.Limiter
}

// NewDomain opens the configured ERP adapter set and wires the workflow and
// learning systems on top of it. Without a database, snapshots and swaps
// are kept in memory.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	sys, err := erp.Open(erp.Deps{
		DB:       runtime.DB(),
		Cache:    runtime.Cache,
		CacheTTL: cfg.Cache.TTLDuration(),
		Config:   cfg.ERP,
		Logger:   runtime.Logger,
	})
	if err != nil {
		return nil, err
	}

	var (
		snapshots requests.System
		store     learningStore
	)
	if db := runtime.DB(); db != nil {
		snapshots = requests.New(db, runtime.Storage, runtime.Logger)
		store = learning.NewPostgresStore(db, runtime.Storage, cfg.Learning.RulesKey, runtime.Logger)
	} else {
		snapshots = requests.NewMemory()
		store = learning.NewMemoryStore()
		runtime.Logger.Warn("no database configured, snapshots and learnings are not durable")
	}

	l, err := limiter.New(cfg.Workflow.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("limiter: %w", err)
	}

	orch := workflow.New(&workflow.Runtime{
		ERP:       sys,
		Extractor: extract.NewRules(),
		Matcher:   extract.NewCatalog(sys.Products, store, runtime.Logger),
		Requests:  snapshots,
		Policy:    cfg.Workflow,
		Logger:    runtime.Logger,
	})

	classifier := learning.NewPolicyClassifier(sys.Products, cfg.Workflow.FallbackProductCode, cfg.Learning.Thresholds)
	pipeline := learning.NewPipeline(snapshots, sys.Offers, classifier, store, runtime.Logger)
	learning.Schedule(runtime.Lifecycle, pipeline, &cfg.Learning, runtime.Logger)

	runtime.Logger.Info("domain ready",
		"erp", sys.Name,
		"concurrency", l.Capacity(),
		"durable", runtime.DB() != nil)

	return &Domain{
		ERP:          sys,
		Requests:     snapshots,
		Learning:     store,
		Pipeline:     pipeline,
		Orchestrator: orch,
		Limiter:      l,
	}, nil
}
