package workflow

import (
	"log/slog"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

// Runtime bundles the dependencies that workflow steps require.
// It is constructed by higher-level composition code from the selected ERP
// adapter set and the external collaborators.
type Runtime struct {
	ERP       *erp.System
	Extractor Extractor
	Matcher   ProductMatcher
	Requests  RequestLogger
	Policy    Config
	Logger    *slog.Logger
	Now       func() time.Time
}

func (rt *Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}
