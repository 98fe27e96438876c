package erp

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/cache"
)

// Deps are the shared infrastructure handles an adapter factory may use.
// Cache is nil when price caching is off.
type Deps struct {
	DB       *sql.DB
	Cache    cache.System
	CacheTTL time.Duration
	Config   Config
	Logger   *slog.Logger
}

// Factory builds one adapter set from shared infrastructure.
type Factory func(deps Deps) (*System, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an adapter set available under name. Adapter packages call
// it from init; registering the same name twice panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("erp: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("erp: Register called twice for " + name)
	}
	registry[name] = factory
}

// Registered returns the sorted names of all registered adapter sets.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the adapter set named by deps.Config.Type.
func Open(deps Deps) (*System, error) {
	registryMu.RLock()
	factory, ok := registry[deps.Config.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, deps.Config.Type)
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	sys, err := factory(deps)
	if err != nil {
		return nil, fmt.Errorf("open %s adapter: %w", deps.Config.Type, err)
	}
	if sys.Name == "" {
		sys.Name = deps.Config.Type
	}
	return sys, nil
}
