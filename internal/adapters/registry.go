// Package adapters binds test categories to the engines that measure them:
// external command-line engines, HTTP engine APIs and the built-in page probes.
package adapters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// ErrEngineNotFound is returned when no engine is registered for a category.
type ErrEngineNotFound struct {
	Category string
}

func (e ErrEngineNotFound) Error() string {
	return fmt.Sprintf("no engine registered for category '%s'\nHint: add it under engines in the settings file", e.Category)
}

// ErrDuplicateEngine is returned when a category is registered twice.
type ErrDuplicateEngine struct {
	Category string
}

func (e ErrDuplicateEngine) Error() string {
	return fmt.Sprintf("engine for category '%s' already registered", e.Category)
}

// Registry maps test categories to engines. It is safe for concurrent use,
// since every host of a batch resolves engines from it.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]ports.TestEngine
	kinds   map[string]string
	logger  *logger.Logger
}

var _ ports.EngineResolver = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		engines: make(map[string]ports.TestEngine),
		kinds:   make(map[string]string),
		logger:  log,
	}
}

// Register binds an engine to a category. kind is a short description used
// in listings, such as "command" or "probe".
func (r *Registry) Register(category, kind string, engine ports.TestEngine) error {
	if engine == nil {
		return fmt.Errorf("engine for category '%s' is nil", category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[category]; exists {
		return ErrDuplicateEngine{Category: category}
	}
	r.engines[category] = engine
	r.kinds[category] = kind
	r.logger.WithFields(map[string]any{"category": category, "kind": kind}).Debug("engine registered")
	return nil
}

// Engine implements ports.EngineResolver.
func (r *Registry) Engine(category string) (ports.TestEngine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[category]
	if !ok {
		return nil, ErrEngineNotFound{Category: category}
	}
	return engine, nil
}

// Kind returns the kind an engine was registered with.
func (r *Registry) Kind(category string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kinds[category]
}

// Categories lists registered categories in sorted order.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the categories of the list that have no engine.
func (r *Registry) Missing(categories []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, c := range categories {
		if _, ok := r.engines[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
