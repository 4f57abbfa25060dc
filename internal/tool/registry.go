package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the registered tools, dispatches invocations by name
// and aggregates the sources of recent invocations. The source
// aggregate is explicit shared state owned here alone; the coordinator
// resets it at the start of every query.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	sources []Source
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. A second registration under the same name
// replaces the first.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
	r.logger.Debug("registered tool", "name", t.Name())
}

// Definitions returns every tool's schema in registration order, for
// attachment to the first model call.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches one invocation by name and folds the produced
// sources into the aggregate, most recent first. Returns ErrUnknownTool
// for unregistered names.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return Result{}, err
	}

	if len(result.Sources) > 0 {
		r.mu.Lock()
		r.sources = append(append([]Source{}, result.Sources...), r.sources...)
		r.mu.Unlock()
	}
	return result, nil
}

// LastSources returns the aggregated sources of invocations since the
// last reset, most recent invocation first.
func (r *Registry) LastSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ResetSources clears the aggregate.
func (r *Registry) ResetSources() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = nil
}
