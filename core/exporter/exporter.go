// Package exporter publishes argument check outcomes to metrics and log
// backends. Every exporter is a validation.Observer; attach one with
// validation.WithObserver.
package exporter

import (
	"sort"
	"strings"
	"sync"

	"github.com/artpar/checked/core/validation"
)

// Exporter is the base interface for all outcome exporters.
type Exporter interface {
	validation.Observer

	// Name returns the exporter identifier (e.g., "prometheus", "log").
	Name() string
}

// Registry fans events out to several exporters. It is itself an Observer.
type Registry struct {
	mu        sync.RWMutex
	exporters map[string]Exporter
}

// NewRegistry creates an empty exporter registry.
func NewRegistry() *Registry {
	return &Registry{
		exporters: make(map[string]Exporter),
	}
}

// Register adds an exporter, replacing any exporter with the same name.
func (r *Registry) Register(exp Exporter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exporters[exp.Name()] = exp
}

// Get returns an exporter by name.
func (r *Registry) Get(name string) (Exporter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.exporters[name]
	return exp, ok
}

// Names returns the registered exporter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Observe forwards ev to every registered exporter.
func (r *Registry) Observe(ev validation.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, exp := range r.exporters {
		exp.Observe(ev)
	}
}

// BaseParam strips a variadic index from a parameter name, so "rest[3]"
// reports as "rest". Keeps metric label cardinality bounded.
func BaseParam(param string) string {
	if i := strings.IndexByte(param, '['); i > 0 && strings.HasSuffix(param, "]") {
		return param[:i]
	}
	return param
}
