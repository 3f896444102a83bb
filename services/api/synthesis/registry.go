package synthesis

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrefix   = errors.New("invalid datasource id prefix")
	ErrDuplicatePrefix = errors.New("duplicate datasource id prefix")
)

// Registry holds the registered plugins in registration order.
type Registry struct {
	plugins  []*Plugin
	byPrefix map[string]*Plugin
}

// NewRegistry registers plugins in order.
func NewRegistry(plugins ...*Plugin) (*Registry, error) {
	r := &Registry{byPrefix: make(map[string]*Plugin, len(plugins))}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends p. Its id prefix must be alphanumeric and unused.
func (r *Registry) Register(p *Plugin) error {
	prefix := p.DataSource.IDPrefix
	if !ValidPrefix(prefix) {
		return fmt.Errorf("%w: %q (datasource %s)", ErrInvalidPrefix, prefix, p.DataSource.ID)
	}
	if _, exists := r.byPrefix[prefix]; exists {
		return fmt.Errorf("%w: %q (datasource %s)", ErrDuplicatePrefix, prefix, p.DataSource.ID)
	}
	r.byPrefix[prefix] = p
	r.plugins = append(r.plugins, p)
	return nil
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []*Plugin {
	out := make([]*Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// DataSources returns the registered datasources in registration order.
func (r *Registry) DataSources() []DataSource {
	out := make([]DataSource, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p.DataSource)
	}
	return out
}

// Lookup finds the plugin registered under prefix.
func (r *Registry) Lookup(prefix string) (*Plugin, bool) {
	p, ok := r.byPrefix[prefix]
	return p, ok
}

// Resolve returns the plugins selected by a datasource filter: all plugins when
// the filter is empty, otherwise the named prefixes in filter order. Unknown
// names are dropped.
func (r *Registry) Resolve(filter []string) []*Plugin {
	if len(filter) == 0 {
		return r.Plugins()
	}
	out := make([]*Plugin, 0, len(filter))
	for _, prefix := range filter {
		if p, ok := r.byPrefix[prefix]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Decompose splits a composite id whose prefix is registered.
func (r *Registry) Decompose(composite string) (*Plugin, string, bool) {
	prefix, local, ok := Decompose(composite)
	if !ok {
		return nil, "", false
	}
	p, ok := r.byPrefix[prefix]
	if !ok {
		return nil, "", false
	}
	return p, local, true
}
