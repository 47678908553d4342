package addon

import (
	"fmt"
	"sort"

	"flaghook/internal/domain/entity"
)

// Registry is the fixed set of addon providers, keyed by name. It is
// built once at startup and never mutated.
type Registry struct {
	addons map[string]Addon
}

// NewRegistry constructs every built-in provider.
func NewRegistry(deps Dependencies, slackAppOpts ...SlackAppOption) (*Registry, error) {
	webhook, err := NewWebhook(deps)
	if err != nil {
		return nil, err
	}
	slackWebhook, err := NewSlack(deps)
	if err != nil {
		return nil, err
	}
	slackApp, err := NewSlackApp(deps, slackAppOpts...)
	if err != nil {
		return nil, err
	}
	teams, err := NewTeams(deps)
	if err != nil {
		slackApp.Close()
		return nil, err
	}
	datadog, err := NewDatadog(deps)
	if err != nil {
		slackApp.Close()
		return nil, err
	}
	return NewRegistryOf(webhook, slackWebhook, slackApp, teams, datadog)
}

// NewRegistryOf builds a registry from the given addons. Names must be
// unique.
func NewRegistryOf(addons ...Addon) (*Registry, error) {
	r := &Registry{addons: make(map[string]Addon, len(addons))}
	for _, a := range addons {
		if _, dup := r.addons[a.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate provider %q", ErrInvalidDefinition, a.Name())
		}
		r.addons[a.Name()] = a
	}
	return r, nil
}

func (r *Registry) Get(name string) (Addon, bool) {
	a, ok := r.addons[name]
	return a, ok
}

// Names returns provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.addons))
	for name := range r.addons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Addons() []Addon {
	out := make([]Addon, 0, len(r.addons))
	for _, name := range r.Names() {
		out = append(out, r.addons[name])
	}
	return out
}

func (r *Registry) Definitions() []entity.AddonDefinition {
	out := make([]entity.AddonDefinition, 0, len(r.addons))
	for _, a := range r.Addons() {
		out = append(out, a.Definition())
	}
	return out
}

// Health reports breaker state for providers that track it.
func (r *Registry) Health() []ProviderHealth {
	var out []ProviderHealth
	for _, a := range r.Addons() {
		if h, ok := a.(HealthReporter); ok {
			out = append(out, h.Health())
		}
	}
	return out
}

// Close releases resources held by providers.
func (r *Registry) Close() {
	for _, a := range r.addons {
		if c, ok := a.(Closer); ok {
			c.Close()
		}
	}
}
