package provider

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps provider names and mail domains to providers. It is filled
// once at start-up and read for the rest of the process.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Provider
	order  []Provider
}

// NewRegistry returns a registry holding the given providers.
// It panics on duplicate names.
func NewRegistry(list ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider)}
	for _, p := range list {
		r.MustRegister(p)
	}
	return r
}

// Register adds p under its lower-cased name.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("register provider: nil provider")
	}
	key := strings.ToLower(strings.TrimSpace(p.Name()))
	if key == "" {
		return fmt.Errorf("register provider: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[key]; dup {
		return fmt.Errorf("register provider: %q already registered", key)
	}
	r.byName[key] = p
	r.order = append(r.order, p)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, p := range r.order {
		names = append(names, p.Name())
	}
	return names
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Provider(nil), r.order...)
}

// ByName looks a provider up by case-insensitive name.
func (r *Registry) ByName(name string) (Provider, error) {
	const op = "resolve provider"
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, resolutionError(op, "missing provider name")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[key]
	if !ok {
		return nil, resolutionError(op, "unrecognized provider name %q", name)
	}
	return p, nil
}

// ByEmail returns the first provider, in registration order, serving the
// domain of addr.
func (r *Registry) ByEmail(addr string) (Provider, error) {
	const op = "resolve provider"
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, resolutionError(op, "missing provider email")
	}

	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return nil, resolutionError(op, "unrecognized provider email %q", addr)
	}
	domain := addr[at+1:]

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.order {
		if servesDomain(p, domain) {
			return p, nil
		}
	}
	return nil, resolutionError(op, "unrecognized provider email %q", addr)
}

// Resolve treats identifiers containing "@" as email addresses and
// everything else as provider names.
func (r *Registry) Resolve(identifier string) (Provider, error) {
	if strings.Contains(identifier, "@") {
		return r.ByEmail(identifier)
	}
	return r.ByName(identifier)
}
