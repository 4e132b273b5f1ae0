// Package shortcuts binds named editor actions to key combinations and gates
// them on the current editor state.
package shortcuts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownAction is returned when triggering an action nobody registered.
	ErrUnknownAction = errors.New("unknown shortcut action")
	// ErrDisabled is returned when the action exists but is currently disabled.
	ErrDisabled = errors.New("shortcut action disabled")
)

// Action is a named, gated operation. Run returns a short label for what it
// did, which Trigger hands back to the caller.
type Action struct {
	Name    string
	Keys    []string
	Enabled func() bool // nil means always enabled
	Run     func(ctx context.Context) string
}

// Binding describes a registered action for display.
type Binding struct {
	Name    string   `json:"name"`
	Keys    []string `json:"keys"`
	Enabled bool     `json:"enabled"`
}

// Registrar holds the actions of one editing session.
type Registrar struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistrar returns an empty Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{actions: make(map[string]Action)}
}

// Register adds or replaces an action.
func (r *Registrar) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.Name] = a
}

// Unregister removes an action.
func (r *Registrar) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actions, name)
}

// Trigger runs the named action if it is registered and enabled and returns
// the label its Run reported.
func (r *Registrar) Trigger(ctx context.Context, name string) (string, error) {
	r.mu.RLock()
	a, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownAction)
	}
	if a.Enabled != nil && !a.Enabled() {
		return "", fmt.Errorf("%s: %w", name, ErrDisabled)
	}
	return a.Run(ctx), nil
}

// Bindings lists the registered actions sorted by name with their current
// enabled state.
func (r *Registrar) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, Binding{
			Name:    a.Name,
			Keys:    a.Keys,
			Enabled: a.Enabled == nil || a.Enabled(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
