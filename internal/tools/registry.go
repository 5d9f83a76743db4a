package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

// Handler executes a tool call with loosely-typed arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool pairs a JSON Schema definition with its handler.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	Handler     Handler
}

// Registry holds the tool surface. Registration happens once at startup;
// after that the registry is read-only.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names panic: that is a wiring bug.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", t.Name))
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Invoke runs the named tool.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q: %w", name, domain.ErrInvalidArgument)
	}
	if args == nil {
		args = map[string]any{}
	}
	return t.Handler(ctx, args)
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
