package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/morriswong/datachat/internal/assistant"
)

// Func executes one tool call with its decoded arguments
type Func func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named callback the remote assistant may invoke, declared to the
// service with JSON-schema parameters
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Fn          Func
}

// Registry maps function names to registered tools. Lookup is by exact name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Fn == nil {
		return fmt.Errorf("tool requires a name and a function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Get returns a tool by exact name match
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the function declarations to advertise on the
// remote assistant
func (r *Registry) Definitions() []assistant.FunctionTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]assistant.FunctionTool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, assistant.FunctionTool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}
