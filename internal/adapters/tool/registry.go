// Package tool implements the scene tool adapters behind the closed tool
// enumeration. Generation-class adapters call the language model; trim and
// delete are deterministic and never leave the process.
package tool

import (
	"sync"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

// Registry resolves tool names to adapters. The set is closed: every
// member of the tool enumeration is registered at construction and nothing
// else can be.
type Registry struct {
	mu    sync.RWMutex
	tools map[core.ToolName]core.ToolAdapter
}

// NewRegistry creates a registry with every tool adapter wired to the
// given chat client.
func NewRegistry(client core.ChatClient, logger *logging.Logger) *Registry {
	r := &Registry{tools: make(map[core.ToolName]core.ToolAdapter)}
	for _, adapter := range []core.ToolAdapter{
		newGenerateAdapter(client, logger),
		newEditAdapter(core.ToolEditScene, client, logger),
		newEditAdapter(core.ToolEditSceneWithImage, client, logger),
		newFixAdapter(client, logger),
		newAnalyzeAdapter(client, logger),
		newBrandAdapter(client, logger),
		newTrimAdapter(logger),
		newDeleteAdapter(),
	} {
		r.tools[adapter.Name()] = adapter
	}
	return r
}

// Get returns the adapter for a tool name.
func (r *Registry) Get(name core.ToolName) (core.ToolAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.tools[name]
	if !ok {
		return nil, core.ErrNotFound("tool", string(name))
	}
	return adapter, nil
}

// List returns every registered tool name.
func (r *Registry) List() []core.ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]core.ToolName, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
