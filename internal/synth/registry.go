package synth

import (
	"fmt"
	"strings"

	"factsheetgen/internal/ports"
)

// Registry keeps a mapping from backend names to text-completion clients,
// so model identifiers like "openai:gpt-4o-mini" address a capability
// rather than a hardwired client.
type Registry struct {
	backends       map[string]ports.TextCompleter
	defaultBackend string
}

// NewRegistry builds an empty registry; the first registered backend
// becomes the default.
func NewRegistry() *Registry {
	return &Registry{backends: map[string]ports.TextCompleter{}}
}

// Register adds or replaces a backend implementation.
func (r *Registry) Register(name string, backend ports.TextCompleter) {
	if r.backends == nil {
		r.backends = map[string]ports.TextCompleter{}
	}
	if len(r.backends) == 0 {
		r.defaultBackend = name
	}
	r.backends[name] = backend
}

// Resolve splits a model identifier of the form "backend:model" (or bare
// "model", which addresses the default backend) into a client and the
// backend-specific model name. An empty identifier selects the default
// backend with its default model.
func (r *Registry) Resolve(modelID string) (ports.TextCompleter, string, error) {
	backend := r.defaultBackend
	model := strings.TrimSpace(modelID)
	if name, rest, ok := strings.Cut(model, ":"); ok {
		backend = name
		model = rest
	}
	client, ok := r.backends[backend]
	if !ok {
		return nil, "", fmt.Errorf("completion backend %q is not registered", backend)
	}
	return client, model, nil
}
