package tools

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// qualifiedNameRegex validates the "backend.tool" qualified form, the same
// shape pkg/mcp uses for "server.tool" routing.
var qualifiedNameRegex = regexp.MustCompile(`^([\w][\w-]*)\.([\w][\w-]*)$`)

// SplitQualifiedName splits "backend.tool" into its two parts.
func SplitQualifiedName(name string) (backend, tool string, err error) {
	m := qualifiedNameRegex.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("invalid qualified tool name %q: expected 'backend.tool'", name)
	}
	return m[1], m[2], nil
}

// NormalizeToolName converts the "backend__tool" double-underscore form
// (used by function-calling APIs that reject dots in identifiers) back to
// the canonical "backend.tool" form.
func NormalizeToolName(name string) string {
	if strings.Contains(name, "__") && !strings.Contains(name, ".") {
		return strings.Replace(name, "__", ".", 1)
	}
	return name
}

// backendEntry pairs a registered Executor with the name it was registered
// under, used to route an Execute call back to its owner.
type backendEntry struct {
	name     string
	executor Executor
}

// Registry aggregates tools from multiple backends under a single
// namespace. A bare tool name that collides across backends is resolved in
// favor of the lexicographically first backend name; the rest are dropped
// and the collision is logged once.
type Registry struct {
	mu       sync.RWMutex
	backends []*backendEntry

	// exposedNameOwner maps the name the LLM sees back to the backend that
	// serves it, rebuilt on every ListTools call.
	exposedNameOwner map[string]string
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{exposedNameOwner: make(map[string]string)}
}

// Register adds a named backend. name is used as the qualification prefix
// if one of its tools collides with another backend's tool of the same
// bare name.
func (r *Registry) Register(name string, executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends = append(r.backends, &backendEntry{name: name, executor: executor})
}

type candidate struct {
	backend string
	def     Definition
}

// ListTools returns the combined, de-duplicated tool set across every
// registered backend, exposed under bare (unqualified) names. Backends are
// consulted in lexicographic order by name; when two backends register a
// tool of the same bare name, the lexicographically first backend's tool
// wins and the rest are dropped, with the collision logged exactly once.
// The owner map used by Execute is rebuilt as a side effect, so ListTools
// must be called at least once before routing calls.
func (r *Registry) ListTools(ctx context.Context) ([]Definition, error) {
	r.mu.RLock()
	backends := append([]*backendEntry{}, r.backends...)
	r.mu.RUnlock()

	sort.Slice(backends, func(i, j int) bool { return backends[i].name < backends[j].name })

	var candidates []candidate
	for _, b := range backends {
		defs, err := b.executor.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tools for backend %q: %w", b.name, err)
		}
		for _, d := range defs {
			candidates = append(candidates, candidate{backend: b.name, def: d})
		}
	}

	owner := make(map[string]string, len(candidates))
	out := make([]Definition, 0, len(candidates))
	warned := make(map[string]bool)
	for _, c := range candidates {
		if existing, ok := owner[c.def.Name]; ok {
			if !warned[c.def.Name] {
				slog.Warn("tool name collision across backends, keeping the lexicographically first backend's tool",
					"tool", c.def.Name, "kept_backend", existing, "dropped_backend", c.backend)
				warned[c.def.Name] = true
			}
			continue
		}
		out = append(out, c.def)
		owner[c.def.Name] = c.backend
	}

	r.mu.Lock()
	r.exposedNameOwner = owner
	r.mu.Unlock()

	return out, nil
}

// Execute routes call to the backend that owns its exposed name, stripping
// a qualification prefix before calling the backend so each Executor still
// sees its own bare tool names.
func (r *Registry) Execute(ctx context.Context, call Call) (Result, error) {
	name := NormalizeToolName(call.Name)

	r.mu.RLock()
	owner, ok := r.exposedNameOwner[name]
	var backend *backendEntry
	if ok {
		for _, b := range r.backends {
			if b.name == owner {
				backend = b
				break
			}
		}
	}
	r.mu.RUnlock()

	if backend == nil {
		return Result{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("unknown tool: %s", call.Name), IsError: true}, nil
	}

	unqualified := call
	unqualified.Name = strings.TrimPrefix(name, owner+".")

	result, err := backend.executor.Execute(ctx, unqualified)
	if err != nil {
		return Result{}, fmt.Errorf("execute tool %q on backend %q: %w", call.Name, owner, err)
	}
	result.Name = call.Name
	result.Content = NormalizeResultContent(result.Content)
	return result, nil
}

// Close closes every registered backend, returning the first error
// encountered (after attempting to close all of them).
func (r *Registry) Close() error {
	r.mu.RLock()
	backends := append([]*backendEntry{}, r.backends...)
	r.mu.RUnlock()

	var firstErr error
	for _, b := range backends {
		if err := b.executor.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close backend %q: %w", b.name, err)
		}
	}
	return firstErr
}
