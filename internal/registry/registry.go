package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

// Scheme prefixes the address of every built-in model.
const Scheme = "builtin:"

// IsBuiltin reports whether path addresses a built-in model.
func IsBuiltin(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered models of a single application instance.
type Registry struct {
	models map[string]*Model
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// RegisterModel adds m under m.Name. Registering a name twice is a
// programming error and panics.
func (r *Registry) RegisterModel(m *Model) {
	if _, exists := r.models[m.Name]; exists {
		panic(fmt.Sprintf("model with name '%s' already registered", m.Name))
	}
	slog.Debug("Registering built-in model.", "name", m.Name)
	r.models[m.Name] = m
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for n := range r.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) model(path string) (*Model, error) {
	if !IsBuiltin(path) {
		return nil, fmt.Errorf("%q is not a built-in model address", path)
	}
	name := strings.TrimPrefix(path, Scheme)
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown built-in model %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return m, nil
}

// Resolve builds the descriptor of a built-in model. It has the signature of
// fmi.ResolveFunc; the cleanup it returns is nil.
func (r *Registry) Resolve(ctx context.Context, path string) (*fmi.Descriptor, func() error, error) {
	m, err := r.model(path)
	if err != nil {
		return nil, nil, err
	}
	d := m.Descriptor(path)
	ctxlog.FromContext(ctx).Debug("Resolved built-in model.", "model", m.Name, "variables", len(d.Variables))
	return d, nil, nil
}

// Instantiate implements slave.Loader for built-in models.
func (r *Registry) Instantiate(ctx context.Context, desc *fmi.Descriptor, instanceName string, log slave.LogFunc) (slave.Steppable, error) {
	m, err := r.model(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", slave.ErrInstantiation, err)
	}
	if desc.GUID != m.GUID() {
		return nil, fmt.Errorf("%w: GUID mismatch for %s: descriptor has %s, model has %s", slave.ErrInstantiation, desc.Path, desc.GUID, m.GUID())
	}
	in, err := newInstance(m, desc, instanceName, log)
	if err != nil {
		return nil, err
	}
	return in, nil
}
