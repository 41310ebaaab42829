package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
)

// ValidateRegistry checks every registered model for declarations that would
// be rejected when its descriptor is built, and for models that could never
// produce output.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		m := r.models[name]
		if m.Name == "" || strings.ContainsAny(m.Name, ": ") {
			errs = append(errs, fmt.Sprintf("model '%s': invalid name", m.Name))
		}
		d := m.Descriptor(Scheme + m.Name)
		for _, err := range d.Rejected {
			errs = append(errs, fmt.Sprintf("model '%s': %v", m.Name, err))
		}

		seen := make(map[fmi.Type]map[uint32]string)
		for _, v := range d.Variables {
			if seen[v.Type] == nil {
				seen[v.Type] = make(map[uint32]string)
			}
			if other, dup := seen[v.Type][v.ValueReference]; dup {
				errs = append(errs, fmt.Sprintf("model '%s': variables '%s' and '%s' share %s value reference %d", m.Name, other, v.Name, v.Type, v.ValueReference))
			}
			seen[v.Type][v.ValueReference] = v.Name
		}

		if len(d.ByCausality(fmi.Output)) == 0 {
			logger.Warn("Built-in model declares no outputs.", "model", m.Name)
		}
		if m.Step == nil && m.Outputs == nil {
			errs = append(errs, fmt.Sprintf("model '%s': neither Step nor Outputs is defined", m.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
