package gain

import (
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

const (
	VRU uint32 = 0
	VRK uint32 = 1
	VRB uint32 = 2
	VRY uint32 = 3
)

// Model computes y = k*u + b from the input held during the last step.
// With the defaults it passes its input through unchanged.
var Model = &registry.Model{
	Name:        "gain",
	Description: "Affine gain",
	Variables: []*fmi.Variable{
		registry.Real("u", VRU, fmi.Input, registry.Start(0), ""),
		registry.Real("k", VRK, fmi.Parameter, registry.Start(1), ""),
		registry.Real("b", VRB, fmi.Parameter, registry.Start(0), ""),
		registry.Real("y", VRY, fmi.Output, nil, ""),
	},
	Outputs: func(s *registry.State) {
		s.SetReal(VRY, s.Real(VRK)*s.Real(VRU)+s.Real(VRB))
	},
}

// Register registers the model with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModel(Model)
}
