package constant

import (
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Value references of the constant model.
const (
	VRY     uint32 = 0
	VRValue uint32 = 1
)

// Model holds its output at the value of a parameter.
var Model = &registry.Model{
	Name:        "constant",
	Description: "Constant source",
	Variables: []*fmi.Variable{
		registry.Real("y", VRY, fmi.Output, nil, ""),
		registry.Real("value", VRValue, fmi.Parameter, registry.Start(1), ""),
	},
	Outputs: func(s *registry.State) {
		s.SetReal(VRY, s.Real(VRValue))
	},
}

// Register registers the model with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModel(Model)
}
