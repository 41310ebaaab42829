package integrator

import (
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

const (
	VRU  uint32 = 0
	VRX0 uint32 = 1
	VRX  uint32 = 2
)

// Model integrates its input with the explicit Euler rule, holding the input
// constant over the step: x(t+h) = x(t) + h*u.
var Model = &registry.Model{
	Name:        "integrator",
	Description: "Integrator",
	Variables: []*fmi.Variable{
		registry.Real("u", VRU, fmi.Input, registry.Start(0), ""),
		registry.Real("x0", VRX0, fmi.Parameter, registry.Start(0), ""),
		registry.Real("x", VRX, fmi.Output, nil, ""),
	},
	Init: func(s *registry.State) error {
		s.SetReal(VRX, s.Real(VRX0))
		return nil
	},
	Step: func(s *registry.State, h float64) error {
		s.SetReal(VRX, s.Real(VRX)+h*s.Real(VRU))
		return nil
	},
}

// Register registers the model with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModel(Model)
}
