package sine

import (
	"math"

	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

const (
	VRAmplitude uint32 = 0
	VRFrequency uint32 = 1
	VRPhase     uint32 = 2
	VROffset    uint32 = 3
	VRY         uint32 = 4
)

// Model is a sine source evaluated exactly at the communication points.
var Model = &registry.Model{
	Name:        "sine",
	Description: "Sine source",
	Variables: []*fmi.Variable{
		registry.Real("amplitude", VRAmplitude, fmi.Parameter, registry.Start(1), ""),
		registry.Real("frequency", VRFrequency, fmi.Parameter, registry.Start(1), "Hz"),
		registry.Real("phase", VRPhase, fmi.Parameter, registry.Start(0), "rad"),
		registry.Real("offset", VROffset, fmi.Parameter, registry.Start(0), ""),
		registry.Real("y", VRY, fmi.Output, nil, ""),
	},
	Outputs: func(s *registry.State) {
		w := 2 * math.Pi * s.Real(VRFrequency)
		s.SetReal(VRY, s.Real(VRAmplitude)*math.Sin(w*s.Time+s.Real(VRPhase))+s.Real(VROffset))
	},
}

// Register registers the model with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModel(Model)
}
