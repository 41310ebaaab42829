package registry

import (
	"fmt"

	"github.com/specialistvlad/cosimgo/internal/fmi"
)

// Model is the Go implementation of a slave.
type Model struct {
	Name        string
	Description string
	// FixedStep disables variable step support in the descriptor.
	FixedStep bool
	Variables []*fmi.Variable

	// Init runs when initialization mode is left. Start values and values
	// set during initialization are already in s.
	Init func(s *State) error
	// Step advances s from s.Time by h. s.Time is moved by the caller.
	Step func(s *State, h float64) error
	// Outputs recomputes every output from s. It runs after Init and after
	// every completed step.
	Outputs func(s *State)
}

// GUID is derived from the model name so that descriptors and instances of
// one binary agree without coordination.
func (m *Model) GUID() string {
	return fmt.Sprintf("{builtin-%s}", m.Name)
}

// Descriptor builds the descriptor served for the address path.
func (m *Model) Descriptor(path string) *fmi.Descriptor {
	vars := make([]*fmi.Variable, len(m.Variables))
	for i, v := range m.Variables {
		cp := *v
		vars[i] = &cp
	}
	caps := fmi.Capabilities{
		CanHandleVariableStep: !m.FixedStep,
		CanGetAndSetState:     true,
		CanSerializeState:     true,
	}
	d := fmi.NewDescriptor(path, m.Name, m.GUID(), fmi.CoSimulation, caps, vars)
	d.ModelName = m.Description
	return d
}

// Real declares a Real variable. A non-nil start is required for inputs and
// parameters.
func Real(name string, vr uint32, c fmi.Causality, start *float64, unit string) *fmi.Variable {
	v := &fmi.Variable{Name: name, ValueReference: vr, Type: fmi.Real, Causality: c, Variability: "continuous", Unit: unit}
	if c == fmi.Parameter {
		v.Variability = "fixed"
	}
	if start != nil {
		s := fmi.RealValue(*start).String()
		v.Start = &s
	}
	return v
}

// Start returns a pointer to f for use with Real.
func Start(f float64) *float64 { return &f }
