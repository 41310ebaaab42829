package testutil

import (
	"time"

	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/registry"
)

// SleeperModule registers the built-in model "sleeper": every step blocks
// for a fixed wall-clock duration and then reports its completion time on
// Steps. Its output y is the simulation time it has reached.
type SleeperModule struct {
	Sleep time.Duration
	// Steps receives the end time of each completed step when non-nil.
	// Sends never block.
	Steps chan float64
}

// Register registers the "sleeper" model.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.RegisterModel(&registry.Model{
		Name:        "sleeper",
		Description: "Wall-clock delay for cancellation tests",
		Variables: []*fmi.Variable{
			registry.Real("y", 0, fmi.Output, nil, "s"),
		},
		Step: func(s *registry.State, h float64) error {
			time.Sleep(m.Sleep)
			if m.Steps != nil {
				select {
				case m.Steps <- s.Time + h:
				default:
				}
			}
			return nil
		},
		Outputs: func(s *registry.State) {
			s.SetReal(0, s.Time)
		},
	})
}
