package scheduler

import "fmt"

// RunState is the state of a whole run.
type RunState int32

const (
	Configuring RunState = iota
	Initializing
	Running
	Completed
	Failed
)

func (s RunState) String() string {
	switch s {
	case Configuring:
		return "configuring"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("RunState(%d)", int32(s))
	}
}

func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Clock is the simulation clock. Time only moves forward and only the
// scheduler moves it.
type Clock struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Time     float64 `json:"time"`
	StepSize float64 `json:"step_size"`
}

// Stats counts what the main loop did.
type Stats struct {
	// Steps is the number of accepted macro steps.
	Steps int `json:"steps"`
	// Rejected counts attempts that were thrown away, whether a slave
	// refused the step, the error estimate was too large or a fixed point
	// was not found.
	Rejected   int `json:"rejected"`
	Shrinks    int `json:"shrinks"`
	Iterations int `json:"iterations"`
}

// Status is a consistent snapshot of a running scheduler.
type Status struct {
	State RunState `json:"state"`
	Clock Clock    `json:"clock"`
	Stats Stats    `json:"stats"`
}
