package slave

import "fmt"

// State is the lifecycle state of a slave instance.
type State int32

const (
	Unloaded State = iota
	Instantiated
	Initializing
	Ready
	Stepping
	Terminated
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Instantiated:
		return "instantiated"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Stepping:
		return "stepping"
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// StepStatus is the outcome of one communication step.
type StepStatus int

const (
	StepCompleted StepStatus = iota
	// StepRejected means the slave refused the step size and kept its state
	// at the start of the step.
	StepRejected
	StepFailed
	// StepPending is reported by binaries that step asynchronously.
	StepPending
)

func (s StepStatus) String() string {
	switch s {
	case StepCompleted:
		return "completed"
	case StepRejected:
		return "rejected"
	case StepFailed:
		return "failed"
	case StepPending:
		return "pending"
	default:
		return fmt.Sprintf("StepStatus(%d)", int(s))
	}
}
