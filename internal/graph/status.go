package graph

import "fmt"

// Status is the classification of one edge.
type Status int

const (
	StatusOK Status = iota
	// StatusUndetermined means a descriptor needed to judge the edge is not
	// available.
	StatusUndetermined
	StatusTargetNotAnInlet
	StatusSourceNotAnOutlet
	StatusTargetAlreadyConnected
	// StatusInvalid covers unknown slaves, unknown variables and incompatible
	// types.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUndetermined:
		return "undetermined"
	case StatusTargetNotAnInlet:
		return "target not an inlet"
	case StatusSourceNotAnOutlet:
		return "source not an outlet"
	case StatusTargetAlreadyConnected:
		return "target already connected"
	case StatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Fatal reports whether the status must stop a run before it starts.
func (s Status) Fatal() bool {
	return s != StatusOK && s != StatusUndetermined
}

// Result is the classification of one edge.
type Result struct {
	Edge   Edge
	Status Status
	// Reason is a human readable explanation; empty for StatusOK.
	Reason string
}
