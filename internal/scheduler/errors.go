package scheduler

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/cosimgo/internal/slave"
)

// Failure kinds. Every *Failure matches exactly one of them.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrInitialization = errors.New("initialization error")
	ErrStepRejected   = errors.New("step rejected")
	ErrConvergence    = errors.New("convergence failure")
	ErrNative         = slave.ErrNative
	ErrAborted        = errors.New("run aborted")
)

// Failure is the diagnostic trace of a fatal run error.
type Failure struct {
	// Step is the 1-based macro step; 0 means initialization.
	Step     int
	Time     float64
	StepSize float64
	// Slave is empty when no single slave is to blame.
	Slave string
	Kind  error
	// Native is the last message the slave logged, if any.
	Native string
	Err    error
}

func (f *Failure) Error() string {
	where := "initialization"
	if f.Step > 0 {
		where = fmt.Sprintf("macro step %d at t=%g (h=%g)", f.Step, f.Time, f.StepSize)
	}
	if f.Err == nil {
		return fmt.Sprintf("%s failed: %v", where, f.Kind)
	}
	if errors.Is(f.Err, f.Kind) {
		return fmt.Sprintf("%s failed: %v", where, f.Err)
	}
	return fmt.Sprintf("%s failed: %v: %v", where, f.Kind, f.Err)
}

func (f *Failure) Unwrap() []error { return []error{f.Kind, f.Err} }

// slaveFault attributes an error that is not a *slave.Error to a slave.
type slaveFault struct {
	slave string
	err   error
}

func (e *slaveFault) Error() string { return fmt.Sprintf("slave %q: %v", e.slave, e.err) }
func (e *slaveFault) Unwrap() error { return e.err }

// kindOf classifies err into one of the failure kinds.
func kindOf(err error) error {
	for _, kind := range []error{ErrAborted, ErrConfiguration, ErrInitialization, ErrConvergence, ErrStepRejected} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrNative
}

// blame returns the slave an error is attributed to and its last message.
func blame(err error) (name, diagnostic string) {
	var se *slave.Error
	if errors.As(err, &se) {
		return se.Slave, se.Diagnostic
	}
	var sf *slaveFault
	if errors.As(err, &sf) {
		return sf.slave, ""
	}
	return "", ""
}
