package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how values are exchanged between slaves.
type Mode int

const (
	Jacobi Mode = iota
	Seidel
	Newton
)

func (m Mode) String() string {
	switch m {
	case Jacobi:
		return "jacobi"
	case Seidel:
		return "seidel"
	case Newton:
		return "newton"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names printed by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Jacobi, Seidel, Newton} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown master mode %q (want jacobi, seidel or newton)", s)
}

// ErrorControl selects local error estimation.
type ErrorControl int

const (
	ErrorControlNone ErrorControl = iota
	// ErrorControlMonitor estimates and logs the error without acting on it.
	ErrorControlMonitor
	// ErrorControlRichardsonAdjust shrinks and grows the step size from the
	// estimate.
	ErrorControlRichardsonAdjust
)

func (e ErrorControl) String() string {
	switch e {
	case ErrorControlNone:
		return "none"
	case ErrorControlMonitor:
		return "monitor"
	case ErrorControlRichardsonAdjust:
		return "richardson_adjust"
	default:
		return fmt.Sprintf("ErrorControl(%d)", int(e))
	}
}

// ParseErrorControl accepts the names printed by ErrorControl.String.
func ParseErrorControl(s string) (ErrorControl, error) {
	for _, e := range []ErrorControl{ErrorControlNone, ErrorControlMonitor, ErrorControlRichardsonAdjust} {
		if strings.EqualFold(s, e.String()) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown error control %q (want none, monitor or richardson_adjust)", s)
}

// Settings are the master parameters of one run.
type Settings struct {
	StartTime float64
	StopTime  float64

	StepSize      float64
	MinStepSize   float64
	MaxStepSize   float64
	FallbackLimit float64

	RelTol        float64
	AbsTol        float64
	MaxIterations int

	Mode           Mode
	ErrorControl   ErrorControl
	AdjustStepSize bool

	MinOutputInterval   float64
	PreventOverstepping bool
}

// DefaultSettings returns the settings used for every field a project
// leaves out.
func DefaultSettings() Settings {
	return Settings{
		StartTime:     0,
		StopTime:      1,
		StepSize:      1e-3,
		MinStepSize:   1e-6,
		MaxStepSize:   1e-1,
		FallbackLimit: 1e-5,
		RelTol:        1e-4,
		AbsTol:        1e-6,
		MaxIterations: 10,
		Mode:          Jacobi,
		ErrorControl:  ErrorControlNone,
	}
}

// Validate reports every inconsistent field at once.
func (s Settings) Validate() error {
	var errs []string
	if !(s.StopTime > s.StartTime) {
		errs = append(errs, fmt.Sprintf("stop time %g must be greater than start time %g", s.StopTime, s.StartTime))
	}
	if !(s.MinStepSize > 0) {
		errs = append(errs, fmt.Sprintf("min step size %g must be positive", s.MinStepSize))
	}
	if !(s.MinStepSize <= s.StepSize && s.StepSize <= s.MaxStepSize) {
		errs = append(errs, fmt.Sprintf("step sizes must satisfy min <= step <= max, got %g <= %g <= %g", s.MinStepSize, s.StepSize, s.MaxStepSize))
	}
	if !(s.FallbackLimit >= 0) {
		errs = append(errs, fmt.Sprintf("fallback limit %g must not be negative", s.FallbackLimit))
	}
	if !(s.RelTol > 0) || !(s.AbsTol > 0) {
		errs = append(errs, fmt.Sprintf("tolerances must be positive, got rel %g abs %g", s.RelTol, s.AbsTol))
	}
	if s.MaxIterations < 1 {
		errs = append(errs, fmt.Sprintf("max iterations %d must be at least 1", s.MaxIterations))
	} else if s.Mode == Newton && s.MaxIterations < 2 {
		errs = append(errs, fmt.Sprintf("max iterations %d must be at least 2 in newton mode", s.MaxIterations))
	}
	if !(s.MinOutputInterval >= 0) {
		errs = append(errs, fmt.Sprintf("min output interval %g must not be negative", s.MinOutputInterval))
	}
	if s.Mode < Jacobi || s.Mode > Newton {
		errs = append(errs, fmt.Sprintf("unknown master mode %s", s.Mode))
	}
	if s.ErrorControl < ErrorControlNone || s.ErrorControl > ErrorControlRichardsonAdjust {
		errs = append(errs, fmt.Sprintf("unknown error control %s", s.ErrorControl))
	}
	if len(errs) > 0 {
		return errors.New("simulation settings are invalid:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// needsCheckpoints reports whether the settings cannot work without
// checkpoints on every slave.
func (s Settings) needsCheckpoints() bool {
	return s.Mode == Newton || s.ErrorControl != ErrorControlNone
}
