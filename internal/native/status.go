package native

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/cosimgo/internal/slave"
)

// status is fmi2Status.
type status int32

const (
	statusOK status = iota
	statusWarning
	statusDiscard
	statusError
	statusFatal
	statusPending
)

func (s status) String() string {
	switch s {
	case statusOK:
		return "fmi2OK"
	case statusWarning:
		return "fmi2Warning"
	case statusDiscard:
		return "fmi2Discard"
	case statusError:
		return "fmi2Error"
	case statusFatal:
		return "fmi2Fatal"
	case statusPending:
		return "fmi2Pending"
	default:
		return fmt.Sprintf("fmi2Status(%d)", int32(s))
	}
}

// level maps a logged status onto a slog level.
func (s status) level() slog.Level {
	switch s {
	case statusOK:
		return slog.LevelDebug
	case statusWarning, statusPending:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// check turns the result of a non-step call into an error.
func check(fn string, s status) error {
	if s == statusOK || s == statusWarning {
		return nil
	}
	return fmt.Errorf("%s returned %s", fn, s)
}

// stepStatus maps the result of fmi2DoStep.
func stepStatus(s status) (slave.StepStatus, error) {
	switch s {
	case statusOK, statusWarning:
		return slave.StepCompleted, nil
	case statusDiscard:
		return slave.StepRejected, nil
	case statusPending:
		return slave.StepPending, nil
	default:
		return slave.StepFailed, fmt.Errorf("fmi2DoStep returned %s", s)
	}
}
