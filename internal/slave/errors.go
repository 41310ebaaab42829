package slave

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCallSequence   = errors.New("invalid call sequence")
	ErrInstantiation         = errors.New("instantiation failed")
	ErrNative                = errors.New("native failure")
	ErrCheckpointUnsupported = errors.New("checkpoints not supported")
	ErrUnknownCheckpoint     = errors.New("unknown checkpoint")
)

// Error is returned by every Wrapper method. It names the offending call and
// carries the last diagnostic the binary logged before failing.
type Error struct {
	Slave      string
	Op         string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("slave %q: %s: %v", e.Slave, e.Op, e.Err)
	if e.Diagnostic != "" {
		msg += fmt.Sprintf(" (last message: %s)", e.Diagnostic)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// native wraps a binary-reported error so that it matches ErrNative.
func native(err error) error {
	if err == nil {
		return ErrNative
	}
	if errors.Is(err, ErrNative) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNative, err)
}
