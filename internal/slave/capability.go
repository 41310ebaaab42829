package slave

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/cosimgo/internal/fmi"
)

// Steppable is the capability every slave instance has. Slice arguments are
// parallel: vrs[i] addresses values[i].
type Steppable interface {
	EnterInitialization(ctx context.Context, tStart, tEnd float64) error
	ExitInitialization(ctx context.Context) error

	SetReal(vrs []uint32, values []float64) error
	GetReal(vrs []uint32, values []float64) error
	SetInteger(vrs []uint32, values []int32) error
	GetInteger(vrs []uint32, values []int32) error
	SetBoolean(vrs []uint32, values []bool) error
	GetBoolean(vrs []uint32, values []bool) error
	SetString(vrs []uint32, values []string) error
	GetString(vrs []uint32, values []string) error

	// DoStep advances the instance from t by h. It may block for as long as
	// the binary needs.
	DoStep(ctx context.Context, t, h float64) (StepStatus, error)
	CancelStep() error
	Terminate() error
	// Free releases the instance. It is called exactly once.
	Free()
}

// StateHandle is an opaque checkpoint owned by the instance that produced it.
type StateHandle any

// Checkpointable instances can capture and restore their full internal state.
type Checkpointable interface {
	GetState() (StateHandle, error)
	SetState(h StateHandle) error
	FreeState(h StateHandle) error
}

// Serializer instances can turn checkpoints into bytes and back.
type Serializer interface {
	// SerializedSize returns 0 when serialization is not really supported.
	SerializedSize(h StateHandle) (int, error)
	Serialize(h StateHandle) ([]byte, error)
	Deserialize(data []byte) (StateHandle, error)
}

// LogFunc receives the diagnostic messages of an instance.
type LogFunc func(level slog.Level, category, message string)

// Loader creates instances of slave binaries.
type Loader interface {
	// Instantiate creates an instance named instanceName. It fails with
	// ErrInstantiation when the binary cannot be loaded or its GUID does not
	// match desc.GUID.
	Instantiate(ctx context.Context, desc *fmi.Descriptor, instanceName string, log LogFunc) (Steppable, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, desc *fmi.Descriptor, instanceName string, log LogFunc) (Steppable, error)

func (f LoaderFunc) Instantiate(ctx context.Context, desc *fmi.Descriptor, instanceName string, log LogFunc) (Steppable, error) {
	return f(ctx, desc, instanceName, log)
}
