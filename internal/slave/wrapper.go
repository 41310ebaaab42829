package slave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/valuestore"
)

// Wrapper owns one instance of a slave binary.
//
// Methods other than State, Name, Descriptor, Values and LastDiagnostic must
// be called from a single goroutine.
type Wrapper struct {
	name   string
	desc   *fmi.Descriptor
	loader Loader
	values *valuestore.Store

	state atomic.Int32
	inst  Steppable
	cp    Checkpointable
	ser   Serializer

	checkpoints map[CheckpointID]*checkpoint
	nextID      CheckpointID

	diagMu sync.Mutex
	diag   string
}

// New creates an unloaded wrapper for the slave name. The name doubles as
// the instance name and must be unique within a run.
func New(name string, desc *fmi.Descriptor, loader Loader) *Wrapper {
	return &Wrapper{
		name:        name,
		desc:        desc,
		loader:      loader,
		values:      valuestore.New(),
		checkpoints: make(map[CheckpointID]*checkpoint),
	}
}

func (w *Wrapper) Name() string                { return w.name }
func (w *Wrapper) Descriptor() *fmi.Descriptor { return w.desc }

// Values returns the mirror of every value exchanged with the instance.
func (w *Wrapper) Values() *valuestore.Store { return w.values }

// State is safe to call from any goroutine.
func (w *Wrapper) State() State { return State(w.state.Load()) }

// LastDiagnostic returns the most recent warning or error the instance logged.
func (w *Wrapper) LastDiagnostic() string {
	w.diagMu.Lock()
	defer w.diagMu.Unlock()
	return w.diag
}

// CanCheckpoint reports whether Snapshot and Restore are available.
func (w *Wrapper) CanCheckpoint() bool { return w.cp != nil }

// CanSerialize reports whether checkpoints can be turned into bytes.
func (w *Wrapper) CanSerialize() bool { return w.cp != nil && w.ser != nil }

func (w *Wrapper) setState(s State) { w.state.Store(int32(s)) }

func (w *Wrapper) fail(op string, err error) error {
	w.setState(Failed)
	return w.errorf(op, native(err))
}

func (w *Wrapper) errorf(op string, err error) error {
	return &Error{Slave: w.name, Op: op, Diagnostic: w.LastDiagnostic(), Err: err}
}

func (w *Wrapper) require(op string, allowed ...State) error {
	cur := w.State()
	for _, s := range allowed {
		if cur == s {
			return nil
		}
	}
	return w.errorf(op, fmt.Errorf("%w: not allowed in state %s", ErrInvalidCallSequence, cur))
}

// logFunc forwards instance messages to the run logger and remembers the
// last warning or error as the diagnostic for failure reports.
func (w *Wrapper) logFunc(logger *slog.Logger) LogFunc {
	return func(level slog.Level, category, message string) {
		if level >= slog.LevelWarn {
			w.diagMu.Lock()
			w.diag = message
			w.diagMu.Unlock()
		}
		logger.Log(context.Background(), level, message, "category", category)
	}
}

// Instantiate loads the binary and creates the instance. Checkpointing is
// enabled when the descriptor declares it and the instance implements it;
// a serializer reporting a zero state size disables it for this slave.
func (w *Wrapper) Instantiate(ctx context.Context) error {
	const op = "Instantiate"
	if err := w.require(op, Unloaded); err != nil {
		return err
	}
	ctx, logger := ctxlog.With(ctx, "slave", w.name)

	if !w.desc.SupportsCoSimulation() {
		return w.errorf(op, fmt.Errorf("%w: %s does not implement co-simulation", ErrInstantiation, w.desc.Path))
	}
	inst, err := w.loader.Instantiate(ctx, w.desc, w.name, w.logFunc(logger))
	if err != nil {
		if !errors.Is(err, ErrInstantiation) {
			err = fmt.Errorf("%w: %w", ErrInstantiation, err)
		}
		return w.errorf(op, err)
	}
	w.inst = inst
	w.setState(Instantiated)

	if cp, ok := inst.(Checkpointable); ok && w.desc.Capabilities.CanGetAndSetState {
		w.cp = cp
		if ser, ok := inst.(Serializer); ok && w.desc.Capabilities.CanSerializeState {
			w.ser = ser
			w.probeCheckpoint(logger)
		}
	}
	logger.Debug("Slave instantiated.", "checkpoints", w.CanCheckpoint(), "serializable", w.CanSerialize())
	return nil
}

func (w *Wrapper) probeCheckpoint(logger *slog.Logger) {
	h, err := w.cp.GetState()
	if err != nil {
		logger.Warn("Slave failed to produce a probe checkpoint, disabling checkpoints.", "error", err)
		w.cp, w.ser = nil, nil
		return
	}
	size, err := w.ser.SerializedSize(h)
	if ferr := w.cp.FreeState(h); ferr != nil {
		logger.Warn("Slave failed to free the probe checkpoint.", "error", ferr)
	}
	if err != nil || size == 0 {
		logger.Warn("Slave reports an empty state, disabling checkpoints.", "size", size, "error", err)
		w.cp, w.ser = nil, nil
	}
}

// EnterInitialization moves the instance into initialization mode.
func (w *Wrapper) EnterInitialization(ctx context.Context, tStart, tEnd float64) error {
	const op = "EnterInitialization"
	if err := w.require(op, Instantiated); err != nil {
		return err
	}
	if err := w.inst.EnterInitialization(ctx, tStart, tEnd); err != nil {
		return w.fail(op, err)
	}
	w.setState(Initializing)
	return nil
}

// ExitInitialization leaves initialization mode; the instance is then ready
// to step.
func (w *Wrapper) ExitInitialization(ctx context.Context) error {
	const op = "ExitInitialization"
	if err := w.require(op, Initializing); err != nil {
		return err
	}
	if err := w.inst.ExitInitialization(ctx); err != nil {
		return w.fail(op, err)
	}
	w.setState(Ready)
	return nil
}

// SetValue writes v to the variable (v.Type, vr).
func (w *Wrapper) SetValue(vr uint32, v fmi.Value) error {
	const op = "SetValue"
	if err := w.require(op, Initializing, Ready, Stepping); err != nil {
		return err
	}
	vrs := []uint32{vr}
	var err error
	switch v.Type {
	case fmi.Real:
		err = w.inst.SetReal(vrs, []float64{v.Real})
	case fmi.Integer:
		err = w.inst.SetInteger(vrs, []int32{v.Int})
	case fmi.Boolean:
		err = w.inst.SetBoolean(vrs, []bool{v.Bool})
	case fmi.String:
		err = w.inst.SetString(vrs, []string{v.Str})
	default:
		return w.errorf(op, fmt.Errorf("unknown value type %s", v.Type))
	}
	if err != nil {
		return w.fail(op, fmt.Errorf("%s vr=%d: %w", v.Type, vr, err))
	}
	w.values.Set(vr, v)
	return nil
}

// GetValue reads the variable (t, vr).
func (w *Wrapper) GetValue(t fmi.Type, vr uint32) (fmi.Value, error) {
	const op = "GetValue"
	if err := w.require(op, Initializing, Ready, Stepping); err != nil {
		return fmi.Value{}, err
	}
	vrs := []uint32{vr}
	var (
		v   = fmi.Value{Type: t}
		err error
	)
	switch t {
	case fmi.Real:
		buf := make([]float64, 1)
		err = w.inst.GetReal(vrs, buf)
		v.Real = buf[0]
	case fmi.Integer:
		buf := make([]int32, 1)
		err = w.inst.GetInteger(vrs, buf)
		v.Int = buf[0]
	case fmi.Boolean:
		buf := make([]bool, 1)
		err = w.inst.GetBoolean(vrs, buf)
		v.Bool = buf[0]
	case fmi.String:
		buf := make([]string, 1)
		err = w.inst.GetString(vrs, buf)
		v.Str = buf[0]
	default:
		return fmi.Value{}, w.errorf(op, fmt.Errorf("unknown value type %s", t))
	}
	if err != nil {
		return fmi.Value{}, w.fail(op, fmt.Errorf("%s vr=%d: %w", t, vr, err))
	}
	w.values.Set(vr, v)
	return v, nil
}

// SetReal is SetValue for Real variables.
func (w *Wrapper) SetReal(vr uint32, v float64) error {
	return w.SetValue(vr, fmi.RealValue(v))
}

// GetReal is GetValue for Real variables.
func (w *Wrapper) GetReal(vr uint32) (float64, error) {
	v, err := w.GetValue(fmi.Real, vr)
	return v.Real, err
}

// DoStep advances the instance from t by h.
//
// A rejection is returned as StepRejected with a nil error when the binary
// declares variable step support; otherwise, and for every other non-completed
// outcome, the instance is Failed and the error matches ErrNative.
func (w *Wrapper) DoStep(ctx context.Context, t, h float64) (StepStatus, error) {
	const op = "DoStep"
	if err := w.require(op, Ready, Stepping); err != nil {
		return StepFailed, err
	}
	status, err := w.inst.DoStep(ctx, t, h)
	if err != nil {
		return StepFailed, w.fail(op, fmt.Errorf("t=%g h=%g: %w", t, h, err))
	}

	switch status {
	case StepCompleted:
		w.setState(Stepping)
		return StepCompleted, nil
	case StepRejected:
		if !w.desc.Capabilities.CanHandleVariableStep {
			return StepFailed, w.fail(op, fmt.Errorf("t=%g h=%g: step rejected by a slave without variable step support", t, h))
		}
		w.setState(Stepping)
		return StepRejected, nil
	case StepPending:
		cerr := w.inst.CancelStep()
		return StepFailed, w.fail(op, errors.Join(fmt.Errorf("t=%g h=%g: asynchronous steps are not supported", t, h), cerr))
	default:
		return StepFailed, w.fail(op, fmt.Errorf("t=%g h=%g: step failed", t, h))
	}
}

// Close frees every outstanding checkpoint, terminates the instance if it
// completed initialization and releases it. It is safe to call more than
// once and in any state.
func (w *Wrapper) Close(ctx context.Context) error {
	if w.inst == nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx).With("slave", w.name)

	var errs []error
	if n := len(w.checkpoints); n > 0 {
		logger.Debug("Freeing outstanding checkpoints.", "count", n)
		for id, c := range w.checkpoints {
			if err := w.cp.FreeState(c.handle); err != nil {
				errs = append(errs, fmt.Errorf("free checkpoint %d: %w", id, err))
			}
			delete(w.checkpoints, id)
		}
	}

	switch w.State() {
	case Ready, Stepping:
		if err := w.inst.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("terminate: %w", err))
		}
	}
	w.inst.Free()
	w.inst, w.cp, w.ser = nil, nil, nil

	if w.State() != Failed {
		w.setState(Terminated)
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("Slave did not shut down cleanly.", "error", err)
		return w.errorf("Close", native(err))
	}
	logger.Debug("Slave released.")
	return nil
}
