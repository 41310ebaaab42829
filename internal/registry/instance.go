package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

// instance runs a Model in-process. It implements slave.Steppable,
// slave.Checkpointable and slave.Serializer.
type instance struct {
	model *Model
	name  string
	log   slave.LogFunc
	state *State
	// writable holds the (type, vr) pairs the master may set.
	writable map[fmi.Type]map[uint32]bool
	readable map[fmi.Type]map[uint32]bool
}

func newInstance(m *Model, desc *fmi.Descriptor, name string, log slave.LogFunc) (*instance, error) {
	if log == nil {
		log = func(slog.Level, string, string) {}
	}
	in := &instance{
		model:    m,
		name:     name,
		log:      log,
		state:    newState(),
		writable: make(map[fmi.Type]map[uint32]bool),
		readable: make(map[fmi.Type]map[uint32]bool),
	}
	for _, v := range desc.Variables {
		if in.readable[v.Type] == nil {
			in.readable[v.Type] = make(map[uint32]bool)
			in.writable[v.Type] = make(map[uint32]bool)
		}
		in.readable[v.Type][v.ValueReference] = true
		if v.Causality == fmi.Input || v.Causality == fmi.Parameter {
			in.writable[v.Type][v.ValueReference] = true
		}
		if v.Start == nil {
			continue
		}
		start, err := fmi.ParseValue(v.Type, *v.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %s: %w", slave.ErrInstantiation, v.Name, err)
		}
		in.put(v.ValueReference, start)
	}
	return in, nil
}

func (in *instance) put(vr uint32, v fmi.Value) {
	switch v.Type {
	case fmi.Real:
		in.state.Reals[vr] = v.Real
	case fmi.Integer:
		in.state.Integers[vr] = v.Int
	case fmi.Boolean:
		in.state.Booleans[vr] = v.Bool
	default:
		in.state.Strings[vr] = v.Str
	}
}

func (in *instance) check(t fmi.Type, vrs []uint32, n int, set bool) error {
	if len(vrs) != n {
		return fmt.Errorf("%d value references but %d values", len(vrs), n)
	}
	table := in.readable
	if set {
		table = in.writable
	}
	for _, vr := range vrs {
		if !table[t][vr] {
			if set && in.readable[t][vr] {
				in.log(slog.LevelError, "logStatusError", fmt.Sprintf("%s variable %d cannot be set", t, vr))
				return fmt.Errorf("%s variable %d is not an input or parameter", t, vr)
			}
			return fmt.Errorf("unknown %s value reference %d", t, vr)
		}
	}
	return nil
}

func (in *instance) EnterInitialization(ctx context.Context, tStart, tEnd float64) error {
	in.state.Time = tStart
	return nil
}

func (in *instance) ExitInitialization(ctx context.Context) error {
	if in.model.Init != nil {
		if err := in.model.Init(in.state); err != nil {
			in.log(slog.LevelError, "logStatusError", err.Error())
			return err
		}
	}
	in.outputs()
	return nil
}

func (in *instance) outputs() {
	if in.model.Outputs != nil {
		in.model.Outputs(in.state)
	}
}

func (in *instance) SetReal(vrs []uint32, values []float64) error {
	if err := in.check(fmi.Real, vrs, len(values), true); err != nil {
		return err
	}
	for i, vr := range vrs {
		in.state.Reals[vr] = values[i]
	}
	return nil
}

func (in *instance) GetReal(vrs []uint32, values []float64) error {
	if err := in.check(fmi.Real, vrs, len(values), false); err != nil {
		return err
	}
	for i, vr := range vrs {
		values[i] = in.state.Reals[vr]
	}
	return nil
}

func (in *instance) SetInteger(vrs []uint32, values []int32) error {
	if err := in.check(fmi.Integer, vrs, len(values), true); err != nil {
		return err
	}
	for i, vr := range vrs {
		in.state.Integers[vr] = values[i]
	}
	return nil
}

func (in *instance) GetInteger(vrs []uint32, values []int32) error {
	if err := in.check(fmi.Integer, vrs, len(values), false); err != nil {
		return err
	}
	for i, vr := range vrs {
		values[i] = in.state.Integers[vr]
	}
	return nil
}

func (in *instance) SetBoolean(vrs []uint32, values []bool) error {
	if err := in.check(fmi.Boolean, vrs, len(values), true); err != nil {
		return err
	}
	for i, vr := range vrs {
		in.state.Booleans[vr] = values[i]
	}
	return nil
}

func (in *instance) GetBoolean(vrs []uint32, values []bool) error {
	if err := in.check(fmi.Boolean, vrs, len(values), false); err != nil {
		return err
	}
	for i, vr := range vrs {
		values[i] = in.state.Booleans[vr]
	}
	return nil
}

func (in *instance) SetString(vrs []uint32, values []string) error {
	if err := in.check(fmi.String, vrs, len(values), true); err != nil {
		return err
	}
	for i, vr := range vrs {
		in.state.Strings[vr] = values[i]
	}
	return nil
}

func (in *instance) GetString(vrs []uint32, values []string) error {
	if err := in.check(fmi.String, vrs, len(values), false); err != nil {
		return err
	}
	for i, vr := range vrs {
		values[i] = in.state.Strings[vr]
	}
	return nil
}

func (in *instance) DoStep(ctx context.Context, t, h float64) (slave.StepStatus, error) {
	if h <= 0 {
		in.log(slog.LevelError, "logStatusError", fmt.Sprintf("non-positive step size %g", h))
		return slave.StepFailed, fmt.Errorf("non-positive step size %g", h)
	}
	if in.model.Step != nil {
		if err := in.model.Step(in.state, h); err != nil {
			in.log(slog.LevelError, "logStatusError", err.Error())
			return slave.StepFailed, err
		}
	}
	in.state.Time = t + h
	in.outputs()
	return slave.StepCompleted, nil
}

func (in *instance) CancelStep() error { return nil }
func (in *instance) Terminate() error  { return nil }
func (in *instance) Free()             { in.state = nil }

func (in *instance) GetState() (slave.StateHandle, error) {
	return in.state.clone(), nil
}

func (in *instance) SetState(h slave.StateHandle) error {
	s, ok := h.(*State)
	if !ok {
		return fmt.Errorf("foreign state handle %T", h)
	}
	in.state = s.clone()
	return nil
}

func (in *instance) FreeState(h slave.StateHandle) error {
	if _, ok := h.(*State); !ok {
		return fmt.Errorf("foreign state handle %T", h)
	}
	return nil
}

func (in *instance) SerializedSize(h slave.StateHandle) (int, error) {
	data, err := in.Serialize(h)
	return len(data), err
}

func (in *instance) Serialize(h slave.StateHandle) ([]byte, error) {
	s, ok := h.(*State)
	if !ok {
		return nil, fmt.Errorf("foreign state handle %T", h)
	}
	return s.marshal()
}

func (in *instance) Deserialize(data []byte) (slave.StateHandle, error) {
	s, err := unmarshalState(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt state: %w", err)
	}
	return s, nil
}
