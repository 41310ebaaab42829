package slave

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"

	"github.com/specialistvlad/cosimgo/internal/fmi"
)

// fakeInstance is a scripted Steppable: x integrates u over each step.
type fakeInstance struct {
	log LogFunc

	x, u    float64
	n       int32
	flag    bool
	label   string
	steps   []StepStatus // scripted outcomes, consumed in order
	stepErr error
	setErr  error

	terminated, freed, cancelled int
	liveStates                   int
	stateSize                    int
}

func (f *fakeInstance) EnterInitialization(ctx context.Context, tStart, tEnd float64) error {
	return nil
}
func (f *fakeInstance) ExitInitialization(ctx context.Context) error { return nil }

func (f *fakeInstance) SetReal(vrs []uint32, values []float64) error {
	if f.setErr != nil {
		f.log(slog.LevelError, "logStatusError", "refusing value")
		return f.setErr
	}
	for i, vr := range vrs {
		if vr == 1 {
			f.u = values[i]
		}
	}
	return nil
}
func (f *fakeInstance) GetReal(vrs []uint32, values []float64) error {
	for i, vr := range vrs {
		switch vr {
		case 0:
			values[i] = f.x
		case 1:
			values[i] = f.u
		}
	}
	return nil
}
func (f *fakeInstance) SetInteger(vrs []uint32, values []int32) error { f.n = values[0]; return nil }
func (f *fakeInstance) GetInteger(vrs []uint32, values []int32) error { values[0] = f.n; return nil }
func (f *fakeInstance) SetBoolean(vrs []uint32, values []bool) error  { f.flag = values[0]; return nil }
func (f *fakeInstance) GetBoolean(vrs []uint32, values []bool) error  { values[0] = f.flag; return nil }
func (f *fakeInstance) SetString(vrs []uint32, values []string) error { f.label = values[0]; return nil }
func (f *fakeInstance) GetString(vrs []uint32, values []string) error { values[0] = f.label; return nil }

func (f *fakeInstance) DoStep(ctx context.Context, t, h float64) (StepStatus, error) {
	if f.stepErr != nil {
		return StepFailed, f.stepErr
	}
	status := StepCompleted
	if len(f.steps) > 0 {
		status, f.steps = f.steps[0], f.steps[1:]
	}
	if status == StepCompleted {
		f.x += f.u * h
	}
	return status, nil
}
func (f *fakeInstance) CancelStep() error { f.cancelled++; return nil }
func (f *fakeInstance) Terminate() error  { f.terminated++; return nil }
func (f *fakeInstance) Free()             { f.freed++ }

// fakeCheckpointed adds state capture over x.
type fakeCheckpointed struct{ *fakeInstance }

func (f fakeCheckpointed) GetState() (StateHandle, error) {
	f.liveStates++
	return f.x, nil
}
func (f fakeCheckpointed) SetState(h StateHandle) error {
	x, ok := h.(float64)
	if !ok {
		return errors.New("foreign state")
	}
	f.x = x
	return nil
}
func (f fakeCheckpointed) FreeState(h StateHandle) error {
	f.liveStates--
	return nil
}
func (f fakeCheckpointed) SerializedSize(h StateHandle) (int, error) { return f.stateSize, nil }
func (f fakeCheckpointed) Serialize(h StateHandle) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(h.(float64))), nil
}
func (f fakeCheckpointed) Deserialize(data []byte) (StateHandle, error) {
	if len(data) != 8 {
		return nil, errors.New("bad length")
	}
	f.liveStates++
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}

func testDescriptor(caps fmi.Capabilities) *fmi.Descriptor {
	zero := "0"
	return fmi.NewDescriptor("builtin:fake", "fake", "{fake}", fmi.CoSimulation, caps, []*fmi.Variable{
		{Name: "x", ValueReference: 0, Type: fmi.Real, Causality: fmi.Output},
		{Name: "u", ValueReference: 1, Type: fmi.Real, Causality: fmi.Input, Start: &zero},
	})
}

// loaderFor returns a loader handing out inst and recording the log sink.
func loaderFor(inst *fakeInstance, checkpointed bool) Loader {
	return LoaderFunc(func(ctx context.Context, desc *fmi.Descriptor, name string, log LogFunc) (Steppable, error) {
		inst.log = log
		if checkpointed {
			return fakeCheckpointed{inst}, nil
		}
		return inst, nil
	})
}
