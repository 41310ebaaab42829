//go:build darwin || linux

package native

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"github.com/specialistvlad/cosimgo/internal/slave"
)

// instance is one fmi2Component. Every string and the callback table it hands
// to the binary live in C memory so that the binary may keep them.
type instance struct {
	lib       *library
	name      string
	c         unsafe.Pointer
	env       uintptr
	callbacks unsafe.Pointer
	owned     []unsafe.Pointer
}

func (in *instance) keep(p unsafe.Pointer) unsafe.Pointer {
	in.owned = append(in.owned, p)
	return p
}

func (in *instance) release() {
	for _, p := range in.owned {
		cFree(p)
	}
	in.owned = nil
	environments.Delete(in.env)
}

func (in *instance) EnterInitialization(_ context.Context, tStart, tEnd float64) error {
	if err := check("fmi2SetupExperiment", in.lib.setupExperiment(in.c, fmi2False, 0, tStart, fmi2True, tEnd)); err != nil {
		return err
	}
	return check("fmi2EnterInitializationMode", in.lib.enterInit(in.c))
}

func (in *instance) ExitInitialization(context.Context) error {
	return check("fmi2ExitInitializationMode", in.lib.exitInit(in.c))
}

func (in *instance) SetReal(vrs []uint32, values []float64) error {
	if len(vrs) == 0 {
		return nil
	}
	return check("fmi2SetReal", in.lib.setReal(in.c, vrs, uintptr(len(vrs)), values))
}

func (in *instance) GetReal(vrs []uint32, values []float64) error {
	if len(vrs) == 0 {
		return nil
	}
	return check("fmi2GetReal", in.lib.getReal(in.c, vrs, uintptr(len(vrs)), values))
}

func (in *instance) SetInteger(vrs []uint32, values []int32) error {
	if len(vrs) == 0 {
		return nil
	}
	return check("fmi2SetInteger", in.lib.setInteger(in.c, vrs, uintptr(len(vrs)), values))
}

func (in *instance) GetInteger(vrs []uint32, values []int32) error {
	if len(vrs) == 0 {
		return nil
	}
	return check("fmi2GetInteger", in.lib.getInteger(in.c, vrs, uintptr(len(vrs)), values))
}

func (in *instance) SetBoolean(vrs []uint32, values []bool) error {
	if len(vrs) == 0 {
		return nil
	}
	raw := make([]int32, len(values))
	for i, b := range values {
		if b {
			raw[i] = fmi2True
		}
	}
	return check("fmi2SetBoolean", in.lib.setBoolean(in.c, vrs, uintptr(len(vrs)), raw))
}

func (in *instance) GetBoolean(vrs []uint32, values []bool) error {
	if len(vrs) == 0 {
		return nil
	}
	raw := make([]int32, len(vrs))
	if err := check("fmi2GetBoolean", in.lib.getBoolean(in.c, vrs, uintptr(len(vrs)), raw)); err != nil {
		return err
	}
	for i, b := range raw {
		values[i] = b != fmi2False
	}
	return nil
}

func (in *instance) SetString(vrs []uint32, values []string) error {
	if len(vrs) == 0 {
		return nil
	}
	ptrSize := unsafe.Sizeof(uintptr(0))
	arr := cCalloc(uintptr(len(values)), ptrSize)
	defer cFree(arr)
	table := unsafe.Slice((*unsafe.Pointer)(arr), len(values))
	for i, s := range values {
		table[i] = cString(s)
	}
	defer func() {
		for _, p := range table {
			cFree(p)
		}
	}()
	return check("fmi2SetString", in.lib.setString(in.c, vrs, uintptr(len(vrs)), arr))
}

// GetString copies the strings immediately; the binary owns the returned
// memory only until its next call.
func (in *instance) GetString(vrs []uint32, values []string) error {
	if len(vrs) == 0 {
		return nil
	}
	raw := make([]uintptr, len(vrs))
	if err := check("fmi2GetString", in.lib.getString(in.c, vrs, uintptr(len(vrs)), raw)); err != nil {
		return err
	}
	for i, p := range raw {
		values[i] = goString((*byte)(unsafe.Pointer(p)))
	}
	return nil
}

// DoStep blocks in the binary; ctx cannot interrupt it.
func (in *instance) DoStep(_ context.Context, t, h float64) (slave.StepStatus, error) {
	return stepStatus(in.lib.doStep(in.c, t, h, fmi2False))
}

func (in *instance) CancelStep() error {
	return check("fmi2CancelStep", in.lib.cancelStep(in.c))
}

func (in *instance) Terminate() error {
	return check("fmi2Terminate", in.lib.terminate(in.c))
}

func (in *instance) Free() {
	if in.c != nil {
		in.lib.freeInstance(in.c)
		in.c = nil
	}
	in.release()
}

// checkpointInstance adds fmi2GetFMUstate and friends.
type checkpointInstance struct {
	*instance
}

// fmuState is the StateHandle produced by native instances.
type fmuState struct {
	p unsafe.Pointer
}

var errForeignState = errors.New("state handle does not belong to a native instance")

func (ci *checkpointInstance) GetState() (slave.StateHandle, error) {
	var p unsafe.Pointer
	if err := check("fmi2GetFMUstate", ci.lib.getFMUstate(ci.c, &p)); err != nil {
		return nil, err
	}
	return &fmuState{p: p}, nil
}

func (ci *checkpointInstance) SetState(h slave.StateHandle) error {
	st, ok := h.(*fmuState)
	if !ok {
		return errForeignState
	}
	return check("fmi2SetFMUstate", ci.lib.setFMUstate(ci.c, st.p))
}

func (ci *checkpointInstance) FreeState(h slave.StateHandle) error {
	st, ok := h.(*fmuState)
	if !ok {
		return errForeignState
	}
	return check("fmi2FreeFMUstate", ci.lib.freeFMUstate(ci.c, &st.p))
}

type serializableInstance struct {
	checkpointInstance
}

func (si *serializableInstance) SerializedSize(h slave.StateHandle) (int, error) {
	st, ok := h.(*fmuState)
	if !ok {
		return 0, errForeignState
	}
	var size uintptr
	if err := check("fmi2SerializedFMUstateSize", si.lib.serializedSize(si.c, st.p, &size)); err != nil {
		return 0, err
	}
	return int(size), nil
}

func (si *serializableInstance) Serialize(h slave.StateHandle) ([]byte, error) {
	size, err := si.SerializedSize(h)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("fmi2SerializedFMUstateSize reported 0 bytes")
	}
	buf := make([]byte, size)
	st := h.(*fmuState)
	if err := check("fmi2SerializeFMUstate", si.lib.serializeState(si.c, st.p, buf, uintptr(size))); err != nil {
		return nil, err
	}
	return buf, nil
}

func (si *serializableInstance) Deserialize(data []byte) (slave.StateHandle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty serialized state")
	}
	var p unsafe.Pointer
	if err := check("fmi2DeSerializeFMUstate", si.lib.deserializeState(si.c, data, uintptr(len(data)), &p)); err != nil {
		return nil, err
	}
	return &fmuState{p: p}, nil
}
