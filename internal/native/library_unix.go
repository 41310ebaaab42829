//go:build darwin || linux

package native

import (
	"fmt"
	"net/url"
	"path/filepath"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

const (
	fmi2CoSimulation = 1
	fmi2True         = 1
	fmi2False        = 0
)

// library holds the FMI 2.0 entry points of one shared library. The state
// entry points are optional and nil when missing.
type library struct {
	path   string
	handle uintptr

	instantiate      func(name unsafe.Pointer, fmuType int32, guid, resources unsafe.Pointer, functions unsafe.Pointer, visible, loggingOn int32) unsafe.Pointer
	freeInstance     func(c unsafe.Pointer)
	setupExperiment  func(c unsafe.Pointer, toleranceDefined int32, tolerance, start float64, stopDefined int32, stop float64) status
	enterInit        func(c unsafe.Pointer) status
	exitInit         func(c unsafe.Pointer) status
	terminate        func(c unsafe.Pointer) status
	getReal          func(c unsafe.Pointer, vr []uint32, n uintptr, value []float64) status
	getInteger       func(c unsafe.Pointer, vr []uint32, n uintptr, value []int32) status
	getBoolean       func(c unsafe.Pointer, vr []uint32, n uintptr, value []int32) status
	getString        func(c unsafe.Pointer, vr []uint32, n uintptr, value []uintptr) status
	setReal          func(c unsafe.Pointer, vr []uint32, n uintptr, value []float64) status
	setInteger       func(c unsafe.Pointer, vr []uint32, n uintptr, value []int32) status
	setBoolean       func(c unsafe.Pointer, vr []uint32, n uintptr, value []int32) status
	setString        func(c unsafe.Pointer, vr []uint32, n uintptr, value unsafe.Pointer) status
	doStep           func(c unsafe.Pointer, t, h float64, noSetPrior int32) status
	cancelStep       func(c unsafe.Pointer) status
	getFMUstate      func(c unsafe.Pointer, s *unsafe.Pointer) status
	setFMUstate      func(c unsafe.Pointer, s unsafe.Pointer) status
	freeFMUstate     func(c unsafe.Pointer, s *unsafe.Pointer) status
	serializedSize   func(c unsafe.Pointer, s unsafe.Pointer, size *uintptr) status
	serializeState   func(c unsafe.Pointer, s unsafe.Pointer, buf []byte, size uintptr) status
	deserializeState func(c unsafe.Pointer, buf []byte, size uintptr, s *unsafe.Pointer) status
}

func openLibrary(path string) (*library, error) {
	if err := initRuntime(); err != nil {
		return nil, err
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	lib := &library{path: path, handle: h}

	required := []struct {
		fptr any
		name string
	}{
		{&lib.instantiate, "fmi2Instantiate"},
		{&lib.freeInstance, "fmi2FreeInstance"},
		{&lib.setupExperiment, "fmi2SetupExperiment"},
		{&lib.enterInit, "fmi2EnterInitializationMode"},
		{&lib.exitInit, "fmi2ExitInitializationMode"},
		{&lib.terminate, "fmi2Terminate"},
		{&lib.getReal, "fmi2GetReal"},
		{&lib.getInteger, "fmi2GetInteger"},
		{&lib.getBoolean, "fmi2GetBoolean"},
		{&lib.getString, "fmi2GetString"},
		{&lib.setReal, "fmi2SetReal"},
		{&lib.setInteger, "fmi2SetInteger"},
		{&lib.setBoolean, "fmi2SetBoolean"},
		{&lib.setString, "fmi2SetString"},
		{&lib.doStep, "fmi2DoStep"},
		{&lib.cancelStep, "fmi2CancelStep"},
	}
	for _, fn := range required {
		sym, err := purego.Dlsym(h, fn.name)
		if err != nil {
			_ = purego.Dlclose(h)
			return nil, fmt.Errorf("%s: missing entry point %s: %w", path, fn.name, err)
		}
		purego.RegisterFunc(fn.fptr, sym)
	}

	optional := []struct {
		fptr any
		name string
	}{
		{&lib.getFMUstate, "fmi2GetFMUstate"},
		{&lib.setFMUstate, "fmi2SetFMUstate"},
		{&lib.freeFMUstate, "fmi2FreeFMUstate"},
		{&lib.serializedSize, "fmi2SerializedFMUstateSize"},
		{&lib.serializeState, "fmi2SerializeFMUstate"},
		{&lib.deserializeState, "fmi2DeSerializeFMUstate"},
	}
	for _, fn := range optional {
		if sym, err := purego.Dlsym(h, fn.name); err == nil {
			purego.RegisterFunc(fn.fptr, sym)
		}
	}
	return lib, nil
}

func (l *library) hasStateFunctions() bool {
	return l.getFMUstate != nil && l.setFMUstate != nil && l.freeFMUstate != nil
}

func (l *library) hasSerializeFunctions() bool {
	return l.serializedSize != nil && l.serializeState != nil && l.deserializeState != nil
}

func (l *library) close() error {
	return purego.Dlclose(l.handle)
}

// resourceLocation is the file URI of the unpacked resources directory.
func resourceLocation(root string) string {
	if root == "" {
		return ""
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(root, "resources")) + "/"}
	return u.String()
}

func (l *library) newInstance(desc *fmi.Descriptor, name string, log slave.LogFunc) (slave.Steppable, error) {
	env := registerEnvironment(log)
	in := &instance{lib: l, name: name, env: env}

	nameC := in.keep(cString(name))
	guidC := in.keep(cString(desc.GUID))
	resC := in.keep(cString(resourceLocation(desc.Root)))

	const fields = 5 // logger, allocateMemory, freeMemory, stepFinished, componentEnvironment
	in.callbacks = in.keep(cCalloc(fields, unsafe.Sizeof(uintptr(0))))
	table := unsafe.Slice((*uintptr)(in.callbacks), fields)
	table[0] = loggerCallback
	table[1] = callocSym
	table[2] = freeSym
	table[3] = 0
	table[4] = env

	in.c = l.instantiate(nameC, fmi2CoSimulation, guidC, resC, in.callbacks, fmi2False, fmi2True)
	if in.c == nil {
		in.release()
		return nil, fmt.Errorf("fmi2Instantiate returned NULL for %s (check the GUID %s)", name, desc.GUID)
	}

	switch {
	case l.hasStateFunctions() && l.hasSerializeFunctions():
		return &serializableInstance{checkpointInstance{in}}, nil
	case l.hasStateFunctions():
		return &checkpointInstance{in}, nil
	default:
		return in, nil
	}
}
