//go:build darwin || linux

package native

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

// C runtime shared by every instance of the process.
var (
	runtimeOnce sync.Once
	runtimeErr  error

	cCalloc func(n, size uintptr) unsafe.Pointer
	cFree   func(p unsafe.Pointer)

	callocSym, freeSym uintptr
	loggerCallback     uintptr

	// environments routes logger callbacks to their instance.
	environments sync.Map // uintptr -> slave.LogFunc
	nextEnv      atomic.Uintptr
)

func libcPath() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/libSystem.B.dylib"
	}
	return "libc.so.6"
}

func initRuntime() error {
	runtimeOnce.Do(func() {
		h, err := purego.Dlopen(libcPath(), purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			runtimeErr = fmt.Errorf("failed to open C runtime: %w", err)
			return
		}
		if callocSym, err = purego.Dlsym(h, "calloc"); err != nil {
			runtimeErr = err
			return
		}
		if freeSym, err = purego.Dlsym(h, "free"); err != nil {
			runtimeErr = err
			return
		}
		purego.RegisterFunc(&cCalloc, callocSym)
		purego.RegisterFunc(&cFree, freeSym)
		loggerCallback = purego.NewCallback(logTrampoline)
	})
	return runtimeErr
}

// logTrampoline is the fmi2CallbackLogger of every instance. The variadic
// format arguments are not expanded.
func logTrampoline(env uintptr, instanceName *byte, s int32, category *byte, message *byte) {
	fn, ok := environments.Load(env)
	if !ok {
		return
	}
	fn.(slave.LogFunc)(status(s).level(), goString(category), goString(message))
}

func registerEnvironment(log slave.LogFunc) uintptr {
	env := nextEnv.Add(1)
	if log == nil {
		log = func(slog.Level, string, string) {}
	}
	environments.Store(env, log)
	return env
}

// cString copies s into C memory. The caller frees it with cFree.
func cString(s string) unsafe.Pointer {
	p := cCalloc(uintptr(len(s)+1), 1)
	copy(unsafe.Slice((*byte)(p), len(s)+1), s)
	return p
}

// goString copies a NUL terminated C string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
