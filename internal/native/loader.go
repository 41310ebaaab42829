package native

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

// Loader instantiates native slaves. Libraries are opened once per binary
// path and kept open until Close.
type Loader struct {
	mu   sync.Mutex
	libs map[string]*library
}

// NewLoader creates a loader with no open libraries.
func NewLoader() *Loader {
	return &Loader{libs: make(map[string]*library)}
}

// Instantiate implements slave.Loader.
func (l *Loader) Instantiate(ctx context.Context, desc *fmi.Descriptor, instanceName string, log slave.LogFunc) (slave.Steppable, error) {
	if !strings.HasPrefix(desc.FMIVersion, "2.") {
		return nil, fmt.Errorf("%w: %s: FMI %s binaries cannot be instantiated, only 2.0", slave.ErrInstantiation, desc.Path, desc.FMIVersion)
	}
	if desc.BinaryPath == "" {
		return nil, fmt.Errorf("%w: %s: no binary for this platform", slave.ErrInstantiation, desc.Path)
	}

	lib, err := l.open(ctx, desc.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", slave.ErrInstantiation, err)
	}
	inst, err := lib.newInstance(desc, instanceName, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", slave.ErrInstantiation, err)
	}
	ctxlog.FromContext(ctx).Debug("Native slave instantiated.", "binary", desc.BinaryPath, "instance", instanceName)
	return inst, nil
}

func (l *Loader) open(ctx context.Context, path string) (*library, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lib, ok := l.libs[path]; ok {
		return lib, nil
	}
	ctxlog.FromContext(ctx).Debug("Opening shared library.", "path", path)
	lib, err := openLibrary(path)
	if err != nil {
		return nil, err
	}
	l.libs[path] = lib
	return lib, nil
}

// Close unloads every library. All instances must have been freed.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for path, lib := range l.libs {
		if err := lib.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(l.libs, path)
	}
	return errors.Join(errs...)
}
