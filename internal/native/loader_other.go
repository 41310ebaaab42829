//go:build !(darwin || linux)

package native

import (
	"fmt"
	"runtime"

	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

type library struct{}

func openLibrary(path string) (*library, error) {
	return nil, fmt.Errorf("native slaves are not supported on %s", runtime.GOOS)
}

func (l *library) newInstance(desc *fmi.Descriptor, name string, log slave.LogFunc) (slave.Steppable, error) {
	return nil, fmt.Errorf("native slaves are not supported on %s", runtime.GOOS)
}

func (l *library) close() error { return nil }
