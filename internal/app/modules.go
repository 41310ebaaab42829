package app

import (
	"github.com/specialistvlad/cosimgo/internal/registry"
	"github.com/specialistvlad/cosimgo/modules/constant"
	"github.com/specialistvlad/cosimgo/modules/gain"
	"github.com/specialistvlad/cosimgo/modules/integrator"
	"github.com/specialistvlad/cosimgo/modules/sine"
)

// coreModules is the definitive list of all built-in slave models that are
// compiled into the cosimgo binary.
var coreModules = []registry.Module{
	&constant.Module{},
	&gain.Module{},
	&integrator.Module{},
	&sine.Module{},
}
