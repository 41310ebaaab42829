package scheduler

import (
	"context"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/graph"
	"github.com/specialistvlad/cosimgo/internal/registry"
	"github.com/specialistvlad/cosimgo/internal/slave"
	"github.com/specialistvlad/cosimgo/internal/varref"
	"github.com/specialistvlad/cosimgo/modules/constant"
	"github.com/specialistvlad/cosimgo/modules/gain"
	"github.com/specialistvlad/cosimgo/modules/integrator"
	"github.com/specialistvlad/cosimgo/modules/sine"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func newRegistry() *registry.Registry {
	r := registry.New()
	for _, m := range []registry.Module{&constant.Module{}, &gain.Module{}, &integrator.Module{}, &sine.Module{}} {
		m.Register(r)
	}
	return r
}

// builtin creates an unloaded wrapper for a built-in model. The wrapper is
// closed when the test ends.
func builtin(t *testing.T, r *registry.Registry, name, model string) *slave.Wrapper {
	t.Helper()
	ctx := testContext()
	d, _, err := r.Resolve(ctx, registry.Scheme+model)
	require.NoError(t, err)
	w := slave.New(name, d, r)
	t.Cleanup(func() { _ = w.Close(ctx) })
	return w
}

func connect(t *testing.T, slaves []Slave, edges ...graph.Edge) *graph.Graph {
	t.Helper()
	names := make([]string, len(slaves))
	for i, s := range slaves {
		names[i] = s.Name()
	}
	g, err := graph.New(names, edges)
	require.NoError(t, err)
	return g
}

func edge(from, to string) graph.Edge {
	return graph.NewEdge(varref.MustParse(from), varref.MustParse(to))
}

func startReal(slave string, vr uint32, v float64) StartValue {
	return StartValue{Slave: slave, ValueReference: vr, Value: fmi.RealValue(v)}
}

func settingsFor(mode Mode, h, stop float64) Settings {
	s := DefaultSettings()
	s.Mode = mode
	s.StepSize = h
	s.MaxStepSize = h
	s.StopTime = stop
	return s
}

func readReal(t *testing.T, s Slave, vr uint32) float64 {
	t.Helper()
	v, err := s.GetValue(fmi.Real, vr)
	require.NoError(t, err)
	return v.Real
}

// picky is a slave that refuses steps longer than maxH. Its single output
// is its own clock.
type picky struct {
	maxH float64
	time float64
}

func (p *picky) EnterInitialization(context.Context, float64, float64) error { return nil }
func (p *picky) ExitInitialization(context.Context) error                    { return nil }
func (p *picky) SetReal([]uint32, []float64) error                           { return nil }
func (p *picky) SetInteger([]uint32, []int32) error                          { return nil }
func (p *picky) GetInteger([]uint32, []int32) error                          { return nil }
func (p *picky) SetBoolean([]uint32, []bool) error                           { return nil }
func (p *picky) GetBoolean([]uint32, []bool) error                           { return nil }
func (p *picky) SetString([]uint32, []string) error                          { return nil }
func (p *picky) GetString([]uint32, []string) error                          { return nil }
func (p *picky) CancelStep() error                                           { return nil }
func (p *picky) Terminate() error                                            { return nil }
func (p *picky) Free()                                                       {}

func (p *picky) GetReal(vrs []uint32, values []float64) error {
	for i := range vrs {
		values[i] = p.time
	}
	return nil
}

func (p *picky) DoStep(_ context.Context, t, h float64) (slave.StepStatus, error) {
	if h > p.maxH {
		return slave.StepRejected, nil
	}
	p.time = t + h
	return slave.StepCompleted, nil
}

func (p *picky) GetState() (slave.StateHandle, error) { return p.time, nil }
func (p *picky) SetState(h slave.StateHandle) error {
	p.time = h.(float64)
	return nil
}
func (p *picky) FreeState(slave.StateHandle) error { return nil }

func newPicky(t *testing.T, name string, maxH float64, checkpoints bool) (*slave.Wrapper, *picky) {
	t.Helper()
	vars := []*fmi.Variable{{Name: "time", ValueReference: 0, Type: fmi.Real, Causality: fmi.Output, Variability: "continuous"}}
	caps := fmi.Capabilities{CanHandleVariableStep: true, CanGetAndSetState: checkpoints}
	d := fmi.NewDescriptor("picky", "picky", "{picky}", fmi.CoSimulation, caps, vars)
	p := &picky{maxH: maxH}
	loader := slave.LoaderFunc(func(context.Context, *fmi.Descriptor, string, slave.LogFunc) (slave.Steppable, error) {
		return p, nil
	})
	w := slave.New(name, d, loader)
	t.Cleanup(func() { _ = w.Close(testContext()) })
	return w, p
}

// recorderFunc adapts a function to the Recorder interface.
type recorderFunc func(ctx context.Context, t float64, force bool) error

func (f recorderFunc) Record(ctx context.Context, t float64, force bool) error { return f(ctx, t, force) }
