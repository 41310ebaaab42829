package modules_test

import (
	"context"
	"math"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/registry"
	"github.com/specialistvlad/cosimgo/internal/slave"
	"github.com/specialistvlad/cosimgo/modules/constant"
	"github.com/specialistvlad/cosimgo/modules/gain"
	"github.com/specialistvlad/cosimgo/modules/integrator"
	"github.com/specialistvlad/cosimgo/modules/sine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, m := range []registry.Module{&constant.Module{}, &gain.Module{}, &integrator.Module{}, &sine.Module{}} {
		m.Register(r)
	}
	require.NoError(t, r.ValidateRegistry(ctxlog.Discard(context.Background())))
	return r
}

// start instantiates model, applies params during initialization and leaves
// the wrapper ready.
func start(t *testing.T, r *registry.Registry, model string, params map[uint32]float64) *slave.Wrapper {
	t.Helper()
	ctx := ctxlog.Discard(context.Background())
	d, _, err := r.Resolve(ctx, registry.Scheme+model)
	require.NoError(t, err)
	w := slave.New(model, d, r)
	require.NoError(t, w.Instantiate(ctx))
	require.NoError(t, w.EnterInitialization(ctx, 0, 10))
	for vr, v := range params {
		require.NoError(t, w.SetValue(vr, fmi.RealValue(v)))
	}
	require.NoError(t, w.ExitInitialization(ctx))
	t.Cleanup(func() { _ = w.Close(ctx) })
	return w
}

func step(t *testing.T, w *slave.Wrapper, tNow, h float64) {
	t.Helper()
	status, err := w.DoStep(ctxlog.Discard(context.Background()), tNow, h)
	require.NoError(t, err)
	require.Equal(t, slave.StepCompleted, status)
}

func TestConstant(t *testing.T) {
	w := start(t, newRegistry(t), "constant", map[uint32]float64{constant.VRValue: 3})
	y, err := w.GetReal(constant.VRY)
	require.NoError(t, err)
	assert.Equal(t, 3.0, y)

	step(t, w, 0, 1)
	y, _ = w.GetReal(constant.VRY)
	assert.Equal(t, 3.0, y)
}

func TestGain(t *testing.T) {
	w := start(t, newRegistry(t), "gain", map[uint32]float64{gain.VRK: 2, gain.VRB: 1})
	require.NoError(t, w.SetReal(gain.VRU, 3))
	step(t, w, 0, 0.1)
	y, _ := w.GetReal(gain.VRY)
	assert.Equal(t, 7.0, y)
}

func TestIntegrator(t *testing.T) {
	w := start(t, newRegistry(t), "integrator", map[uint32]float64{integrator.VRX0: 1})
	x, _ := w.GetReal(integrator.VRX)
	require.Equal(t, 1.0, x)

	require.NoError(t, w.SetReal(integrator.VRU, 2))
	step(t, w, 0, 0.5)
	step(t, w, 0.5, 0.25)
	x, _ = w.GetReal(integrator.VRX)
	assert.InDelta(t, 2.5, x, 1e-15)
}

func TestSine(t *testing.T) {
	w := start(t, newRegistry(t), "sine", map[uint32]float64{sine.VRAmplitude: 2, sine.VRFrequency: 0.25, sine.VROffset: 1})
	y, _ := w.GetReal(sine.VRY)
	assert.InDelta(t, 1.0, y, 1e-12)

	step(t, w, 0, 1)
	y, _ = w.GetReal(sine.VRY)
	assert.InDelta(t, 3.0, y, 1e-12, "quarter period")
	assert.False(t, math.IsNaN(y))
}
