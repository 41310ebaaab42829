package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/config"
	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/registry"
	"github.com/specialistvlad/cosimgo/internal/scheduler"
	"github.com/specialistvlad/cosimgo/internal/slave"
	"github.com/specialistvlad/cosimgo/modules/constant"
	"github.com/specialistvlad/cosimgo/modules/gain"
	"github.com/specialistvlad/cosimgo/modules/integrator"
	"github.com/specialistvlad/cosimgo/modules/sine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
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

func builtinSlave(name, model string) *config.Slave {
	return &config.Slave{Name: name, FMU: registry.Scheme + model, Path: registry.Scheme + model}
}

func chainModel() *config.Model {
	src := builtinSlave("src", "constant")
	src.Parameters = map[string]cty.Value{"value": cty.NumberIntVal(3)}
	amp := builtinSlave("amp", "gain")
	amp.Parameters = map[string]cty.Value{"k": cty.NumberFloatVal(2), "b": cty.NumberIntVal(1)}

	sim := config.DefaultSimulation()
	sim.StepSize = 0.1
	sim.MaxStepSize = 0.1
	return &config.Model{
		Simulation:  sim,
		Slaves:      []*config.Slave{src, amp},
		Connections: []*config.Connection{{From: "src.y", To: "amp.u", Scale: 1}},
	}
}

func TestNew_RunsChain(t *testing.T) {
	// --- Arrange ---
	ctx := testContext()
	s, err := New(ctx, chainModel(), newRegistry())
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close(ctx)) }()

	// --- Act ---
	sched, err := s.NewScheduler(nil)
	require.NoError(t, err)
	require.NoError(t, sched.Run(ctx))

	// --- Assert ---
	require.Len(t, s.Slaves(), 2)
	y, err := s.Slaves()[1].GetReal(gain.VRY)
	require.NoError(t, err)
	assert.Equal(t, 7.0, y)
	assert.Len(t, s.StartValues(), 3)
	assert.Len(t, s.Graph().Edges(), 1)
	assert.Len(t, s.OutputSlaves(), 2)
	assert.Equal(t, scheduler.Completed, sched.State())
}

func TestNew_SharesDescriptors(t *testing.T) {
	ctx := testContext()
	m := chainModel()
	m.Slaves = append(m.Slaves, builtinSlave("amp2", "gain"))

	s, err := New(ctx, m, newRegistry())
	require.NoError(t, err)
	defer s.Close(ctx)

	assert.Same(t, s.Slaves()[1].Descriptor(), s.Slaves()[2].Descriptor())
	assert.Equal(t, 2, s.cache.Len())
}

func TestNew_ConfigurationErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(m *config.Model)
		want   []string
	}{
		{
			name:   "invalid model",
			mutate: func(m *config.Model) { m.Slaves = nil },
			want:   []string{"declares no slaves"},
		},
		{
			name: "unknown builtin and missing archive",
			mutate: func(m *config.Model) {
				m.Slaves = append(m.Slaves,
					builtinSlave("ghost", "nope"),
					&config.Slave{Name: "file", Path: filepath.Join(os.TempDir(), "does-not-exist.fmu")},
				)
			},
			want: []string{`slave "ghost"`, `slave "file": cannot access slave binary`},
		},
		{
			name: "unresolved slave does not hide other problems",
			mutate: func(m *config.Model) {
				m.Simulation.StopTime = -1
				m.Slaves = append(m.Slaves, &config.Slave{Name: "ext", Path: filepath.Join(os.TempDir(), "missing-ext.fmu")})
				m.Slaves[1].Parameters["nope"] = cty.NumberIntVal(1)
				m.Connections = append(m.Connections,
					&config.Connection{From: "src.y", To: "amp.u", Scale: 1},
					&config.Connection{From: "amp.y", To: "ext.u", Scale: 1},
					&config.Connection{From: "src", To: "amp.u", Scale: 1},
				)
			},
			want: []string{
				"stop time",
				`slave "ext": cannot access slave binary`,
				"target already connected",
				`slave "amp": parameter "nope": no such variable`,
				"connection 4",
			},
		},
		{
			name: "bad connection",
			mutate: func(m *config.Model) {
				m.Connections = append(m.Connections, &config.Connection{From: "amp.u", To: "src.y", Scale: 1})
			},
			want: []string{"connection validation failed"},
		},
		{
			name: "bad start values",
			mutate: func(m *config.Model) {
				m.Slaves[0].Parameters["nope"] = cty.NumberIntVal(1)
				m.Slaves[0].Inputs = map[string]cty.Value{"y": cty.NumberIntVal(1)}
				m.Slaves[1].Inputs = map[string]cty.Value{"u": cty.NumberIntVal(1)}
				m.Slaves[1].Parameters["k"] = cty.StringVal("fast")
			},
			want: []string{
				`slave "src": parameter "nope": no such variable`,
				`slave "src": input "y": variable is output`,
				`slave "amp": input "u": variable is fed by a connection`,
				`slave "amp": parameter "k"`,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := chainModel()
			tc.mutate(m)

			s, err := New(testContext(), m, newRegistry())

			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, scheduler.ErrConfiguration)
			for _, w := range tc.want {
				assert.ErrorContains(t, err, w)
			}
		})
	}
}

func TestNew_ArchiveWithoutBinary(t *testing.T) {
	dir := t.TempDir()
	desc := `<fmiModelDescription fmiVersion="2.0" guid="{x}"><CoSimulation modelIdentifier="nobin"/>
  <ModelVariables><ScalarVariable name="y" valueReference="0" causality="output"><Real/></ScalarVariable></ModelVariables>
</fmiModelDescription>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modelDescription.xml"), []byte(desc), 0o644))

	m := chainModel()
	m.Slaves = append(m.Slaves, &config.Slave{Name: "nobin", Path: dir})

	_, err := New(testContext(), m, newRegistry())

	require.ErrorIs(t, err, scheduler.ErrConfiguration)
	assert.ErrorContains(t, err, "has no binary for this platform")
}

func TestClose_Idempotent(t *testing.T) {
	ctx := testContext()
	s, err := New(ctx, chainModel(), newRegistry())
	require.NoError(t, err)
	for _, w := range s.Slaves() {
		require.NoError(t, w.Instantiate(ctx))
	}

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	for _, w := range s.Slaves() {
		assert.Equal(t, slave.Terminated, w.State())
	}
	_, ok := s.cache.Peek(registry.Scheme + "gain")
	assert.False(t, ok, "cache is emptied on close")
}
