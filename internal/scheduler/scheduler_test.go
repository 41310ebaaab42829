package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/graph"
	"github.com/specialistvlad/cosimgo/internal/varref"
	"github.com/specialistvlad/cosimgo/modules/constant"
	"github.com/specialistvlad/cosimgo/modules/gain"
	"github.com/specialistvlad/cosimgo/modules/integrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJacobi_PassThroughReachesConstantAfterOneStep(t *testing.T) {
	for _, h := range []float64{1, 0.1, 1e-3} {
		t.Run(fmt.Sprintf("h=%g", h), func(t *testing.T) {
			// --- Arrange ---
			r := newRegistry()
			a := builtin(t, r, "A", "constant")
			b := builtin(t, r, "B", "gain")
			slaves := []Slave{a, b}
			g := connect(t, slaves, edge("A.y", "B.u"))
			s, err := New(settingsFor(Jacobi, h, h), slaves, g, nil, WithStartValues(startReal("A", constant.VRValue, 3)))
			require.NoError(t, err)

			// --- Act ---
			require.NoError(t, s.Run(testContext()))

			// --- Assert ---
			assert.Equal(t, Completed, s.State())
			assert.Equal(t, 1, s.Stats().Steps)
			assert.Equal(t, 3.0, readReal(t, b, gain.VRY))
		})
	}
}

func TestExchange_AppliesTransform(t *testing.T) {
	r := newRegistry()
	a := builtin(t, r, "A", "constant")
	b := builtin(t, r, "B", "gain")
	slaves := []Slave{a, b}
	e := graph.Edge{From: varref.MustParse("A.y"), To: varref.MustParse("B.u"), Scale: 2, Offset: 1}
	s, err := New(settingsFor(Jacobi, 0.1, 0.1), slaves, connect(t, slaves, e), nil,
		WithStartValues(startReal("A", constant.VRValue, 3)))
	require.NoError(t, err)

	require.NoError(t, s.Run(testContext()))
	assert.Equal(t, 7.0, readReal(t, b, gain.VRU))
	assert.Equal(t, 7.0, readReal(t, b, gain.VRY))
}

func TestSeidel_SeesValuesOfTheSameStep(t *testing.T) {
	testCases := []struct {
		mode Mode
		want float64
	}{
		{mode: Jacobi, want: 0},
		{mode: Seidel, want: 0.5},
		{mode: Newton, want: 0.5},
	}

	for _, tc := range testCases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			r := newRegistry()
			a := builtin(t, r, "A", "integrator")
			b := builtin(t, r, "B", "gain")
			slaves := []Slave{a, b}
			s, err := New(settingsFor(tc.mode, 0.5, 0.5), slaves, connect(t, slaves, edge("A.x", "B.u")), nil,
				WithStartValues(startReal("A", integrator.VRU, 1)))
			require.NoError(t, err)

			require.NoError(t, s.Run(testContext()))
			assert.Equal(t, 0.5, readReal(t, a, integrator.VRX))
			assert.Equal(t, tc.want, readReal(t, b, gain.VRY))
		})
	}
}

// loop couples two gains both ways: A.u = B.y and B.u = A.y.
func loop(t *testing.T, kA, kB, bB float64, settings Settings) (*Scheduler, []Slave) {
	t.Helper()
	r := newRegistry()
	slaves := []Slave{builtin(t, r, "A", "gain"), builtin(t, r, "B", "gain")}
	g := connect(t, slaves, edge("A.y", "B.u"), edge("B.y", "A.u"))
	s, err := New(settings, slaves, g, nil, WithStartValues(
		startReal("A", gain.VRK, kA),
		startReal("B", gain.VRK, kB),
		startReal("B", gain.VRB, bB),
	))
	require.NoError(t, err)
	return s, slaves
}

func TestNewton_ContractiveLoopConverges(t *testing.T) {
	settings := settingsFor(Newton, 0.1, 0.1)
	settings.MaxIterations = 50
	settings.AbsTol = 1e-10
	settings.RelTol = 1e-10
	s, slaves := loop(t, 0.5, 0.5, 1, settings)

	require.NoError(t, s.Run(testContext()))

	// A = B/2 and B = A/2 + 1.
	assert.InDelta(t, 2.0/3.0, readReal(t, slaves[0], gain.VRY), 1e-8)
	assert.InDelta(t, 4.0/3.0, readReal(t, slaves[1], gain.VRY), 1e-8)
	st := s.Stats()
	assert.Greater(t, st.Iterations, 2)
	assert.LessOrEqual(t, st.Iterations, 50)
	assert.Zero(t, st.Shrinks)
}

func TestNewton_NonContractiveLoop(t *testing.T) {
	testCases := []struct {
		name        string
		adjust      bool
		minStep     float64
		fallback    float64
		wantShrinks int
		wantStep    float64
	}{
		{name: "no step size adjustment", adjust: false, minStep: 1e-6, fallback: 0, wantShrinks: 0, wantStep: 0.1},
		{name: "shrinks down to the fallback limit", adjust: true, minStep: 1e-6, fallback: 0.01, wantShrinks: 4, wantStep: 0.1 / 16},
		{name: "never below the minimum step", adjust: true, minStep: 0.02, fallback: 0, wantShrinks: 3, wantStep: 0.02},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := settingsFor(Newton, 0.1, 1)
			settings.MaxIterations = 5
			settings.AdjustStepSize = tc.adjust
			settings.MinStepSize = tc.minStep
			settings.FallbackLimit = tc.fallback
			s, _ := loop(t, 2, 2, 1, settings)

			err := s.Run(testContext())

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConvergence)
			var f *Failure
			require.True(t, errors.As(err, &f))
			assert.Equal(t, 1, f.Step)
			assert.InDelta(t, tc.wantStep, f.StepSize, 1e-15)
			assert.GreaterOrEqual(t, f.StepSize, tc.minStep)
			assert.Equal(t, Failed, s.State())
			st := s.Stats()
			assert.Equal(t, tc.wantShrinks, st.Shrinks)
			assert.Zero(t, st.Steps, "an unconverged step must never be accepted")
			assert.Equal(t, 0.0, s.Clock().Time)
		})
	}
}

func TestRejectedStep(t *testing.T) {
	t.Run("shrinks and retries from the checkpoint", func(t *testing.T) {
		w, p := newPicky(t, "P", 0.03, true)
		settings := settingsFor(Jacobi, 0.1, 0.2)
		settings.MinStepSize = 1e-3
		s, err := New(settings, []Slave{w}, nil, nil)
		require.NoError(t, err)

		require.NoError(t, s.Run(testContext()))

		st := s.Stats()
		assert.GreaterOrEqual(t, st.Shrinks, 2)
		assert.Equal(t, st.Shrinks, st.Rejected)
		assert.InDelta(t, 0.2, p.time, 1e-12)
		assert.InDelta(t, 0.2, s.Clock().Time, 1e-12)
	})

	t.Run("is fatal without checkpoints", func(t *testing.T) {
		w, _ := newPicky(t, "P", 0.03, false)
		s, err := New(settingsFor(Jacobi, 0.1, 0.2), []Slave{w}, nil, nil)
		require.NoError(t, err)

		err = s.Run(testContext())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStepRejected)
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, "P", f.Slave)
		assert.Equal(t, 1, f.Step)
	})
}

func TestRichardson(t *testing.T) {
	t.Run("grows the step on an exact solution", func(t *testing.T) {
		r := newRegistry()
		src := builtin(t, r, "src", "constant")
		integ := builtin(t, r, "x", "integrator")
		slaves := []Slave{src, integ}
		settings := settingsFor(Jacobi, 0.01, 1)
		settings.MaxStepSize = 0.16
		settings.ErrorControl = ErrorControlRichardsonAdjust
		settings.PreventOverstepping = true
		s, err := New(settings, slaves, connect(t, slaves, edge("src.y", "x.u")), nil)
		require.NoError(t, err)

		require.NoError(t, s.Run(testContext()))

		assert.Equal(t, 1.0, s.Clock().Time)
		assert.InDelta(t, 1.0, readReal(t, integ, integrator.VRX), 1e-9)
		assert.Less(t, s.Stats().Steps, 100)
		assert.Zero(t, s.Stats().Shrinks)
	})

	t.Run("shrinks the step when the error is too large", func(t *testing.T) {
		r := newRegistry()
		src := builtin(t, r, "src", "sine")
		integ := builtin(t, r, "x", "integrator")
		slaves := []Slave{src, integ}
		settings := settingsFor(Jacobi, 0.1, 0.5)
		settings.MinStepSize = 1e-3
		settings.AbsTol = 1e-6
		settings.RelTol = 1e-6
		settings.ErrorControl = ErrorControlRichardsonAdjust
		s, err := New(settings, slaves, connect(t, slaves, edge("src.y", "x.u")), nil)
		require.NoError(t, err)

		require.NoError(t, s.Run(testContext()))

		st := s.Stats()
		assert.Positive(t, st.Shrinks)
		assert.GreaterOrEqual(t, st.Rejected, st.Shrinks)
		assert.Greater(t, st.Steps, 5)
		assert.Equal(t, Completed, s.State())
	})

	t.Run("monitor never changes the step", func(t *testing.T) {
		r := newRegistry()
		src := builtin(t, r, "src", "sine")
		integ := builtin(t, r, "x", "integrator")
		slaves := []Slave{src, integ}
		settings := settingsFor(Jacobi, 0.1, 0.5)
		settings.ErrorControl = ErrorControlMonitor
		s, err := New(settings, slaves, connect(t, slaves, edge("src.y", "x.u")), nil)
		require.NoError(t, err)

		require.NoError(t, s.Run(testContext()))
		assert.Equal(t, 5, s.Stats().Steps)
		assert.Zero(t, s.Stats().Shrinks)
	})
}

func TestEndTime(t *testing.T) {
	testCases := []struct {
		name      string
		prevent   bool
		wantTime  float64
		wantSteps int
	}{
		{name: "clamped to the stop time", prevent: true, wantTime: 1, wantSteps: 4},
		{name: "overstepping allowed", prevent: false, wantTime: 1.2, wantSteps: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRegistry()
			settings := settingsFor(Seidel, 0.3, 1)
			settings.PreventOverstepping = tc.prevent
			var points []float64
			rec := recorderFunc(func(_ context.Context, t float64, _ bool) error {
				points = append(points, t)
				return nil
			})
			s, err := New(settings, []Slave{builtin(t, r, "A", "constant")}, nil, rec)
			require.NoError(t, err)

			require.NoError(t, s.Run(testContext()))

			assert.InDelta(t, tc.wantTime, s.Clock().Time, 1e-12)
			assert.Equal(t, tc.wantSteps, s.Stats().Steps)
			require.Len(t, points, tc.wantSteps+1)
			assert.Equal(t, 0.0, points[0])
		})
	}
}

func TestRecorder_ForcesFirstAndLastPoint(t *testing.T) {
	r := newRegistry()
	var forced []float64
	rec := recorderFunc(func(_ context.Context, t float64, force bool) error {
		if force {
			forced = append(forced, t)
		}
		return errors.New("disk full")
	})
	settings := settingsFor(Jacobi, 0.25, 1)
	settings.PreventOverstepping = true
	s, err := New(settings, []Slave{builtin(t, r, "A", "constant")}, nil, rec)
	require.NoError(t, err)

	require.NoError(t, s.Run(testContext()), "recording problems never stop the run")
	assert.Equal(t, []float64{0, 1}, forced)
}

func TestCancellation(t *testing.T) {
	t.Run("before the first step", func(t *testing.T) {
		r := newRegistry()
		ctx, cancel := context.WithCancel(testContext())
		cancel()
		s, err := New(settingsFor(Jacobi, 0.1, 1), []Slave{builtin(t, r, "A", "constant")}, nil, nil)
		require.NoError(t, err)

		err = s.Run(ctx)

		assert.ErrorIs(t, err, ErrAborted)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, Failed, s.State())
		assert.Zero(t, s.Stats().Steps)
	})

	t.Run("between steps", func(t *testing.T) {
		r := newRegistry()
		ctx, cancel := context.WithCancel(testContext())
		defer cancel()
		rec := recorderFunc(func(_ context.Context, t float64, _ bool) error {
			if t >= 0.5-1e-12 {
				cancel()
			}
			return nil
		})
		s, err := New(settingsFor(Jacobi, 0.1, 1), []Slave{builtin(t, r, "A", "sine")}, nil, rec)
		require.NoError(t, err)

		err = s.Run(ctx)

		require.ErrorIs(t, err, ErrAborted)
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, 6, f.Step)
		assert.Equal(t, 5, s.Stats().Steps)
		assert.InDelta(t, 0.5, s.Clock().Time, 1e-12)
	})
}

func TestInitializationFailures(t *testing.T) {
	t.Run("newton needs checkpoints", func(t *testing.T) {
		w, _ := newPicky(t, "P", 1, false)
		s, err := New(settingsFor(Newton, 0.1, 1), []Slave{w}, nil, nil)
		require.NoError(t, err)

		err = s.Run(testContext())

		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorContains(t, err, "P")
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Zero(t, f.Step)
		assert.Equal(t, Failed, s.State())
	})

	t.Run("start value rejected by the slave", func(t *testing.T) {
		r := newRegistry()
		a := builtin(t, r, "A", "gain")
		s, err := New(settingsFor(Jacobi, 0.1, 1), []Slave{a}, nil, nil,
			WithStartValues(startReal("A", gain.VRY, 1)))
		require.NoError(t, err)

		err = s.Run(testContext())

		assert.ErrorIs(t, err, ErrInitialization)
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, "A", f.Slave)
		assert.Contains(t, f.Native, "cannot be set")
	})

	t.Run("run twice", func(t *testing.T) {
		r := newRegistry()
		s, err := New(settingsFor(Jacobi, 0.5, 1), []Slave{builtin(t, r, "A", "constant")}, nil, nil)
		require.NoError(t, err)
		require.NoError(t, s.Run(testContext()))
		assert.Error(t, s.Run(testContext()))
	})
}

func TestNew_ConfigurationErrors(t *testing.T) {
	r := newRegistry()
	a := builtin(t, r, "A", "constant")
	dup := builtin(t, r, "A", "gain")

	_, err := New(settingsFor(Jacobi, 0.1, 1), []Slave{a, dup}, nil, nil,
		WithStartValues(startReal("Z", 0, 1), startReal("A", 42, 1)))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorContains(t, err, `slave "A" is declared more than once`)
	assert.ErrorContains(t, err, `unknown slave "Z"`)
	assert.ErrorContains(t, err, "value reference 42")

	bad := DefaultSettings()
	bad.StopTime = -1
	_, err = New(bad, []Slave{a}, nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestStatusSnapshot(t *testing.T) {
	r := newRegistry()
	s, err := New(settingsFor(Jacobi, 0.5, 1), []Slave{builtin(t, r, "A", "sine")}, nil, nil)
	require.NoError(t, err)

	before := s.Status()
	assert.Equal(t, Configuring, before.State)
	assert.Equal(t, Clock{Start: 0, End: 1, Time: 0, StepSize: 0.5}, before.Clock)

	require.NoError(t, s.Run(testContext()))
	after := s.Status()
	assert.Equal(t, Completed, after.State)
	assert.Equal(t, 2, after.Stats.Steps)
}
