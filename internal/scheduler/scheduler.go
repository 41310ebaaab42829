package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/graph"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

// Slave is the part of *slave.Wrapper the scheduler drives.
type Slave interface {
	Name() string
	Descriptor() *fmi.Descriptor
	LastDiagnostic() string

	Instantiate(ctx context.Context) error
	EnterInitialization(ctx context.Context, tStart, tEnd float64) error
	ExitInitialization(ctx context.Context) error

	SetValue(vr uint32, v fmi.Value) error
	GetValue(t fmi.Type, vr uint32) (fmi.Value, error)
	DoStep(ctx context.Context, t, h float64) (slave.StepStatus, error)

	CanCheckpoint() bool
	Snapshot() (slave.CheckpointID, error)
	Restore(id slave.CheckpointID) error
	Release(id slave.CheckpointID) error
}

// Recorder receives every accepted communication point. force is set for
// the first and the last point of a run.
type Recorder interface {
	Record(ctx context.Context, t float64, force bool) error
}

// StartValue is written into a slave between entering and leaving
// initialization.
type StartValue struct {
	Slave          string
	ValueReference uint32
	Value          fmi.Value
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStartValues seeds parameters and fixed inputs.
func WithStartValues(values ...StartValue) Option {
	return func(s *Scheduler) {
		s.starts = append(s.starts, values...)
	}
}

// link is a graph edge resolved against the slaves of the run.
type link struct {
	edge     graph.Edge
	src, dst int
	from, to *fmi.Variable
}

// probe is a Real output sampled for error estimation.
type probe struct {
	slave int
	vr    uint32
}

// Scheduler runs one simulation. It is not reusable: Run may be called
// once. State, Clock, Stats and Status are safe to call concurrently with
// Run.
type Scheduler struct {
	settings Settings
	slaves   []Slave
	index    map[string]int
	graph    *graph.Graph
	links    []link
	incoming [][]int
	feedback bool
	probes   []probe
	starts   []StartValue
	recorder Recorder

	mu    sync.RWMutex
	state RunState
	clock Clock
	stats Stats

	// Owned by the goroutine calling Run.
	retryable bool
	h         float64
	calm      int
	smooth    int
}

// New prepares a run over slaves, which must be in declaration order; that
// order is the stepping order of the Seidel and Newton modes. g may be nil
// for a run without connections and recorder may be nil.
func New(settings Settings, slaves []Slave, g *graph.Graph, recorder Recorder, opts ...Option) (*Scheduler, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	s := &Scheduler{
		settings: settings,
		slaves:   slaves,
		index:    make(map[string]int, len(slaves)),
		graph:    g,
		incoming: make([][]int, len(slaves)),
		recorder: recorder,
		clock: Clock{
			Start:    settings.StartTime,
			End:      settings.StopTime,
			Time:     settings.StartTime,
			StepSize: settings.StepSize,
		},
		h: settings.StepSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	var errs []string
	for i, sl := range slaves {
		if _, dup := s.index[sl.Name()]; dup {
			errs = append(errs, fmt.Sprintf("slave %q is declared more than once", sl.Name()))
			continue
		}
		s.index[sl.Name()] = i
		for _, v := range sl.Descriptor().ByCausality(fmi.Output) {
			if v.Type == fmi.Real {
				s.probes = append(s.probes, probe{slave: i, vr: v.ValueReference})
			}
		}
	}
	if g != nil {
		for _, e := range g.Edges() {
			l, err := s.resolve(e)
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}
			s.incoming[l.dst] = append(s.incoming[l.dst], len(s.links))
			s.links = append(s.links, l)
			if l.src >= l.dst {
				s.feedback = true
			}
		}
	}
	for _, sv := range s.starts {
		i, ok := s.index[sv.Slave]
		if !ok {
			errs = append(errs, fmt.Sprintf("start value for unknown slave %q", sv.Slave))
			continue
		}
		if _, ok := slaves[i].Descriptor().Lookup(sv.Value.Type, sv.ValueReference); !ok {
			errs = append(errs, fmt.Sprintf("start value for slave %q: no %s variable with value reference %d", sv.Slave, sv.Value.Type, sv.ValueReference))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: scheduler setup failed:\n- %s", ErrConfiguration, strings.Join(errs, "\n- "))
	}
	return s, nil
}

func (s *Scheduler) resolve(e graph.Edge) (link, error) {
	l := link{edge: e}
	var ok bool
	if l.src, ok = s.index[e.From.Slave]; !ok {
		return l, fmt.Errorf("connection %s: unknown slave %q", e, e.From.Slave)
	}
	if l.dst, ok = s.index[e.To.Slave]; !ok {
		return l, fmt.Errorf("connection %s: unknown slave %q", e, e.To.Slave)
	}
	if l.from, ok = s.slaves[l.src].Descriptor().Variable(e.From.Variable); !ok {
		return l, fmt.Errorf("connection %s: unknown variable %q", e, e.From)
	}
	if l.to, ok = s.slaves[l.dst].Descriptor().Variable(e.To.Variable); !ok {
		return l, fmt.Errorf("connection %s: unknown variable %q", e, e.To)
	}
	return l, nil
}

// State returns the run state.
func (s *Scheduler) State() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Clock returns a copy of the simulation clock.
func (s *Scheduler) Clock() Clock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}

// Stats returns a copy of the run counters.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Status returns state, clock and counters taken at the same instant.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{State: s.state, Clock: s.clock, Stats: s.stats}
}

func (s *Scheduler) setState(st RunState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Scheduler) count(fn func(st *Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// eps is the tolerance used to decide that the end time has been reached.
func (s *Scheduler) eps() float64 {
	return 1e-12 * math.Max(1, math.Abs(s.settings.StopTime))
}

func (s *Scheduler) finished() bool {
	return s.clock.Time >= s.settings.StopTime-s.eps()
}

// Run initializes every slave and drives them to the stop time. The slaves
// are not released; that is the caller's job even when Run fails.
//
// Cancelling ctx aborts the run before the next macro step. A step already
// in progress is never interrupted.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Configuring {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("scheduler cannot run in state %s", st)
	}
	s.state = Initializing
	s.mu.Unlock()

	ctx, logger := ctxlog.With(ctx, "component", "scheduler")
	logger.Info("Initializing slaves.",
		"slaves", len(s.slaves),
		"connections", len(s.links),
		"mode", s.settings.Mode.String(),
		"error_control", s.settings.ErrorControl.String(),
	)
	if s.graph != nil && s.settings.Mode != Newton {
		for _, loop := range s.graph.AlgebraicLoops() {
			logger.Warn("Algebraic loop is coupled explicitly; its values lag by one step.", "slaves", loop)
		}
	}

	if err := s.initialize(ctx); err != nil {
		return s.fail(ctx, s.failure(0, s.settings.StartTime, 0, err))
	}
	s.setState(Running)
	s.record(ctx, s.clock.Time, true)
	logger.Info("Simulation started.", "start", s.settings.StartTime, "stop", s.settings.StopTime, "step_size", s.h, "checkpoints", s.retryable)

	for !s.finished() {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("%w: %w", ErrAborted, err)
			return s.fail(ctx, s.failure(s.stats.Steps+1, s.clock.Time, s.h, err))
		}
		if f := s.macroStep(ctx); f != nil {
			return s.fail(ctx, f)
		}
	}

	s.setState(Completed)
	st := s.Stats()
	logger.Info("Simulation completed.",
		"time", s.clock.Time,
		"steps", st.Steps,
		"rejected", st.Rejected,
		"iterations", st.Iterations,
	)
	return nil
}

func (s *Scheduler) initialize(ctx context.Context) error {
	st := s.settings
	for _, sl := range s.slaves {
		if err := sl.Instantiate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	s.retryable = true
	var missing []string
	for _, sl := range s.slaves {
		if !sl.CanCheckpoint() {
			s.retryable = false
			missing = append(missing, sl.Name())
		}
	}
	if st.needsCheckpoints() && len(missing) > 0 {
		return fmt.Errorf("%w: %s coupling with %s error control needs checkpoints, which these slaves cannot provide: %s",
			ErrConfiguration, st.Mode, st.ErrorControl, strings.Join(missing, ", "))
	}

	for _, sl := range s.slaves {
		if err := sl.EnterInitialization(ctx, st.StartTime, st.StopTime); err != nil {
			return fmt.Errorf("%w: %w", ErrInitialization, err)
		}
	}
	for _, sv := range s.starts {
		if err := s.slaves[s.index[sv.Slave]].SetValue(sv.ValueReference, sv.Value); err != nil {
			return fmt.Errorf("%w: %w", ErrInitialization, err)
		}
	}
	for _, sl := range s.slaves {
		if err := sl.ExitInitialization(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrInitialization, err)
		}
	}

	// First outputs become visible before the first step.
	for i := range s.slaves {
		for _, li := range s.incoming[i] {
			l := &s.links[li]
			v, err := s.read(l)
			if err == nil {
				err = s.write(l, v)
			}
			if err != nil {
				return fmt.Errorf("%w: initial exchange: %w", ErrInitialization, err)
			}
		}
	}
	return nil
}

// record forwards a point to the recorder. Output problems never stop the
// run; the recorder reports them again when it is closed.
func (s *Scheduler) record(ctx context.Context, t float64, force bool) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, t, force); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to record outputs.", "time", t, "error", err)
	}
}

func (s *Scheduler) failure(step int, t, h float64, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	name, diag := blame(err)
	if diag == "" && name != "" {
		if i, ok := s.index[name]; ok {
			diag = s.slaves[i].LastDiagnostic()
		}
	}
	return &Failure{Step: step, Time: t, StepSize: h, Slave: name, Kind: kindOf(err), Native: diag, Err: err}
}

func (s *Scheduler) fail(ctx context.Context, f *Failure) error {
	s.setState(Failed)
	ctxlog.FromContext(ctx).Error("Simulation failed.",
		"step", f.Step,
		"time", f.Time,
		"step_size", f.StepSize,
		"slave", f.Slave,
		"kind", f.Kind,
		"native", f.Native,
		"error", f.Err,
	)
	return f
}
