// Package session owns everything one run allocates: the descriptor cache,
// the slave wrappers, the native libraries and the validated connection
// graph. Close releases all of it, whatever state the run ended in.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/config"
	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/graph"
	"github.com/specialistvlad/cosimgo/internal/native"
	"github.com/specialistvlad/cosimgo/internal/output"
	"github.com/specialistvlad/cosimgo/internal/registry"
	"github.com/specialistvlad/cosimgo/internal/scheduler"
	"github.com/specialistvlad/cosimgo/internal/slave"
	"github.com/zclconf/go-cty/cty"
)

// Session is one prepared run.
type Session struct {
	settings scheduler.Settings
	cache    *fmi.Cache
	native   *native.Loader
	slaves   []*slave.Wrapper
	graph    *graph.Graph
	results  []graph.Result
	starts   []scheduler.StartValue
}

// New prepares a run of model. Built-in slaves are served by reg, every
// other slave is loaded natively. All configuration problems found before a
// slave is instantiated are reported together and wrap
// scheduler.ErrConfiguration; nothing is left allocated in that case.
//
// A slave whose descriptor cannot be resolved does not stop the checks of
// the others: its connections are undetermined and the remaining edges and
// start values are still validated.
func New(ctx context.Context, model *config.Model, reg *registry.Registry) (*Session, error) {
	logger := ctxlog.FromContext(ctx)

	errs := model.Problems()
	sim := model.Simulation
	if sim == nil {
		sim = config.DefaultSimulation()
	}
	// Settings problems are already part of errs.
	settings, _ := sim.Settings()

	s := &Session{
		settings: settings,
		native:   native.NewLoader(),
	}
	s.cache = fmi.NewCache(func(ctx context.Context, path string) (*fmi.Descriptor, func() error, error) {
		if registry.IsBuiltin(path) {
			return reg.Resolve(ctx, path)
		}
		return fmi.OpenArchive(ctx, path)
	})

	descriptors := make(map[string]*fmi.Descriptor, len(model.Slaves))
	for _, sc := range model.Slaves {
		descriptors[sc.Name] = nil
		if sc.Path == "" {
			continue
		}
		desc, err := s.cache.Get(ctx, sc.Path)
		if err == nil {
			err = usable(desc)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("slave %q: %v", sc.Name, err))
			continue
		}
		descriptors[sc.Name] = desc
		var loader slave.Loader = s.native
		if registry.IsBuiltin(sc.Path) {
			loader = reg
		}
		s.slaves = append(s.slaves, slave.New(sc.Name, desc, loader))
	}
	logger.Debug("Slave descriptors resolved.", "slaves", len(model.Slaves), "binaries", s.cache.Len())

	errs = append(errs, s.connect(ctx, model, descriptors)...)
	errs = append(errs, s.seed(model, descriptors)...)
	if len(errs) > 0 {
		closeErr := s.Close(ctx)
		err := fmt.Errorf("%w: project cannot be run:\n- %s", scheduler.ErrConfiguration, strings.Join(errs, "\n- "))
		return nil, errors.Join(err, closeErr)
	}

	logger.Info("Session prepared.",
		"slaves", len(s.slaves),
		"connections", len(s.graph.Edges()),
		"start_values", len(s.starts),
	)
	return s, nil
}

// usable rejects descriptors that cannot be run as co-simulation slaves.
func usable(desc *fmi.Descriptor) error {
	if !desc.SupportsCoSimulation() {
		return fmt.Errorf("%s does not support co-simulation", desc.Path)
	}
	if registry.IsBuiltin(desc.Path) {
		return nil
	}
	if desc.BinaryPath == "" {
		return fmt.Errorf("%s has no binary for this platform", desc.Path)
	}
	if _, err := os.Stat(desc.BinaryPath); err != nil {
		return fmt.Errorf("%s has no binary for this platform: %w", desc.Path, err)
	}
	return nil
}

// connect validates the connections and builds the graph from the accepted
// ones. Connections that do not parse are skipped; the model reports them.
// Undetermined edges are dropped with a warning.
func (s *Session) connect(ctx context.Context, model *config.Model, descriptors map[string]*fmi.Descriptor) []string {
	logger := ctxlog.FromContext(ctx)

	edges := make([]graph.Edge, 0, len(model.Connections))
	for _, c := range model.Connections {
		if e, err := c.Edge(); err == nil {
			edges = append(edges, e)
		}
	}

	var errs []string
	s.results = graph.Validate(edges, descriptors)
	if err := graph.ConfigErrors(s.results); err != nil {
		errs = append(errs, err.Error())
	}
	for _, r := range s.results {
		if r.Status == graph.StatusUndetermined {
			logger.Warn("Dropping connection that cannot be checked.", "connection", r.Edge.String(), "reason", r.Reason)
		}
	}

	g, err := graph.New(model.SlaveNames(), graph.Accepted(s.results))
	if err != nil {
		return append(errs, err.Error())
	}
	s.graph = g
	return errs
}

// seed turns the configured parameters and fixed inputs into start values.
// An input that is also fed by a connection is rejected. Slaves without a
// resolved descriptor are skipped.
func (s *Session) seed(model *config.Model, descriptors map[string]*fmi.Descriptor) []string {
	connected := make(map[string]bool)
	for _, r := range s.results {
		if r.Status != graph.StatusUndetermined {
			connected[r.Edge.To.String()] = true
		}
	}

	var errs []string
	for _, sc := range model.Slaves {
		desc := descriptors[sc.Name]
		if desc == nil {
			continue
		}
		add := func(kind string, want fmi.Causality, values map[string]cty.Value) {
			for _, name := range sortedKeys(values) {
				v, ok := desc.Variable(name)
				switch {
				case !ok:
					errs = append(errs, fmt.Sprintf("slave %q: %s %q: no such variable", sc.Name, kind, name))
					continue
				case v.Causality != want:
					errs = append(errs, fmt.Sprintf("slave %q: %s %q: variable is %s", sc.Name, kind, name, v.Causality))
					continue
				case connected[sc.Name+"."+name]:
					errs = append(errs, fmt.Sprintf("slave %q: %s %q: variable is fed by a connection", sc.Name, kind, name))
					continue
				}
				val, err := slave.ValueFromCty(values[name], v.Type)
				if err != nil {
					errs = append(errs, fmt.Sprintf("slave %q: %s %q: %v", sc.Name, kind, name, err))
					continue
				}
				s.starts = append(s.starts, scheduler.StartValue{Slave: sc.Name, ValueReference: v.ValueReference, Value: val})
			}
		}
		add("parameter", fmi.Parameter, sc.Parameters)
		add("input", fmi.Input, sc.Inputs)
	}
	return errs
}

func sortedKeys(m map[string]cty.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings returns the validated master settings.
func (s *Session) Settings() scheduler.Settings { return s.settings }

// Graph returns the validated connection graph.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Results returns the classification of every configured connection.
func (s *Session) Results() []graph.Result { return s.results }

// StartValues returns the configured parameters and fixed inputs.
func (s *Session) StartValues() []scheduler.StartValue { return s.starts }

// Slaves returns the wrappers in declaration order.
func (s *Session) Slaves() []*slave.Wrapper { return s.slaves }

// OutputSlaves returns the wrappers as recorder inputs.
func (s *Session) OutputSlaves() []output.Slave {
	out := make([]output.Slave, len(s.slaves))
	for i, w := range s.slaves {
		out[i] = w
	}
	return out
}

// NewScheduler builds the scheduler for this session. recorder may be nil.
func (s *Session) NewScheduler(recorder scheduler.Recorder) (*scheduler.Scheduler, error) {
	slaves := make([]scheduler.Slave, len(s.slaves))
	for i, w := range s.slaves {
		slaves[i] = w
	}
	return scheduler.New(s.settings, slaves, s.graph, recorder, scheduler.WithStartValues(s.starts...))
}

// Close frees every slave, then unloads the native libraries, then removes
// unpacked archives. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for i := len(s.slaves) - 1; i >= 0; i-- {
		if err := s.slaves[i].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.native.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.Error("Session teardown reported errors.", "error", err)
	} else {
		logger.Debug("Session closed.")
	}
	return err
}
