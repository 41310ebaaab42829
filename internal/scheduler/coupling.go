package scheduler

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

func (s *Scheduler) read(l *link) (fmi.Value, error) {
	return s.slaves[l.src].GetValue(l.from.Type, l.from.ValueReference)
}

// write applies the edge transform to a source value and sets the target.
func (s *Scheduler) write(l *link, v fmi.Value) error {
	var (
		out fmi.Value
		err error
	)
	if l.edge.Identity() {
		out, err = v.Convert(l.to.Type)
	} else {
		out, err = fmi.RealValue(l.edge.Transform(v.Float())).Convert(l.to.Type)
	}
	if err != nil {
		return &slaveFault{slave: l.edge.To.Slave, err: fmt.Errorf("connection %s: %w", l.edge, err)}
	}
	return s.slaves[l.dst].SetValue(l.to.ValueReference, out)
}

func (s *Scheduler) stepSlave(ctx context.Context, i int, t, h float64) error {
	sl := s.slaves[i]
	status, err := sl.DoStep(ctx, t, h)
	if err != nil {
		return err
	}
	if status == slave.StepRejected {
		return &slaveFault{slave: sl.Name(), err: fmt.Errorf("%w at t=%g with h=%g", ErrStepRejected, t, h)}
	}
	return nil
}

// couple advances every slave from t by h with the configured exchange.
func (s *Scheduler) couple(ctx context.Context, t, h float64) error {
	switch s.settings.Mode {
	case Seidel:
		return s.seidel(ctx, t, h)
	case Newton:
		return s.newton(ctx, t, h)
	default:
		return s.jacobi(ctx, t, h)
	}
}

func (s *Scheduler) jacobi(ctx context.Context, t, h float64) error {
	values := make([]fmi.Value, len(s.links))
	for i := range s.links {
		v, err := s.read(&s.links[i])
		if err != nil {
			return err
		}
		values[i] = v
	}
	for i := range s.links {
		if err := s.write(&s.links[i], values[i]); err != nil {
			return err
		}
	}
	for i := range s.slaves {
		if err := s.stepSlave(ctx, i, t, h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) seidel(ctx context.Context, t, h float64) error {
	for i := range s.slaves {
		for _, li := range s.incoming[i] {
			l := &s.links[li]
			v, err := s.read(l)
			if err != nil {
				return err
			}
			if err := s.write(l, v); err != nil {
				return err
			}
		}
		if err := s.stepSlave(ctx, i, t, h); err != nil {
			return err
		}
	}
	return nil
}

// newton iterates Seidel sweeps from the step start until the source value
// of every edge settles. Sources stepped later in the sweep deliver their
// value from the end of the previous iteration.
func (s *Scheduler) newton(ctx context.Context, t, h float64) error {
	logger := ctxlog.FromContext(ctx)

	start, err := s.snapshotAll()
	if err != nil {
		return err
	}
	defer s.releaseAll(ctx, start)

	prev := make([]fmi.Value, len(s.links))
	next := make([]fmi.Value, len(s.links))
	for i := range s.links {
		if prev[i], err = s.read(&s.links[i]); err != nil {
			return err
		}
	}

	residual := math.Inf(1)
	for k := 1; k <= s.settings.MaxIterations; k++ {
		s.count(func(c *Stats) { c.Iterations++ })
		if k > 1 {
			if err := s.restoreAll(start); err != nil {
				return err
			}
		}
		for i := range s.slaves {
			for _, li := range s.incoming[i] {
				l := &s.links[li]
				v := prev[li]
				if l.src < i {
					if v, err = s.read(l); err != nil {
						return err
					}
				}
				if err := s.write(l, v); err != nil {
					return err
				}
			}
			if err := s.stepSlave(ctx, i, t, h); err != nil {
				return err
			}
		}
		if !s.feedback {
			return nil
		}
		for i := range s.links {
			if next[i], err = s.read(&s.links[i]); err != nil {
				return err
			}
		}
		residual = s.residual(prev, next)
		logger.Debug("Fixed-point iteration.", "time", t, "step_size", h, "iteration", k, "residual", residual)
		if k >= 2 && residual <= 1 {
			return nil
		}
		prev, next = next, prev
	}
	return fmt.Errorf("%w: no fixed point after %d iterations at t=%g with h=%g (scaled residual %.3g)",
		ErrConvergence, s.settings.MaxIterations, t, h, residual)
}

// residual is the largest change between two iterations, scaled by the
// tolerances. Values at or below 1 are converged.
func (s *Scheduler) residual(prev, next []fmi.Value) float64 {
	a := make([]float64, len(next))
	b := make([]float64, len(prev))
	for i := range next {
		if next[i].Type == fmi.String {
			if next[i].Str != prev[i].Str {
				a[i] = math.Inf(1)
			}
			continue
		}
		a[i], b[i] = next[i].Float(), prev[i].Float()
	}
	return scaledMaxError(a, b, s.settings.AbsTol, s.settings.RelTol)
}

func (s *Scheduler) snapshotAll() ([]slave.CheckpointID, error) {
	ids := make([]slave.CheckpointID, 0, len(s.slaves))
	for _, sl := range s.slaves {
		id, err := sl.Snapshot()
		if err != nil {
			for i, prev := range ids {
				_ = s.slaves[i].Release(prev)
			}
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Scheduler) restoreAll(ids []slave.CheckpointID) error {
	for i, id := range ids {
		if err := s.slaves[i].Restore(id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) releaseAll(ctx context.Context, ids []slave.CheckpointID) {
	for i, id := range ids {
		if err := s.slaves[i].Release(id); err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to release checkpoint.", "slave", s.slaves[i].Name(), "error", err)
		}
	}
}

// sample reads every Real output of every slave.
func (s *Scheduler) sample() ([]float64, error) {
	out := make([]float64, len(s.probes))
	for i, p := range s.probes {
		v, err := s.slaves[p.slave].GetValue(fmi.Real, p.vr)
		if err != nil {
			return nil, err
		}
		out[i] = v.Real
	}
	return out, nil
}
