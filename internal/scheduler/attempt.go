package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/slave"
)

type attemptState int

const (
	attemptCouple attemptState = iota
	attemptEstimate
	attemptShrink
	attemptAccept
	attemptFail
)

func (a attemptState) String() string {
	switch a {
	case attemptCouple:
		return "couple"
	case attemptEstimate:
		return "estimate"
	case attemptShrink:
		return "shrink"
	case attemptAccept:
		return "accept"
	case attemptFail:
		return "fail"
	default:
		return fmt.Sprintf("attemptState(%d)", int(a))
	}
}

// errTooLarge marks an error estimate above tolerance.
var errTooLarge = fmt.Errorf("%w: local error estimate exceeds tolerance", ErrStepRejected)

// attempt is one macro step on its way to acceptance.
type attempt struct {
	step    int
	t, h    float64
	clamped bool
	shrunk  bool
	// budget is the number of halvings left before h reaches the minimum.
	budget   int
	start    []slave.CheckpointID
	estimate float64
	cause    error
}

// next classifies the result of a coupling pass.
func (a *attempt) next(err error, ok attemptState) attemptState {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, ErrStepRejected), errors.Is(err, ErrConvergence):
		a.cause = err
		return attemptShrink
	default:
		a.cause = err
		return attemptFail
	}
}

func retryBudget(h, hMin float64) int {
	if h <= hMin {
		return 0
	}
	return int(math.Ceil(math.Log2(h / hMin)))
}

// trialStep is the step size for the next attempt, clamped so the run lands
// on the stop time when overstepping is prevented.
func (s *Scheduler) trialStep() (float64, bool) {
	h := s.h
	if s.settings.PreventOverstepping && s.clock.Time+h >= s.settings.StopTime-s.eps() {
		return s.settings.StopTime - s.clock.Time, true
	}
	return h, false
}

// macroStep runs the attempt state machine until the step is accepted or
// has failed for good.
func (s *Scheduler) macroStep(ctx context.Context) *Failure {
	a := &attempt{
		step:     s.stats.Steps + 1,
		t:        s.clock.Time,
		estimate: math.NaN(),
	}
	a.h, a.clamped = s.trialStep()
	a.budget = retryBudget(a.h, s.settings.MinStepSize)
	ctx, _ = ctxlog.With(ctx, "step", a.step)

	if s.retryable {
		ids, err := s.snapshotAll()
		if err != nil {
			return s.failure(a.step, a.t, a.h, err)
		}
		a.start = ids
		defer s.releaseAll(ctx, ids)
	}

	state := attemptCouple
	for {
		switch state {
		case attemptCouple:
			state = a.next(s.couple(ctx, a.t, a.h), attemptEstimate)
		case attemptEstimate:
			state = s.estimate(ctx, a)
		case attemptShrink:
			state = s.shrink(ctx, a)
		case attemptAccept:
			s.accept(ctx, a)
			return nil
		case attemptFail:
			return s.failure(a.step, a.t, a.h, a.cause)
		default:
			panic(fmt.Sprintf("unexpected attempt state %s", state))
		}
	}
}

// estimate compares the full step just taken with two half steps from the
// same start (Richardson). The half step result is kept.
func (s *Scheduler) estimate(ctx context.Context, a *attempt) attemptState {
	ec := s.settings.ErrorControl
	if ec == ErrorControlNone || len(s.probes) == 0 {
		return attemptAccept
	}
	logger := ctxlog.FromContext(ctx)

	coarse, err := s.sample()
	if err != nil {
		a.cause = err
		return attemptFail
	}
	if err := s.restoreAll(a.start); err != nil {
		a.cause = err
		return attemptFail
	}
	half := a.h / 2
	if next := a.next(s.couple(ctx, a.t, half), attemptEstimate); next != attemptEstimate {
		return next
	}
	if next := a.next(s.couple(ctx, a.t+half, half), attemptEstimate); next != attemptEstimate {
		return next
	}
	fine, err := s.sample()
	if err != nil {
		a.cause = err
		return attemptFail
	}

	a.estimate = scaledMaxError(fine, coarse, s.settings.AbsTol, s.settings.RelTol)
	logger.Debug("Local error estimated.", "time", a.t, "step_size", a.h, "error", a.estimate)
	if a.estimate <= 1 {
		return attemptAccept
	}
	switch {
	case ec == ErrorControlMonitor:
		logger.Warn("Local error exceeds tolerance.", "time", a.t, "step_size", a.h, "error", a.estimate)
		return attemptAccept
	case a.h <= s.settings.MinStepSize:
		logger.Warn("Local error exceeds tolerance at the minimum step size, accepting the step.",
			"time", a.t, "step_size", a.h, "error", a.estimate)
		return attemptAccept
	}
	a.cause = fmt.Errorf("%w: %.3g", errTooLarge, a.estimate)
	return attemptShrink
}

// shrink halves the step size and rewinds every slave to the step start,
// or gives up when the policy or the budget forbids another try.
func (s *Scheduler) shrink(ctx context.Context, a *attempt) attemptState {
	st := s.settings
	s.count(func(c *Stats) { c.Rejected++ })

	if errors.Is(a.cause, ErrConvergence) && !(st.AdjustStepSize && a.h > st.FallbackLimit) {
		return attemptFail
	}
	if a.h <= st.MinStepSize || a.budget == 0 {
		return attemptFail
	}
	if a.start == nil {
		a.cause = fmt.Errorf("%w; cannot retry without checkpoints on every slave", a.cause)
		return attemptFail
	}
	if err := s.restoreAll(a.start); err != nil {
		a.cause = err
		return attemptFail
	}

	prev := a.h
	a.h = math.Max(a.h/2, st.MinStepSize)
	a.budget--
	a.shrunk = true
	a.clamped = false
	a.estimate = math.NaN()
	s.count(func(c *Stats) { c.Shrinks++ })
	ctxlog.FromContext(ctx).Warn("Retrying macro step with a smaller step size.",
		"time", a.t, "from", prev, "to", a.h, "reason", a.cause)
	return attemptCouple
}

// accept moves the clock, picks the next step size and records outputs.
func (s *Scheduler) accept(ctx context.Context, a *attempt) {
	end := a.t + a.h
	if a.clamped {
		end = s.settings.StopTime
	}
	s.mu.Lock()
	s.clock.Time = end
	s.clock.StepSize = a.h
	s.stats.Steps++
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Macro step accepted.", "time", end, "step_size", a.h)

	s.adapt(a)
	s.mu.Lock()
	s.clock.StepSize = s.h
	s.mu.Unlock()

	s.record(ctx, end, s.finished())
}

// adapt chooses the nominal step size after an accepted step. A shrunk step
// becomes the new nominal size. Without error control the size grows back
// towards the configured step size after three calm steps; with Richardson
// control it grows towards the maximum after three steps well within
// tolerance.
func (s *Scheduler) adapt(a *attempt) {
	st := s.settings
	if a.shrunk {
		s.h = a.h
		s.calm, s.smooth = 0, 0
		return
	}
	if st.ErrorControl == ErrorControlRichardsonAdjust {
		if a.estimate < 0.25 {
			s.smooth++
		} else {
			s.smooth = 0
		}
		if s.smooth >= 3 && s.h < st.MaxStepSize {
			s.h = math.Min(2*s.h, st.MaxStepSize)
			s.smooth = 0
		}
		return
	}
	s.calm++
	if s.calm >= 3 && s.h < st.StepSize {
		s.h = math.Min(2*s.h, st.StepSize)
		s.calm = 0
	}
}
