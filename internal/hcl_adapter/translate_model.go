// This file translates the decoded HCL blocks into the format-agnostic
// project model of the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/cosimgo/internal/config"
	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/registry"
)

// translateSimulation overlays the attributes present in s onto dst.
func (l *Loader) translateSimulation(s *Simulation, dst *config.Simulation) {
	setIf(&dst.StartTime, s.StartTime)
	setIf(&dst.StopTime, s.StopTime)
	setIf(&dst.StepSize, s.StepSize)
	setIf(&dst.MinStepSize, s.MinStepSize)
	setIf(&dst.MaxStepSize, s.MaxStepSize)
	setIf(&dst.FallbackLimit, s.FallbackLimit)
	setIf(&dst.RelTol, s.RelTol)
	setIf(&dst.AbsTol, s.AbsTol)
	setIf(&dst.MaxIterations, s.MaxIterations)
	setIf(&dst.MasterMode, s.MasterMode)
	setIf(&dst.ErrorControl, s.ErrorControl)
	setIf(&dst.AdjustStepSize, s.AdjustStepSize)
	setIf(&dst.MinOutputInterval, s.MinOutputInterval)
	setIf(&dst.PreventOverstepping, s.PreventOverstepping)
	dst.File = s.DeclRange.Filename
}

// translateSlave converts the HCL-specific slave block into the agnostic
// model. Relative fmu paths are resolved against the declaring file.
func (l *Loader) translateSlave(ctx context.Context, s *Slave) (*config.Slave, error) {
	logger := ctxlog.FromContext(ctx).With("slave", s.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	file := s.DeclRange.Filename
	out := &config.Slave{
		Name: s.Name,
		FMU:  s.FMU,
		Path: resolveFMU(file, s.FMU),
		File: file,
	}

	var err error
	if out.Parameters, err = valueMap(ctx, s.Parameters, "parameters"); err != nil {
		return nil, fmt.Errorf("%s: slave %q: %w", s.DeclRange, s.Name, err)
	}
	if out.Inputs, err = valueMap(ctx, s.Inputs, "inputs"); err != nil {
		return nil, fmt.Errorf("%s: slave %q: %w", s.DeclRange, s.Name, err)
	}
	logger.Debug("Translated slave block.", "path", out.Path, "parameters", len(out.Parameters), "inputs", len(out.Inputs))
	return out, nil
}

// translateConnection converts the HCL-specific connection block into the
// agnostic model.
func (l *Loader) translateConnection(c *Connection) *config.Connection {
	out := &config.Connection{
		From:  c.From,
		To:    c.To,
		Scale: 1,
		File:  c.DeclRange.String(),
	}
	setIf(&out.Scale, c.Scale)
	setIf(&out.Offset, c.Offset)
	return out
}

func resolveFMU(file, fmu string) string {
	if fmu == "" || registry.IsBuiltin(fmu) {
		return fmu
	}
	p := fmu
	if !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(file), p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
