package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/output"
	"github.com/specialistvlad/cosimgo/internal/session"
)

// Run loads the project, prepares a session and drives the simulation to its
// end time. Outputs recorded before a failure are still written; the session
// is always torn down.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "project", a.config.ProjectPath)

	a.startHealthcheckServer(ctx)
	defer func() { err = errors.Join(err, a.closeHealthcheckServer(ctx)) }()

	model, err := a.loader.Load(ctx, a.config.ProjectPath)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	a.logger.Debug("Project loaded into unified model.", "slaves", len(model.Slaves), "connections", len(model.Connections))

	sess, err := session.New(ctx, model, a.registry)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, sess.Close(context.WithoutCancel(ctx))) }()

	sinks, err := a.sinks()
	if err != nil {
		return err
	}
	columns := output.Columns(sess.OutputSlaves()...)
	recorder, err := output.NewRecorder(ctx, columns, sess.Settings().MinOutputInterval, sinks...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := recorder.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to write outputs: %w", cerr))
		}
	}()

	sched, err := sess.NewScheduler(recorder)
	if err != nil {
		return err
	}
	a.setRun(sched, recorder)

	settings := sess.Settings()
	a.logger.Info("🚀 Starting co-simulation...",
		"slaves", len(sess.Slaves()),
		"columns", len(columns),
		"mode", settings.Mode.String(),
		"error_control", settings.ErrorControl.String(),
		"start", settings.StartTime,
		"stop", settings.StopTime,
	)
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	stats := sched.Stats()
	a.logger.Info("🏁 Simulation finished.",
		"time", sched.Clock().Time,
		"steps", stats.Steps,
		"rejected", stats.Rejected,
		"iterations", stats.Iterations,
	)
	return nil
}

// sinks builds the configured output sinks. CSV creation is the only one that
// can fail here; the live sink connects when the recorder opens it.
func (a *App) sinks() ([]output.Sink, error) {
	var sinks []output.Sink
	if p := a.config.OutputPath; p != "" {
		csv, err := output.CreateCSV(p)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csv)
	}
	title := strings.TrimSuffix(filepath.Base(a.config.ProjectPath), filepath.Ext(a.config.ProjectPath))
	if p := a.config.ChartPath; p != "" {
		sinks = append(sinks, output.NewChartSink(p, title))
	}
	if p := a.config.PlotPath; p != "" {
		sinks = append(sinks, output.NewPlotSink(p, title))
	}
	if u := a.config.LiveURL; u != "" {
		sinks = append(sinks, output.NewLiveSink(u, a.config.LiveNamespace))
	}
	return sinks, nil
}
