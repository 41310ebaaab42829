package output

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/specialistvlad/cosimgo/internal/varref"
)

// Slave is the part of a slave wrapper the recorder reads from.
type Slave interface {
	Name() string
	Descriptor() *fmi.Descriptor
	GetValue(t fmi.Type, vr uint32) (fmi.Value, error)
}

// Column is one recorded variable.
type Column struct {
	Name  string
	Slave Slave
	Type  fmi.Type
	VR    uint32
}

// Columns lists every Real, Integer and Boolean output of slaves, in
// declaration order, named slave.variable.
func Columns(slaves ...Slave) []Column {
	var cols []Column
	for _, s := range slaves {
		for _, v := range s.Descriptor().ByCausality(fmi.Output) {
			if v.Type == fmi.String {
				continue
			}
			cols = append(cols, Column{
				Name:  varref.New(s.Name(), v.Name).String(),
				Slave: s,
				Type:  v.Type,
				VR:    v.ValueReference,
			})
		}
	}
	return cols
}

// Row is one recorded communication point.
type Row struct {
	Time   float64
	Values []float64
}

// Sink consumes recorded rows.
type Sink interface {
	Open(ctx context.Context, columns []string) error
	Write(ctx context.Context, row Row) error
	Close(ctx context.Context) error
}

// intervalSlack absorbs the rounding of communication times built by
// repeated addition, so a row due after exactly one interval is not skipped.
const intervalSlack = 1e-9

// Recorder samples the columns and writes rows to every sink. Record must be
// called from the goroutine stepping the slaves; Latest may be called from
// anywhere.
type Recorder struct {
	columns     []Column
	names       []string
	minInterval float64
	sinks       []Sink

	started bool
	last    float64
	// failed sinks are skipped after their first error.
	failed []error

	mu     sync.Mutex
	latest Row
	rows   int
}

// NewRecorder opens every sink. When one fails to open, the sinks already
// opened are closed again.
func NewRecorder(ctx context.Context, columns []Column, minInterval float64, sinks ...Sink) (*Recorder, error) {
	if minInterval < 0 {
		return nil, fmt.Errorf("min output interval %g must not be negative", minInterval)
	}
	r := &Recorder{
		columns:     columns,
		names:       make([]string, len(columns)),
		minInterval: minInterval,
		sinks:       sinks,
		failed:      make([]error, len(sinks)),
	}
	for i, c := range columns {
		r.names[i] = c.Name
	}
	for i, s := range sinks {
		if err := s.Open(ctx, slices.Clone(r.names)); err != nil {
			for _, opened := range sinks[:i] {
				_ = opened.Close(ctx)
			}
			return nil, fmt.Errorf("failed to open output sink %d: %w", i, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Recorder ready.", "columns", len(columns), "sinks", len(sinks), "min_interval", minInterval)
	return r, nil
}

// Names returns the column names.
func (r *Recorder) Names() []string { return slices.Clone(r.names) }

// Record writes a row for time t when force is set or at least the minimum
// interval has passed since the last row. A time already recorded is never
// written twice.
func (r *Recorder) Record(ctx context.Context, t float64, force bool) error {
	if r.started {
		if t <= r.last {
			return nil
		}
		if !force && t-r.last < r.minInterval-intervalSlack*math.Max(1, math.Abs(t)) {
			return nil
		}
	}

	row := Row{Time: t, Values: make([]float64, len(r.columns))}
	for i, c := range r.columns {
		v, err := c.Slave.GetValue(c.Type, c.VR)
		if err != nil {
			return fmt.Errorf("failed to sample %s: %w", c.Name, err)
		}
		row.Values[i] = v.Float()
	}
	r.started = true
	r.last = t

	r.mu.Lock()
	r.latest = row
	r.rows++
	r.mu.Unlock()

	var errs []error
	for i, s := range r.sinks {
		if r.failed[i] != nil {
			continue
		}
		if err := s.Write(ctx, row); err != nil {
			r.failed[i] = err
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latest returns the most recent row and the number of rows recorded.
func (r *Recorder) Latest() (Row, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Row{Time: r.latest.Time, Values: slices.Clone(r.latest.Values)}, r.rows
}

// LatestValues returns the most recent row keyed by column name.
func (r *Recorder) LatestValues() map[string]float64 {
	row, n := r.Latest()
	if n == 0 {
		return nil
	}
	out := make(map[string]float64, len(row.Values))
	for i, v := range row.Values {
		out[r.names[i]] = v
	}
	return out
}

// Close closes every sink and reports the first write error of each sink
// together with any close error.
func (r *Recorder) Close(ctx context.Context) error {
	var errs []error
	for i, s := range r.sinks {
		if r.failed[i] != nil {
			errs = append(errs, r.failed[i])
		}
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_, rows := r.Latest()
	ctxlog.FromContext(ctx).Debug("Recorder closed.", "rows", rows)
	return errors.Join(errs...)
}
