package output

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	// Image formats accepted by Save.
	_ "gonum.org/v1/plot/vg/vgeps"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// PlotSink renders a static plot when it is closed. The image format follows
// the file extension: png, jpg, svg, pdf, eps or tif.
type PlotSink struct {
	path    string
	title   string
	columns []string
	series  []plotter.XYs
}

// NewPlotSink renders to the file at path.
func NewPlotSink(path, title string) *PlotSink {
	return &PlotSink{path: path, title: title}
}

func (s *PlotSink) Open(_ context.Context, columns []string) error {
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".png", ".jpg", ".jpeg", ".svg", ".pdf", ".eps", ".tif", ".tiff":
	default:
		return fmt.Errorf("unsupported plot format %q", ext)
	}
	s.columns = columns
	s.series = make([]plotter.XYs, len(columns))
	return nil
}

// Write keeps the row. Non-finite values leave a gap in their series.
func (s *PlotSink) Write(_ context.Context, row Row) error {
	for i, v := range row.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		s.series[i] = append(s.series[i], plotter.XY{X: row.Time, Y: v})
	}
	return nil
}

// Plot builds the plot from the rows collected so far.
func (s *PlotSink) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.title
	p.X.Label.Text = "time"
	p.Add(plotter.NewGrid())

	for i, name := range s.columns {
		if len(s.series[i]) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.series[i])
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true
	return p, nil
}

func (s *PlotSink) Close(context.Context) error {
	if s.series == nil {
		return nil
	}
	p, err := s.Plot()
	if err != nil {
		return fmt.Errorf("failed to build plot: %w", err)
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, s.path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
