package output

import (
	"context"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// ChartSink collects rows in memory and renders an HTML line chart with one
// series per column when it is closed.
type ChartSink struct {
	path    string
	title   string
	columns []string
	times   []string
	series  [][]opts.LineData
}

// NewChartSink renders to the file at path.
func NewChartSink(path, title string) *ChartSink {
	return &ChartSink{path: path, title: title}
}

func (s *ChartSink) Open(_ context.Context, columns []string) error {
	s.columns = columns
	s.series = make([][]opts.LineData, len(columns))
	return nil
}

func (s *ChartSink) Write(_ context.Context, row Row) error {
	s.times = append(s.times, formatFloat(row.Time))
	for i, v := range row.Values {
		s.series[i] = append(s.series[i], opts.LineData{Value: v})
	}
	return nil
}

// Line builds the chart from the rows collected so far.
func (s *ChartSink) Line() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    s.title,
			Subtitle: fmt.Sprintf("%d samples", len(s.times)),
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "time",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)
	line.SetXAxis(s.times)
	for i, name := range s.columns {
		line.AddSeries(name, s.series[i])
	}
	return line
}

func (s *ChartSink) Close(context.Context) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := s.Line().Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}
