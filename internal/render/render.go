// Package render draws chart series to PNG images.
package render

import (
	"errors"
	"fmt"
	"io"
	"slices"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/table"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("no data to display")

// Options sizes the image. Zero values use 800x400.
type Options struct {
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 400
	}
	return w, h
}

// maxTicks bounds the x labels drawn on sequential charts.
const maxTicks = 12

// PNG renders the chart data as a PNG image.
func PNG(w io.Writer, d dashboard.ChartData, opts Options) error {
	width, height := opts.size()
	switch d.Chart.Type {
	case dashboard.Bar:
		return barChart(w, d, width, height)
	case dashboard.Pie:
		return pieChart(w, d, width, height)
	case dashboard.Line, dashboard.Area:
		return sequenceChart(w, d, width, height)
	default:
		return fmt.Errorf("%w %q", dashboard.ErrUnknownChartType, d.Chart.Type)
	}
}

func barChart(w io.Writer, d dashboard.ChartData, width, height int) error {
	if len(d.Points) == 0 {
		return ErrNoData
	}
	col := PaletteColor(0)
	bars := make([]chart.Value, len(d.Points))
	values := make([]float64, len(d.Points))
	for i, p := range d.Points {
		values[i] = p.Value
		bars[i] = chart.Value{
			Label: p.Key,
			Value: p.Value,
			Style: chart.Style{FillColor: col, StrokeColor: col},
		}
	}
	bw := barWidth(width, len(bars))
	bc := chart.BarChart{
		Title:      d.Chart.Title,
		Width:      width,
		Height:     height,
		BarWidth:   bw,
		BarSpacing: bw / 2,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Range: barRange(values)},
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}

// barRange spans zero and every value so bars grow from the baseline.
// go-chart refuses a range of zero width, so a flat zero series gets 0..1.
func barRange(values []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo == hi {
		hi = 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// flatRange is the y range for a series whose values are all v.
func flatRange(v float64) *chart.ContinuousRange {
	switch {
	case v > 0:
		return &chart.ContinuousRange{Min: 0, Max: v * 1.1}
	case v < 0:
		return &chart.ContinuousRange{Min: v * 1.1, Max: 0}
	}
	return &chart.ContinuousRange{Min: 0, Max: 1}
}

func barWidth(width, n int) int {
	bw := (width - 80) / (n * 2)
	switch {
	case bw < 4:
		return 4
	case bw > 60:
		return 60
	}
	return bw
}

func pieChart(w io.Writer, d dashboard.ChartData, width, height int) error {
	var values []chart.Value
	for i, p := range d.Points {
		if p.Value <= 0 {
			continue
		}
		col := PaletteColor(i)
		values = append(values, chart.Value{
			Label: p.Key,
			Value: p.Value,
			Style: chart.Style{FillColor: col, StrokeColor: col},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}
	pc := chart.PieChart{
		Title:  d.Chart.Title,
		Width:  width,
		Height: height,
		Values: values,
	}
	return pc.Render(chart.PNG, w)
}

func sequenceChart(w io.Writer, d dashboard.ChartData, width, height int) error {
	if len(d.Rows) == 0 {
		return ErrNoData
	}
	xs, ys, ticks := sequence(d.Rows, d.Chart.XAxis, d.Chart.YAxis)
	// A single point has no x range; repeat it. Its one tick would pin the
	// x range to a point again, so it is dropped.
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}
	if len(ticks) < 2 {
		ticks = nil
	}
	yAxis := chart.YAxis{Name: d.Chart.YAxis}
	if slices.Min(ys) == slices.Max(ys) {
		yAxis.Range = flatRange(ys[0])
	}

	col := PaletteColor(0)
	style := chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3}
	if d.Chart.Type == dashboard.Area {
		style = chart.Style{StrokeColor: col, StrokeWidth: 2, FillColor: col.WithAlpha(77)}
	}

	ch := chart.Chart{
		Title:      d.Chart.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: d.Chart.XAxis, Ticks: ticks},
		YAxis:      yAxis,
		Series: []chart.Series{
			chart.ContinuousSeries{Name: d.Chart.YAxis, XValues: xs, YValues: ys, Style: style},
		},
	}
	return ch.Render(chart.PNG, w)
}

// sequence plots rows in table order. Non-numeric y values plot as zero.
func sequence(rows []table.Record, xAxis, yAxis string) ([]float64, []float64, []chart.Tick) {
	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	step := (len(rows) + maxTicks - 1) / maxTicks
	var ticks []chart.Tick
	for i, r := range rows {
		xs[i] = float64(i)
		ys[i], _ = r.Get(yAxis).Float()
		if i%step == 0 {
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: r.Get(xAxis).String()})
		}
	}
	return xs, ys, ticks
}
