package dashboard

import (
	"github.com/klytics/sheetdash/internal/aggregate"
	"github.com/klytics/sheetdash/internal/table"
)

// ChartData is the series a chart displays against a table. Bar and pie
// charts carry Points; line and area charts carry Rows.
//
// StaleAxes lists the chart's axis names that are not headers of the table.
// Aggregation still runs and treats those columns as empty.
type ChartData struct {
	Chart     Chart             `json:"chart"`
	Points    []aggregate.Point `json:"points,omitempty"`
	Rows      []table.Record    `json:"rows,omitempty"`
	StaleAxes []string          `json:"staleAxes,omitempty"`
}

// Stale reports whether any axis of the chart is missing from the table.
func (d ChartData) Stale() bool { return len(d.StaleAxes) > 0 }

// Series derives the data for one chart. limit bounds the row window of
// sequential charts; zero uses aggregate.DefaultWindow.
func Series(c Chart, t *table.Table, limit int) ChartData {
	data := ChartData{Chart: c}
	if t == nil {
		return data
	}
	data.StaleAxes = t.Missing(c.XAxis, c.YAxis)
	if c.Type.Categorical() {
		data.Points = aggregate.Categorical(t, c.XAxis, c.YAxis)
	} else {
		if limit <= 0 {
			limit = aggregate.DefaultWindow
		}
		data.Rows = aggregate.Window(t, limit)
	}
	return data
}

// SeriesAll derives data for every chart in order.
func SeriesAll(charts []Chart, t *table.Table, limit int) []ChartData {
	out := make([]ChartData, len(charts))
	for i, c := range charts {
		out[i] = Series(c, t, limit)
	}
	return out
}
