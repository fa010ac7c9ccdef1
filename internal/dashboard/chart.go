// Package dashboard holds the chart collection attached to a dashboard and
// the editing session that mutates it before it is saved.
package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownChartType is wrapped by every chart type validation failure.
var ErrUnknownChartType = errors.New("unknown chart type")

// ChartType is the visual form of a chart.
type ChartType string

const (
	Bar  ChartType = "bar"
	Line ChartType = "line"
	Pie  ChartType = "pie"
	Area ChartType = "area"
)

// ChartTypes lists every supported chart type in toolbar order.
var ChartTypes = []ChartType{Bar, Line, Pie, Area}

// ParseChartType validates a chart type name.
func ParseChartType(s string) (ChartType, error) {
	t := ChartType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w %q (supported: bar, line, pie, area)", ErrUnknownChartType, s)
}

// Valid reports whether t is a supported chart type.
func (t ChartType) Valid() bool {
	switch t {
	case Bar, Line, Pie, Area:
		return true
	}
	return false
}

// Categorical reports whether the chart groups x values into discrete
// categories (bar, pie) rather than plotting rows in sequence (line, area).
func (t ChartType) Categorical() bool {
	return t == Bar || t == Pie
}

// DefaultTitle is the title given to a chart added from the toolbar.
func (t ChartType) DefaultTitle() string {
	s := string(t)
	if s == "" {
		return "New Chart"
	}
	return "New " + strings.ToUpper(s[:1]) + s[1:] + " Chart"
}

// Chart is one chart on a dashboard.
type Chart struct {
	ID    string    `json:"id" yaml:"id"`
	Type  ChartType `json:"type" yaml:"type"`
	Title string    `json:"title" yaml:"title"`
	XAxis string    `json:"xAxis" yaml:"xAxis"`
	YAxis string    `json:"yAxis" yaml:"yAxis"`
}

// ChartPatch carries the fields to change on a chart. Nil fields are kept.
type ChartPatch struct {
	Type  *ChartType `json:"type,omitempty"`
	Title *string    `json:"title,omitempty"`
	XAxis *string    `json:"xAxis,omitempty"`
	YAxis *string    `json:"yAxis,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ChartPatch) Empty() bool {
	return p.Type == nil && p.Title == nil && p.XAxis == nil && p.YAxis == nil
}

func (p ChartPatch) apply(c *Chart) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.XAxis != nil {
		c.XAxis = *p.XAxis
	}
	if p.YAxis != nil {
		c.YAxis = *p.YAxis
	}
}

// Suggestion is a proposed chart returned by the suggestion service. It has
// no id until it is applied to a collection.
type Suggestion struct {
	Type   ChartType `json:"type"`
	Title  string    `json:"title"`
	XAxis  string    `json:"xAxis"`
	YAxis  string    `json:"yAxis"`
	Reason string    `json:"reason"`
}
