package dashboard

import (
	"context"
	"fmt"

	"github.com/klytics/sheetdash/internal/table"
)

// Saver persists a dashboard's chart configuration.
type Saver interface {
	SaveCharts(ctx context.Context, dashboardID string, charts []Chart) (Dashboard, error)
}

// Session edits one dashboard in memory. Mutations only mark the session
// dirty; nothing is written until Save.
type Session struct {
	dash   Dashboard
	table  *table.Table
	charts *Charts
	saver  Saver
	dirty  bool
}

// NewSession opens an editing session. tbl may be nil when the dashboard has
// no file; charts then get empty axes and series are empty.
func NewSession(d Dashboard, tbl *table.Table, saver Saver, ids IDGenerator) *Session {
	return &Session{
		dash:   d,
		table:  tbl,
		charts: NewCharts(ids, d.Charts),
		saver:  saver,
	}
}

// Dashboard returns the dashboard with the in-memory chart list.
func (s *Session) Dashboard() Dashboard {
	d := s.dash
	d.Charts = s.charts.List()
	return d
}

// Table returns the table the session's charts read from, or nil.
func (s *Session) Table() *table.Table { return s.table }

// Charts returns the current charts in display order.
func (s *Session) Charts() []Chart { return s.charts.List() }

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Add appends a new chart of the given type.
func (s *Session) Add(t ChartType) (Chart, error) {
	if !t.Valid() {
		return Chart{}, fmt.Errorf("%w %q", ErrUnknownChartType, t)
	}
	s.dirty = true
	return s.charts.Add(t, s.table), nil
}

// Update applies patch to the chart with the given id. Unknown ids are
// ignored and reported as false.
func (s *Session) Update(id string, patch ChartPatch) (bool, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return false, fmt.Errorf("%w %q", ErrUnknownChartType, *patch.Type)
	}
	if patch.Empty() {
		_, ok := s.charts.Get(id)
		return ok, nil
	}
	ok := s.charts.Update(id, patch)
	if ok {
		s.dirty = true
	}
	return ok, nil
}

// Remove deletes the chart with the given id.
func (s *Session) Remove(id string) bool {
	ok := s.charts.Remove(id)
	if ok {
		s.dirty = true
	}
	return ok
}

// Apply appends suggestions as charts.
func (s *Session) Apply(ss ...Suggestion) []Chart {
	if len(ss) == 0 {
		return nil
	}
	s.dirty = true
	return s.charts.ApplyAll(ss)
}

// Series derives the data of every chart against the session table.
func (s *Session) Series(limit int) []ChartData {
	return SeriesAll(s.charts.List(), s.table, limit)
}

// Discard drops unsaved changes and reverts to the last saved charts.
func (s *Session) Discard() {
	s.charts = NewCharts(s.charts.ids, s.dash.Charts)
	s.dirty = false
}

// Save commits the chart list. On failure the session keeps its changes and
// stays dirty.
func (s *Session) Save(ctx context.Context) error {
	if s.saver == nil {
		return fmt.Errorf("session has no saver")
	}
	saved, err := s.saver.SaveCharts(ctx, s.dash.ID, s.charts.List())
	if err != nil {
		return err
	}
	s.dash = saved
	s.charts = NewCharts(s.charts.ids, saved.Charts)
	s.dirty = false
	return nil
}
