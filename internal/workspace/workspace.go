// Package workspace ties parsing, storage and suggestions together for one
// user: uploading files, managing dashboards and opening editing sessions.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/klytics/sheetdash/internal/blob"
	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/export"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/suggest"
	"github.com/klytics/sheetdash/internal/table"
)

// DefaultMaxUploadBytes is the largest file accepted by Upload.
const DefaultMaxUploadBytes = 20 << 20

// Workspace is the per-user entry point for every operation.
type Workspace struct {
	store    *store.Store
	blobs    blob.Store
	userID   string
	maxBytes int64
	suggest  *suggest.Adapter
	ids      dashboard.IDGenerator
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.maxBytes = n
		}
	}
}

// WithSuggester sets the suggestion adapter. Without one, Suggest fails.
func WithSuggester(a *suggest.Adapter) Option {
	return func(w *Workspace) { w.suggest = a }
}

// WithIDs sets the chart id generator for sessions.
func WithIDs(ids dashboard.IDGenerator) Option {
	return func(w *Workspace) { w.ids = ids }
}

// WithClock sets the time source used for blob keys.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// New creates a workspace for userID.
func New(st *store.Store, blobs blob.Store, userID string, opts ...Option) *Workspace {
	w := &Workspace{
		store:    st,
		blobs:    blobs,
		userID:   userID,
		maxBytes: DefaultMaxUploadBytes,
		ids:      dashboard.UUIDs,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// UserID returns the user the workspace acts for.
func (w *Workspace) UserID() string { return w.userID }

// MaxUploadBytes is the largest file Upload accepts.
func (w *Workspace) MaxUploadBytes() int64 { return w.maxBytes }

// Ping checks that the store is reachable.
func (w *Workspace) Ping(ctx context.Context) error { return w.store.Ping(ctx) }

// Overview is the landing view: every file and dashboard of the user.
type Overview struct {
	Files      []store.File          `json:"files"`
	Dashboards []dashboard.Dashboard `json:"dashboards"`
}

// Overview loads files and dashboards concurrently. Either failure fails the
// whole load.
func (w *Workspace) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		files, err := w.store.Files(ctx, w.userID)
		ov.Files = files
		return err
	})
	g.Go(func() error {
		dashes, err := w.store.Dashboards(ctx, w.userID)
		ov.Dashboards = dashes
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

// Files lists uploaded files, newest first.
func (w *Workspace) Files(ctx context.Context) ([]store.File, error) {
	return w.store.Files(ctx, w.userID)
}

// File returns one file record.
func (w *Workspace) File(ctx context.Context, id string) (store.File, error) {
	return w.store.File(ctx, w.userID, id)
}

// DeleteFile removes the stored bytes and then the record. Dashboards bound
// to the file are detached.
func (w *Workspace) DeleteFile(ctx context.Context, id string) error {
	f, err := w.store.File(ctx, w.userID, id)
	if err != nil {
		return err
	}
	if err := w.blobs.Delete(ctx, f.FilePath); err != nil {
		return fmt.Errorf("could not delete stored file: %w", err)
	}
	if err := w.store.DeleteFile(ctx, w.userID, id); err != nil {
		return err
	}
	w.logger.Info("file deleted", "file_id", id, "name", f.FileName)
	return nil
}

// LoadTable reads and parses a stored file.
func (w *Workspace) LoadTable(ctx context.Context, fileID string) (*table.Table, error) {
	f, err := w.store.File(ctx, w.userID, fileID)
	if err != nil {
		return nil, err
	}
	data, err := w.blobs.Get(ctx, f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("could not read stored file %s: %w", f.FileName, err)
	}
	return table.Parse(data, table.DetectKind(f.FileName, f.MimeType))
}

// CreateDashboard creates an empty dashboard, optionally bound to a file.
func (w *Workspace) CreateDashboard(ctx context.Context, name, description, fileID string) (dashboard.Dashboard, error) {
	if name == "" {
		return dashboard.Dashboard{}, &ValidationError{Field: "name", Reason: "dashboard name is required"}
	}
	if fileID != "" {
		if _, err := w.store.File(ctx, w.userID, fileID); err != nil {
			return dashboard.Dashboard{}, err
		}
	}
	d, err := w.store.CreateDashboard(ctx, dashboard.Dashboard{
		UserID:      w.userID,
		Name:        name,
		Description: description,
		FileID:      fileID,
	})
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	w.logger.Info("dashboard created", "dashboard_id", d.ID, "name", name)
	return d, nil
}

// Dashboards lists dashboards, most recently updated first.
func (w *Workspace) Dashboards(ctx context.Context) ([]dashboard.Dashboard, error) {
	return w.store.Dashboards(ctx, w.userID)
}

// Dashboard returns one dashboard.
func (w *Workspace) Dashboard(ctx context.Context, id string) (dashboard.Dashboard, error) {
	return w.store.Dashboard(ctx, w.userID, id)
}

// UpdateDashboard changes dashboard metadata or charts.
func (w *Workspace) UpdateDashboard(ctx context.Context, id string, u store.DashboardUpdate) (dashboard.Dashboard, error) {
	if u.Name != nil && *u.Name == "" {
		return dashboard.Dashboard{}, &ValidationError{Field: "name", Reason: "dashboard name is required"}
	}
	if u.FileID != nil && *u.FileID != "" {
		if _, err := w.store.File(ctx, w.userID, *u.FileID); err != nil {
			return dashboard.Dashboard{}, err
		}
	}
	if u.Charts != nil {
		for _, c := range *u.Charts {
			if !c.Type.Valid() {
				return dashboard.Dashboard{}, &ValidationError{Field: "chart_config", Reason: fmt.Sprintf("%v %q", dashboard.ErrUnknownChartType, c.Type)}
			}
		}
	}
	return w.store.UpdateDashboard(ctx, w.userID, id, u)
}

// DeleteDashboard removes a dashboard.
func (w *Workspace) DeleteDashboard(ctx context.Context, id string) error {
	return w.store.DeleteDashboard(ctx, w.userID, id)
}

// OpenSession loads a dashboard and its table for editing. A dashboard
// without a file gets a session with no table.
func (w *Workspace) OpenSession(ctx context.Context, dashboardID string) (*dashboard.Session, error) {
	d, err := w.store.Dashboard(ctx, w.userID, dashboardID)
	if err != nil {
		return nil, err
	}
	var tbl *table.Table
	if d.HasFile() {
		tbl, err = w.LoadTable(ctx, d.FileID)
		if err != nil {
			return nil, err
		}
	}
	return dashboard.NewSession(d, tbl, saver{w}, w.ids), nil
}

// Series derives the chart data of a dashboard.
func (w *Workspace) Series(ctx context.Context, dashboardID string, limit int) ([]dashboard.ChartData, error) {
	s, err := w.OpenSession(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	return s.Series(limit), nil
}

// ErrNoFile is returned when an operation needs the dashboard's table but
// the dashboard has no file.
var ErrNoFile = errors.New("dashboard has no file attached")

// ErrNoSuggester is returned by Suggest when no suggestion service is set up.
var ErrNoSuggester = errors.New("chart suggestions are not configured")

// SuggestTable asks for suggestions about t.
func (w *Workspace) SuggestTable(ctx context.Context, t *table.Table) ([]dashboard.Suggestion, error) {
	if w.suggest == nil {
		return nil, ErrNoSuggester
	}
	return w.suggest.Request(ctx, t)
}

// Suggest asks for chart suggestions for a dashboard's table. With apply set
// every suggestion is appended to the dashboard and saved.
func (w *Workspace) Suggest(ctx context.Context, dashboardID string, apply bool) ([]dashboard.Suggestion, dashboard.Dashboard, error) {
	s, err := w.OpenSession(ctx, dashboardID)
	if err != nil {
		return nil, dashboard.Dashboard{}, err
	}
	if s.Table() == nil {
		return nil, dashboard.Dashboard{}, ErrNoFile
	}
	got, err := w.SuggestTable(ctx, s.Table())
	if err != nil {
		return nil, dashboard.Dashboard{}, err
	}
	if apply && len(got) > 0 {
		s.Apply(got...)
		if err := s.Save(ctx); err != nil {
			return nil, dashboard.Dashboard{}, err
		}
		w.logger.Info("suggestions applied", "dashboard_id", dashboardID, "count", len(got))
	}
	return got, s.Dashboard(), nil
}

type saver struct{ w *Workspace }

func (s saver) SaveCharts(ctx context.Context, id string, charts []dashboard.Chart) (dashboard.Dashboard, error) {
	return s.w.store.SaveCharts(ctx, s.w.userID, id, charts)
}

// ImportDashboard creates a dashboard from an exported document, optionally
// bound to fileID. Charts get fresh ids.
func (w *Workspace) ImportDashboard(ctx context.Context, doc export.Document, fileID string) (dashboard.Dashboard, error) {
	d, err := w.CreateDashboard(ctx, doc.Name, doc.Description, fileID)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	charts := dashboard.NewCharts(w.ids, nil)
	charts.ApplyAll(doc.Suggestions())
	saved, err := w.store.SaveCharts(ctx, w.userID, d.ID, charts.List())
	if err != nil {
		if rmErr := w.store.DeleteDashboard(context.WithoutCancel(ctx), w.userID, d.ID); rmErr != nil {
			w.logger.Warn("could not remove partial import", "dashboard_id", d.ID, "error", rmErr)
		}
		return dashboard.Dashboard{}, err
	}
	return saved, nil
}
