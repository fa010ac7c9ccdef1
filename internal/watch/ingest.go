package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/table"
	"github.com/klytics/sheetdash/internal/workspace"
)

// Workspace is the part of the workspace an Ingester writes to.
type Workspace interface {
	Upload(ctx context.Context, up workspace.Upload) (store.File, *table.Table, error)
	CreateDashboard(ctx context.Context, name, description, fileID string) (dashboard.Dashboard, error)
	Suggest(ctx context.Context, dashboardID string, apply bool) ([]dashboard.Suggestion, dashboard.Dashboard, error)
}

// Ingested describes one file taken into the workspace.
type Ingested struct {
	File      store.File           `json:"file"`
	Dashboard *dashboard.Dashboard `json:"dashboard,omitempty"`
	Charts    int                  `json:"charts"`
}

// Ingester uploads watched files and optionally builds a dashboard for each.
type Ingester struct {
	ws        Workspace
	logger    *slog.Logger
	dashboard bool
	suggest   bool

	// OnIngest is called after each successful ingest.
	OnIngest func(Ingested)
}

// IngestOption configures an Ingester.
type IngestOption func(*Ingester)

// WithDashboard creates a dashboard named after each ingested file.
func WithDashboard() IngestOption {
	return func(in *Ingester) { in.dashboard = true }
}

// WithSuggestions applies suggested charts to each created dashboard.
func WithSuggestions() IngestOption {
	return func(in *Ingester) {
		in.dashboard = true
		in.suggest = true
	}
}

// NewIngester builds an Ingester over ws.
func NewIngester(ws Workspace, logger *slog.Logger, opts ...IngestOption) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	in := &Ingester{ws: ws, logger: logger.With("component", "ingest")}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

var mimeTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
}

// Handle uploads the file at path. It satisfies Handler. A failed suggestion
// request is logged and leaves the dashboard empty.
func (in *Ingester) Handle(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	name := filepath.Base(path)
	f, _, err := in.ws.Upload(ctx, workspace.Upload{
		Name:     name,
		MimeType: mimeTypes[strings.ToLower(filepath.Ext(name))],
		Data:     data,
	})
	if err != nil {
		return err
	}
	got := Ingested{File: f}

	if in.dashboard {
		d, err := in.ws.CreateDashboard(ctx, strings.TrimSuffix(name, filepath.Ext(name)), "Imported from "+path, f.ID)
		if err != nil {
			return fmt.Errorf("file %s stored but dashboard not created: %w", f.ID, err)
		}
		if in.suggest {
			ss, updated, err := in.ws.Suggest(ctx, d.ID, true)
			switch {
			case errors.Is(err, context.Canceled):
				return err
			case err != nil:
				in.logger.Warn("suggestions failed", "dashboard_id", d.ID, "error", err)
			default:
				d = updated
				got.Charts = len(ss)
			}
		}
		got.Dashboard = &d
	}

	in.logger.Info("ingested", "path", path, "file_id", f.ID, "rows", f.RowCount)
	if in.OnIngest != nil {
		in.OnIngest(got)
	}
	return nil
}
