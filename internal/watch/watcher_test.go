package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/logging"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/table"
	"github.com/klytics/sheetdash/internal/workspace"
)

func newWatcher(t *testing.T, cfg Config, h Handler) *Watcher {
	t.Helper()
	w, err := New(cfg, h, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestMatches(t *testing.T) {
	w := newWatcher(t, Config{Extensions: []string{"CSV", ".xlsx"}}, nil)
	defer w.fsw.Close()

	cases := map[string]bool{
		"/in/sales.csv":     true,
		"/in/SALES.XLSX":    true,
		"/in/sales.xls":     false,
		"/in/~$sales.xlsx":  false,
		"/in/.~lock.csv":    false,
		"/in/notes.txt":     false,
		"/in/archive/a.csv": true,
	}
	for path, want := range cases {
		if got := w.Matches(path); got != want {
			t.Errorf("Matches(%q) = %v, want %v", path, got, want)
		}
	}

	w.Config.Pattern = "sales_*"
	if w.Matches("/in/costs.csv") || !w.Matches("/in/sales_q3.csv") {
		t.Error("pattern not applied")
	}
}

func TestDefaults(t *testing.T) {
	w := newWatcher(t, Config{}, nil)
	defer w.fsw.Close()
	if w.Config.Debounce != DefaultDebounce {
		t.Errorf("debounce = %v", w.Config.Debounce)
	}
	w.Config.Extensions[0] = ".tmp"
	if DefaultExtensions[0] != ".xlsx" {
		t.Error("watcher config aliases DefaultExtensions")
	}
}

func TestWatcherHandlesSettledFile(t *testing.T) {
	dir := t.TempDir()
	var (
		mu    sync.Mutex
		calls = map[string]int{}
	)
	done := make(chan string, 4)
	w := newWatcher(t, Config{Directories: []string{dir}, Debounce: 100 * time.Millisecond},
		func(_ context.Context, path string) error {
			mu.Lock()
			calls[filepath.Base(path)]++
			mu.Unlock()
			done <- path
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- w.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "sales.csv")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("Region,Sales\nEast,1\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	select {
	case got := <-done:
		if filepath.Base(got) != "sales.csv" {
			t.Errorf("handled %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file was not handled")
	}
	time.Sleep(300 * time.Millisecond)

	cancel()
	if err := <-stopped; err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls["sales.csv"] != 1 || len(calls) != 1 {
		t.Errorf("calls = %v", calls)
	}
	if events := w.Events(); len(events) != 1 || events[0].Status != "processed" {
		t.Errorf("events = %+v", events)
	}
}

func TestWatcherRecordsHandlerErrors(t *testing.T) {
	w := newWatcher(t, Config{}, func(context.Context, string) error {
		return errors.New("bad sheet")
	})
	defer w.fsw.Close()

	w.process(context.Background(), "/in/a.csv", "CREATE")
	events := w.Events()
	if len(events) != 1 || events[0].Status != "error" || events[0].Error != "bad sheet" {
		t.Errorf("events = %+v", events)
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := newWatcher(t, Config{Directories: []string{filepath.Join(t.TempDir(), "missing")}}, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}

type fakeWorkspace struct {
	uploads    []workspace.Upload
	dashboards []dashboard.Dashboard
	suggestErr error
}

func (f *fakeWorkspace) Upload(_ context.Context, up workspace.Upload) (store.File, *table.Table, error) {
	tbl, err := table.Parse(up.Data, table.DetectKind(up.Name, up.MimeType))
	if err != nil {
		return store.File{}, nil, err
	}
	f.uploads = append(f.uploads, up)
	return store.File{ID: "f1", FileName: up.Name, RowCount: tbl.Len()}, tbl, nil
}

func (f *fakeWorkspace) CreateDashboard(_ context.Context, name, description, fileID string) (dashboard.Dashboard, error) {
	d := dashboard.Dashboard{ID: "d1", Name: name, Description: description, FileID: fileID}
	f.dashboards = append(f.dashboards, d)
	return d, nil
}

func (f *fakeWorkspace) Suggest(_ context.Context, id string, apply bool) ([]dashboard.Suggestion, dashboard.Dashboard, error) {
	if f.suggestErr != nil {
		return nil, dashboard.Dashboard{}, f.suggestErr
	}
	ss := []dashboard.Suggestion{{Type: dashboard.Bar, Title: "By region", XAxis: "Region", YAxis: "Sales"}}
	d := f.dashboards[0]
	d.Charts = []dashboard.Chart{{ID: "c1", Type: dashboard.Bar, Title: "By region", XAxis: "Region", YAxis: "Sales"}}
	return ss, d, nil
}

func writeSheet(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("Region,Sales\nEast,100\nWest,50\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngesterUploadOnly(t *testing.T) {
	ws := &fakeWorkspace{}
	var got []Ingested
	in := NewIngester(ws, logging.Discard())
	in.OnIngest = func(i Ingested) { got = append(got, i) }

	if err := in.Handle(context.Background(), writeSheet(t, "q3.csv")); err != nil {
		t.Fatal(err)
	}
	if len(ws.uploads) != 1 || ws.uploads[0].MimeType != "text/csv" {
		t.Errorf("uploads = %+v", ws.uploads)
	}
	if len(ws.dashboards) != 0 {
		t.Error("no dashboard expected")
	}
	if len(got) != 1 || got[0].File.RowCount != 2 || got[0].Dashboard != nil {
		t.Errorf("ingested = %+v", got)
	}
}

func TestIngesterWithSuggestions(t *testing.T) {
	ws := &fakeWorkspace{}
	var got Ingested
	in := NewIngester(ws, logging.Discard(), WithSuggestions())
	in.OnIngest = func(i Ingested) { got = i }

	if err := in.Handle(context.Background(), writeSheet(t, "q3 sales.csv")); err != nil {
		t.Fatal(err)
	}
	if got.Dashboard == nil || got.Dashboard.Name != "q3 sales" || got.Dashboard.FileID != "f1" {
		t.Fatalf("dashboard = %+v", got.Dashboard)
	}
	if got.Charts != 1 || len(got.Dashboard.Charts) != 1 {
		t.Errorf("charts = %d, %+v", got.Charts, got.Dashboard.Charts)
	}
}

func TestIngesterSuggestionFailureKeepsDashboard(t *testing.T) {
	ws := &fakeWorkspace{suggestErr: errors.New("service down")}
	var got Ingested
	in := NewIngester(ws, logging.Discard(), WithSuggestions())
	in.OnIngest = func(i Ingested) { got = i }

	if err := in.Handle(context.Background(), writeSheet(t, "q3.csv")); err != nil {
		t.Fatalf("suggestion failure should not fail ingest: %v", err)
	}
	if got.Dashboard == nil || got.Charts != 0 {
		t.Errorf("ingested = %+v", got)
	}
}

func TestIngesterRejectsUnparsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	os.WriteFile(path, []byte("Region,Sales\n"), 0644)

	in := NewIngester(&fakeWorkspace{}, logging.Discard(), WithDashboard())
	err := in.Handle(context.Background(), path)
	if !errors.Is(err, table.ErrEmptyTable) {
		t.Errorf("err = %v", err)
	}
}
