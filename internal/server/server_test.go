package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klytics/sheetdash/internal/blob"
	"github.com/klytics/sheetdash/internal/config"
	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/server/apperr"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/suggest"
	"github.com/klytics/sheetdash/internal/workspace"
)

const salesCSV = "Region,Sales\nEast,100\nWest,50\nEast,30\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fakeSuggestions() suggest.Service {
	return suggest.ServiceFunc(func(_ context.Context, req suggest.Request) ([]dashboard.Suggestion, error) {
		return []dashboard.Suggestion{
			{Type: dashboard.Bar, Title: "Sales by Region", XAxis: "Region", YAxis: "Sales", Reason: "categorical"},
			{Type: dashboard.Line, Title: "Ghost", XAxis: "Month", YAxis: "Sales"},
		}, nil
	})
}

func newTestServer(t *testing.T, opts ...workspace.Option) *Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "dash.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	blobs, err := blob.NewDir(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	base := []workspace.Option{
		workspace.WithLogger(testLogger()),
		workspace.WithIDs(dashboard.IDFunc(func() string { n++; return fmt.Sprintf("chart-%d", n) })),
		workspace.WithSuggester(suggest.NewAdapter(fakeSuggestions(), 0)),
	}
	ws := workspace.New(st, blobs, "user-1", append(base, opts...)...)
	return New(ws, Options{
		Logger:   testLogger(),
		Suggest:  fakeSuggestions(),
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}},
	})
}

type envelope[T any] struct {
	Data    T                `json:"data"`
	Error   *apperr.AppError `json:"error"`
	Success bool             `json:"success"`
}

func do[T any](t *testing.T, s *Server, method, target string, body string, wantStatus int) T {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d\n%s", method, target, w.Code, wantStatus, w.Body.String())
	}
	var env envelope[T]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode: %v\n%s", method, target, err, w.Body.String())
	}
	return env.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) apperr.ErrorCode {
	t.Helper()
	var env envelope[any]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil || env.Error == nil {
		t.Fatalf("not an error envelope: %s", w.Body.String())
	}
	return env.Error.Code
}

func uploadRequest(t *testing.T, name, contentType, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func upload(t *testing.T, s *Server) store.File {
	t.Helper()
	w := httptest.NewRecorder()
	s.ServeHTTP(w, uploadRequest(t, "sales.csv", "text/csv", salesCSV))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d\n%s", w.Code, w.Body.String())
	}
	var env envelope[uploadResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	return env.Data.File
}

func createDashboard(t *testing.T, s *Server, fileID string) dashboard.Dashboard {
	t.Helper()
	return do[dashboard.Dashboard](t, s, http.MethodPost, "/api/dashboards",
		fmt.Sprintf(`{"name":"Sales","file_id":%q}`, fileID), http.StatusCreated)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	got := do[map[string]string](t, s, http.MethodGet, "/health", "", http.StatusOK)
	if got["status"] != "ok" {
		t.Errorf("health = %v", got)
	}
}

func TestUploadAndList(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, uploadRequest(t, "sales.csv", "text/csv", salesCSV))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	var env envelope[uploadResponse]
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Data.Rows != 3 || strings.Join(env.Data.Headers, ",") != "Region,Sales" {
		t.Errorf("upload = %+v", env.Data)
	}

	files := do[[]store.File](t, s, http.MethodGet, "/api/files", "", http.StatusOK)
	if len(files) != 1 || files[0].FileName != "sales.csv" || files[0].RowCount != 3 {
		t.Errorf("files = %+v", files)
	}

	preview := do[tablePreview](t, s, http.MethodGet, "/api/files/"+files[0].ID+"/table?limit=2", "", http.StatusOK)
	if preview.Total != 3 || len(preview.Rows) != 2 {
		t.Errorf("preview = %+v", preview)
	}

	do[map[string]string](t, s, http.MethodDelete, "/api/files/"+files[0].ID, "", http.StatusOK)
	if files := do[[]store.File](t, s, http.MethodGet, "/api/files", "", http.StatusOK); len(files) != 0 {
		t.Errorf("files after delete = %+v", files)
	}
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		content     string
		status      int
		code        apperr.ErrorCode
	}{
		{"wrong type", "notes.txt", "text/plain", "hello", http.StatusBadRequest, apperr.CodeValidation},
		{"header only", "empty.csv", "text/csv", "a,b\n", http.StatusUnprocessableEntity, apperr.CodeParse},
		{"too large", "big.csv", "text/csv", "a,b\n" + strings.Repeat("1,2\n", 64), http.StatusBadRequest, apperr.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, workspace.WithMaxUploadBytes(128))
			w := httptest.NewRecorder()
			s.ServeHTTP(w, uploadRequest(t, tt.file, tt.contentType, tt.content))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d\n%s", w.Code, tt.status, w.Body.String())
			}
			if code := errorCode(t, w); code != tt.code {
				t.Errorf("code = %s, want %s", code, tt.code)
			}
			if files := do[[]store.File](t, s, http.MethodGet, "/api/files", "", http.StatusOK); len(files) != 0 {
				t.Errorf("rejected upload was stored: %+v", files)
			}
		})
	}
}

func TestDashboardChartLifecycle(t *testing.T) {
	s := newTestServer(t)
	f := upload(t, s)
	d := createDashboard(t, s, f.ID)
	base := "/api/dashboards/" + d.ID

	added := do[chartResponse](t, s, http.MethodPost, base+"/charts", `{"type":"bar"}`, http.StatusCreated)
	if added.Chart.Title != "New Bar Chart" || added.Chart.XAxis != "Region" || added.Chart.YAxis != "Sales" {
		t.Errorf("added = %+v", added.Chart)
	}

	updated := do[chartResponse](t, s, http.MethodPatch, base+"/charts/"+added.Chart.ID, `{"title":"Revenue","type":"pie"}`, http.StatusOK)
	if updated.Chart.Title != "Revenue" || updated.Chart.Type != dashboard.Pie {
		t.Errorf("updated = %+v", updated.Chart)
	}

	series := do[[]dashboard.ChartData](t, s, http.MethodGet, base+"/series", "", http.StatusOK)
	if len(series) != 1 || len(series[0].Points) != 2 || series[0].Points[0].Value != 130 {
		t.Errorf("series = %+v", series)
	}

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"/charts/"+added.Chart.ID+"/png?width=320&height=240", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("png status = %d\n%s", w.Code, w.Body.String())
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("png size = %v", b)
	}

	after := do[dashboard.Dashboard](t, s, http.MethodDelete, base+"/charts/"+added.Chart.ID, "", http.StatusOK)
	if len(after.Charts) != 0 {
		t.Errorf("charts after remove = %+v", after.Charts)
	}

	do[map[string]string](t, s, http.MethodDelete, base, "", http.StatusOK)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base, nil))
	if w.Code != http.StatusNotFound || errorCode(t, w) != apperr.CodeNotFound {
		t.Errorf("deleted dashboard: %d %s", w.Code, w.Body.String())
	}
}

func TestChartErrors(t *testing.T) {
	s := newTestServer(t)
	d := createDashboard(t, s, upload(t, s).ID)
	base := "/api/dashboards/" + d.ID

	tests := []struct {
		method, target, body string
		status               int
		code                 apperr.ErrorCode
	}{
		{http.MethodPost, base + "/charts", `{"type":"scatter"}`, http.StatusBadRequest, apperr.CodeValidation},
		{http.MethodPost, base + "/charts", `{`, http.StatusBadRequest, apperr.CodeBadRequest},
		{http.MethodPatch, base + "/charts/nope", `{"title":"x"}`, http.StatusNotFound, apperr.CodeNotFound},
		{http.MethodDelete, base + "/charts/nope", "", http.StatusNotFound, apperr.CodeNotFound},
		{http.MethodGet, base + "/charts/nope/png", "", http.StatusNotFound, apperr.CodeNotFound},
		{http.MethodGet, base + "/series?limit=abc", "", http.StatusBadRequest, apperr.CodeBadRequest},
		{http.MethodPatch, base, `{"name":"  "}`, http.StatusBadRequest, apperr.CodeValidation},
		{http.MethodPost, "/api/dashboards", `{"name":"x","file_id":"missing"}`, http.StatusNotFound, apperr.CodeNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
		if w.Code != tt.status {
			t.Errorf("%s %s: status = %d, want %d\n%s", tt.method, tt.target, w.Code, tt.status, w.Body.String())
			continue
		}
		if code := errorCode(t, w); code != tt.code {
			t.Errorf("%s %s: code = %s, want %s", tt.method, tt.target, code, tt.code)
		}
	}
}

func TestSuggestions(t *testing.T) {
	s := newTestServer(t)
	d := createDashboard(t, s, upload(t, s).ID)
	base := "/api/dashboards/" + d.ID + "/suggestions"

	dry := do[suggestResponse](t, s, http.MethodPost, base, "", http.StatusOK)
	if len(dry.Suggestions) != 1 || dry.Applied || len(dry.Dashboard.Charts) != 0 {
		t.Errorf("dry run = %+v", dry)
	}

	applied := do[suggestResponse](t, s, http.MethodPost, base+"?apply=true", "", http.StatusOK)
	if !applied.Applied || len(applied.Dashboard.Charts) != 1 || applied.Dashboard.Charts[0].Title != "Sales by Region" {
		t.Errorf("applied = %+v", applied)
	}

	empty := do[dashboard.Dashboard](t, s, http.MethodPost, "/api/dashboards", `{"name":"No file"}`, http.StatusCreated)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/dashboards/"+empty.ID+"/suggestions", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("no file: status = %d", w.Code)
	}
}

func TestExportImport(t *testing.T) {
	s := newTestServer(t)
	f := upload(t, s)
	d := createDashboard(t, s, f.ID)
	do[chartResponse](t, s, http.MethodPost, "/api/dashboards/"+d.ID+"/charts", `{"type":"line"}`, http.StatusCreated)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboards/"+d.ID+"/export?format=yaml", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/yaml" {
		t.Fatalf("export: %d %v", w.Code, w.Header())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Sales.yaml") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/dashboards/import?file_id="+f.ID, bytes.NewReader(w.Body.Bytes()))
	r.Header.Set("Content-Type", "application/yaml")
	w = httptest.NewRecorder()
	s.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("import: %d\n%s", w.Code, w.Body.String())
	}
	var env envelope[dashboard.Dashboard]
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Data.ID == d.ID || env.Data.Name != "Sales" || len(env.Data.Charts) != 1 || env.Data.Charts[0].Type != dashboard.Line {
		t.Errorf("imported = %+v", env.Data)
	}

	w = httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/dashboards/import", strings.NewReader(`{"version":1,"charts":[]}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid document: %d", w.Code)
	}
}

func TestSeriesWorkbook(t *testing.T) {
	s := newTestServer(t)
	d := createDashboard(t, s, upload(t, s).ID)
	do[chartResponse](t, s, http.MethodPost, "/api/dashboards/"+d.ID+"/charts", `{"type":"bar"}`, http.StatusCreated)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboards/"+d.ID+"/series.xlsx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("workbook is not a zip container")
	}
}

func TestSuggestChartsEndpoint(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/suggest-charts",
		strings.NewReader(`{"headers":["Region","Sales"],"sampleRows":[{"Region":"East","Sales":1}]}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	var resp suggest.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Suggestions) == 0 {
		t.Error("no suggestions")
	}
}

func TestOverview(t *testing.T) {
	s := newTestServer(t)
	createDashboard(t, s, upload(t, s).ID)
	ov := do[workspace.Overview](t, s, http.MethodGet, "/api/overview", "", http.StatusOK)
	if len(ov.Files) != 1 || len(ov.Dashboards) != 1 {
		t.Errorf("overview = %+v", ov)
	}
}

func TestDashboardStreamOnce(t *testing.T) {
	s := newTestServer(t)
	d := createDashboard(t, s, upload(t, s).ID)
	do[chartResponse](t, s, http.MethodPost, "/api/dashboards/"+d.ID+"/charts", `{"type":"bar"}`, http.StatusCreated)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse/dashboards/"+d.ID+"?once=true", nil))
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q\n%s", ct, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"datastar-patch-signals", "datastar-patch-elements", "New Bar Chart", `id="chart-list"`} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}

	w = httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse/dashboards/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing dashboard stream: %d", w.Code)
	}
}

func TestDashboardStreamPushesChanges(t *testing.T) {
	s := newTestServer(t)
	d := createDashboard(t, s, upload(t, s).ID)
	ts := httptest.NewServer(s)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse/dashboards/"+d.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 64*1024), 1<<20)

	waitFor := func(want string) {
		t.Helper()
		for lines.Scan() {
			if strings.Contains(lines.Text(), want) {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", want, lines.Err())
	}

	waitFor(`"name":"Sales"`)
	for s.hub.subscribers(d.ID) == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	patch, _ := http.NewRequest(http.MethodPatch, ts.URL+"/api/dashboards/"+d.ID, strings.NewReader(`{"name":"Renamed"}`))
	presp, err := http.DefaultClient.Do(patch)
	if err != nil {
		t.Fatal(err)
	}
	presp.Body.Close()

	waitFor(`"name":"Renamed"`)
}

func TestDashboardStreamEndsOnDelete(t *testing.T) {
	s := newTestServer(t)
	d := createDashboard(t, s, "")
	ts := httptest.NewServer(s)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sse/dashboards/" + d.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	for s.hub.subscribers(d.ID) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	del, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/dashboards/"+d.ID, nil)
	dresp, err := http.DefaultClient.Do(del)
	if err != nil {
		t.Fatal(err)
	}
	dresp.Body.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.String(), `"deleted":true`) {
		t.Errorf("stream should report deletion:\n%s", body.String())
	}
}
