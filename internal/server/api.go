package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klytics/sheetdash/internal/aggregate"
	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/export"
	"github.com/klytics/sheetdash/internal/render"
	"github.com/klytics/sheetdash/internal/server/apperr"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/table"
	"github.com/klytics/sheetdash/internal/workspace"
)

const (
	maxJSONBody = 1 << 20
	// multipart framing around the file part
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
	maxImageSide      = 4096
)

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	apperr.WriteError(w, r, s.logger, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return apperr.Wrap(err, apperr.CodeBadRequest, "invalid JSON body")
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.BadRequest(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.Ping(r.Context()); err != nil {
		s.fail(w, r, apperr.Wrap(err, apperr.CodeServiceUnavail, "database unavailable"))
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.ws.Overview(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, ov)
}

// files

type uploadResponse struct {
	File    store.File `json:"file"`
	Headers []string   `json:"headers"`
	Rows    int        `json:"rows"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	max := s.ws.MaxUploadBytes()
	tooLarge := &workspace.ValidationError{Field: "file size", Reason: fmt.Sprintf("file must be less than %d MB", max>>20)}

	r.Body = http.MaxBytesReader(w, r.Body, max+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.fail(w, r, tooLarge)
			return
		}
		s.fail(w, r, apperr.Wrap(err, apperr.CodeBadRequest, "expected a multipart form with a file field"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, apperr.Wrap(err, apperr.CodeBadRequest, "missing file field"))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if err := s.ws.Validate(header.Filename, mimeType, header.Size); err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, max+1))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	f, tbl, err := s.ws.Upload(r.Context(), workspace.Upload{Name: header.Filename, MimeType: mimeType, Data: data})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusCreated, uploadResponse{File: f, Headers: tbl.Headers, Rows: tbl.Len()})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.ws.Files(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.ws.File(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, f)
}

type tablePreview struct {
	Sheet   string         `json:"sheet,omitempty"`
	Headers []string       `json:"headers"`
	Total   int            `json:"total"`
	Rows    []table.Record `json:"rows"`
}

func (s *Server) handleFileTable(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", aggregate.DefaultWindow)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tbl, err := s.ws.LoadTable(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, tablePreview{
		Sheet:   tbl.SheetName,
		Headers: tbl.Headers,
		Total:   tbl.Len(),
		Rows:    aggregate.Window(tbl, limit),
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ws.DeleteFile(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, map[string]string{"id": id})
}

// dashboards

type createDashboardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FileID      string `json:"file_id"`
}

type updateDashboardRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	FileID      *string            `json:"file_id"`
	Charts      *[]dashboard.Chart `json:"chart_config"`
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	dashes, err := s.ws.Dashboards(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, dashes)
}

func (s *Server) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var req createDashboardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.ws.CreateDashboard(r.Context(), strings.TrimSpace(req.Name), req.Description, req.FileID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusCreated, d)
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.ws.Dashboard(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDashboard(w http.ResponseWriter, r *http.Request) {
	var req updateDashboardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	id := r.PathValue("id")
	d, err := s.ws.UpdateDashboard(r.Context(), id, store.DashboardUpdate{
		Name:        req.Name,
		Description: req.Description,
		FileID:      req.FileID,
		Charts:      req.Charts,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.hub.publish(id)
	apperr.WriteSuccess(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ws.DeleteDashboard(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.hub.publish(id)
	apperr.WriteSuccess(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleExportDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("format")
	if q == "" {
		q = string(export.JSON)
	}
	format, err := export.ParseFormat(q)
	if err != nil {
		s.fail(w, r, apperr.Wrap(err, apperr.CodeBadRequest, err.Error()))
		return
	}
	d, err := s.ws.Dashboard(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Encode(&buf, export.NewDocument(d), format); err != nil {
		s.fail(w, r, err)
		return
	}
	contentType := "application/json"
	if format == export.YAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(d.Name, string(format))))
	w.Write(buf.Bytes())
}

func exportName(name, ext string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, name)
	if base == "" {
		base = "dashboard"
	}
	return base + "." + ext
}

func (s *Server) handleImportDashboard(w http.ResponseWriter, r *http.Request) {
	format := export.JSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := export.ParseFormat(q)
		if err != nil {
			s.fail(w, r, apperr.Wrap(err, apperr.CodeBadRequest, err.Error()))
			return
		}
		format = f
	} else if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = export.YAML
	}

	doc, err := export.Decode(http.MaxBytesReader(w, r.Body, maxJSONBody), format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.ws.ImportDashboard(r.Context(), doc, r.URL.Query().Get("file_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusCreated, d)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	series, err := s.ws.Series(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	apperr.WriteSuccess(w, http.StatusOK, series)
}

func (s *Server) handleSeriesWorkbook(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	series, err := s.ws.Series(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteSeries(&buf, series); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="series.xlsx"`)
	w.Write(buf.Bytes())
}

type suggestResponse struct {
	Suggestions []dashboard.Suggestion `json:"suggestions"`
	Dashboard   dashboard.Dashboard    `json:"dashboard"`
	Applied     bool                   `json:"applied"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	id := r.PathValue("id")
	got, d, err := s.ws.Suggest(r.Context(), id, apply)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if got == nil {
		got = []dashboard.Suggestion{}
	}
	applied := apply && len(got) > 0
	if applied {
		s.hub.publish(id)
	}
	apperr.WriteSuccess(w, http.StatusOK, suggestResponse{Suggestions: got, Dashboard: d, Applied: applied})
}

// charts

type chartResponse struct {
	Chart     dashboard.Chart     `json:"chart"`
	Dashboard dashboard.Dashboard `json:"dashboard"`
}

func (s *Server) handleAddChart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := dashboard.ParseChartType(req.Type)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := r.PathValue("id")
	sess, err := s.ws.OpenSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := sess.Add(t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := sess.Save(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.hub.publish(id)
	apperr.WriteSuccess(w, http.StatusCreated, chartResponse{Chart: c, Dashboard: sess.Dashboard()})
}

func (s *Server) handleUpdateChart(w http.ResponseWriter, r *http.Request) {
	var patch dashboard.ChartPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	id, chartID := r.PathValue("id"), r.PathValue("chart")
	sess, err := s.ws.OpenSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	found, err := sess.Update(chartID, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		s.fail(w, r, apperr.NotFound("chart not found"))
		return
	}
	if sess.Dirty() {
		if err := sess.Save(r.Context()); err != nil {
			s.fail(w, r, err)
			return
		}
		s.hub.publish(id)
	}
	d := sess.Dashboard()
	chart, _ := findChart(d.Charts, chartID)
	apperr.WriteSuccess(w, http.StatusOK, chartResponse{Chart: chart, Dashboard: d})
}

func (s *Server) handleRemoveChart(w http.ResponseWriter, r *http.Request) {
	id, chartID := r.PathValue("id"), r.PathValue("chart")
	sess, err := s.ws.OpenSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !sess.Remove(chartID) {
		s.fail(w, r, apperr.NotFound("chart not found"))
		return
	}
	if err := sess.Save(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.hub.publish(id)
	apperr.WriteSuccess(w, http.StatusOK, sess.Dashboard())
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	var opts render.Options
	var err error
	if opts.Width, err = queryInt(r, "width", 0); err != nil {
		s.fail(w, r, err)
		return
	}
	if opts.Height, err = queryInt(r, "height", 0); err != nil {
		s.fail(w, r, err)
		return
	}
	if opts.Width > maxImageSide || opts.Height > maxImageSide {
		s.fail(w, r, apperr.BadRequest(fmt.Sprintf("width and height must be at most %d", maxImageSide)))
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.ws.OpenSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, ok := findChart(sess.Charts(), r.PathValue("chart"))
	if !ok {
		s.fail(w, r, apperr.NotFound("chart not found"))
		return
	}
	if sess.Table() == nil {
		s.fail(w, r, workspace.ErrNoFile)
		return
	}

	var buf bytes.Buffer
	if err := render.PNG(&buf, dashboard.Series(c, sess.Table(), limit), opts); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func findChart(charts []dashboard.Chart, id string) (dashboard.Chart, bool) {
	for _, c := range charts {
		if c.ID == id {
			return c, true
		}
	}
	return dashboard.Chart{}, false
}
