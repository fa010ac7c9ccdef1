package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/store"
)

var chartListTemplate = template.Must(template.New("chartList").Parse(`<ul id="chart-list">
{{range .}}<li data-chart-id="{{.Chart.ID}}">{{.Chart.Title}} <small>{{.Chart.Type}}</small>{{if .Stale}} <em>missing column: {{range $i, $a := .StaleAxes}}{{if $i}}, {{end}}{{$a}}{{end}}</em>{{end}}</li>
{{else}}<li>No charts yet</li>
{{end}}</ul>`))

// dashboardSignals is the signal payload patched into the client store.
type dashboardSignals struct {
	Dashboard dashboard.Dashboard   `json:"dashboard"`
	Series    []dashboard.ChartData `json:"series"`
	Deleted   bool                  `json:"deleted,omitempty"`
}

// handleDashboardStream sends the dashboard and its series as Datastar
// signals, then again after every change made through the API until the
// client goes away. With ?once=true the stream ends after the first patch.
func (s *Server) handleDashboardStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	once, _ := strconv.ParseBool(r.URL.Query().Get("once"))

	// Resolve before switching to SSE so a missing dashboard is a JSON 404.
	state, err := s.loadSignals(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	updates, unsubscribe := s.hub.subscribe(id)
	defer unsubscribe()

	sse := datastar.NewSSE(w, r)
	for {
		if err := s.patch(sse, state); err != nil {
			s.logger.DebugContext(r.Context(), "sse client gone", "dashboard_id", id, "error", err)
			return
		}
		if once || state.Deleted {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-s.hub.done:
			return
		case <-updates:
		}

		state, err = s.loadSignals(r.Context(), id, limit)
		if errors.Is(err, store.ErrNotFound) {
			state = dashboardSignals{Dashboard: dashboard.Dashboard{ID: id}, Series: []dashboard.ChartData{}, Deleted: true}
		} else if err != nil {
			s.logger.ErrorContext(r.Context(), "reload dashboard for stream", "dashboard_id", id, "error", err)
			return
		}
	}
}

func (s *Server) loadSignals(ctx context.Context, id string, limit int) (dashboardSignals, error) {
	sess, err := s.ws.OpenSession(ctx, id)
	if err != nil {
		return dashboardSignals{}, err
	}
	return dashboardSignals{Dashboard: sess.Dashboard(), Series: sess.Series(limit)}, nil
}

func (s *Server) patch(sse *datastar.ServerSentEventGenerator, state dashboardSignals) error {
	signals, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := sse.PatchSignals(signals); err != nil {
		return err
	}

	var html strings.Builder
	if err := chartListTemplate.Execute(&html, state.Series); err != nil {
		return err
	}
	return sse.PatchElements(html.String())
}
