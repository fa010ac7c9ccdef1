package suggest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/klytics/sheetdash/internal/dashboard"
)

const maxRequestBytes = 1 << 20

// Handler serves the suggestion endpoint on top of svc.
func Handler(svc Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(logger, w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}

		var req Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeJSON(logger, w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		got, err := svc.Suggest(r.Context(), req)
		if err != nil {
			var se *ServiceError
			switch {
			case errors.Is(err, ErrInvalidRequest):
				writeJSON(logger, w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
			case errors.As(err, &se):
				logger.Error("chart suggestion failed", "status", se.Status, "error", err)
				writeJSON(logger, w, r, se.HTTPStatus(), map[string]string{"error": se.Public()})
			default:
				logger.Error("chart suggestion failed", "error", err)
				writeJSON(logger, w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
			return
		}
		if got == nil {
			got = []dashboard.Suggestion{}
		}
		writeJSON(logger, w, r, http.StatusOK, Response{Suggestions: got})
	})
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.DebugContext(r.Context(), "suggestion response not written", "status", status, "error", err)
	}
}
