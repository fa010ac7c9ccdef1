// Package suggest asks a chart suggestion service for chart ideas about a
// table and keeps only the suggestions that fit it.
package suggest

import (
	"context"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/table"
)

// Request is the payload sent to a suggestion service.
type Request struct {
	Headers    []string       `json:"headers"`
	SampleRows []table.Record `json:"sampleRows"`
}

// Response is the payload a suggestion service answers with on success.
// Failures carry only an error field.
type Response struct {
	Suggestions []dashboard.Suggestion `json:"suggestions"`
	Error       string                 `json:"error,omitempty"`
}

// Service proposes charts for a header list and sample rows.
type Service interface {
	Suggest(ctx context.Context, req Request) ([]dashboard.Suggestion, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, req Request) ([]dashboard.Suggestion, error)

// Suggest calls f.
func (f ServiceFunc) Suggest(ctx context.Context, req Request) ([]dashboard.Suggestion, error) {
	return f(ctx, req)
}
