package suggest

import (
	"context"
	"errors"
	"fmt"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/table"
)

// Sample size bounds. The service is only ever shown the head of the table.
const (
	MinSampleRows     = 5
	MaxSampleRows     = 10
	DefaultSampleRows = MaxSampleRows
)

// Adapter sends tables to a Service and filters what comes back.
type Adapter struct {
	svc        Service
	sampleRows int
}

// NewAdapter wraps svc. sampleRows is clamped to [MinSampleRows,
// MaxSampleRows]; zero uses DefaultSampleRows.
func NewAdapter(svc Service, sampleRows int) *Adapter {
	switch {
	case sampleRows == 0:
		sampleRows = DefaultSampleRows
	case sampleRows < MinSampleRows:
		sampleRows = MinSampleRows
	case sampleRows > MaxSampleRows:
		sampleRows = MaxSampleRows
	}
	return &Adapter{svc: svc, sampleRows: sampleRows}
}

// SampleRows returns the configured sample size.
func (a *Adapter) SampleRows() int { return a.sampleRows }

// Request asks for suggestions about t. Suggestions whose axes are not
// headers of t, or whose type is unknown, are dropped. The service is called
// once; failures come back as *ServiceError.
func (a *Adapter) Request(ctx context.Context, t *table.Table) ([]dashboard.Suggestion, error) {
	if t == nil || len(t.Headers) == 0 {
		return nil, fmt.Errorf("no table to suggest charts for")
	}

	req := Request{
		Headers:    append([]string(nil), t.Headers...),
		SampleRows: t.Records(a.sampleRows),
	}
	got, err := a.svc.Suggest(ctx, req)
	if err != nil {
		var se *ServiceError
		if errors.As(err, &se) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &ServiceError{Kind: ErrServiceUnavailable, Err: err}
	}
	return Filter(got, t), nil
}

// Filter keeps the suggestions whose type is known and whose axes are both
// headers of t, in their original order.
func Filter(ss []dashboard.Suggestion, t *table.Table) []dashboard.Suggestion {
	out := make([]dashboard.Suggestion, 0, len(ss))
	for _, s := range ss {
		if !s.Type.Valid() {
			continue
		}
		if !t.HasColumn(s.XAxis) || !t.HasColumn(s.YAxis) {
			continue
		}
		out = append(out, s)
	}
	return out
}
