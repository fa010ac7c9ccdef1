package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/klytics/sheetdash/internal/ai"
	"github.com/klytics/sheetdash/internal/dashboard"
)

// PromptRows is the number of sample rows quoted in the prompt.
const PromptRows = 5

// ErrInvalidRequest is returned when a request has no headers or samples.
var ErrInvalidRequest = errors.New("missing headers or sample data")

const systemPrompt = `You are a data visualization expert. Analyze the provided spreadsheet data and suggest the best charts to visualize it.

Rules:
- Suggest 2-4 charts that would be most insightful for this data
- Consider the data types: use categorical data for x-axis in bar/pie charts, numeric for y-axis
- Use line/area charts for time series or sequential data
- Use pie charts only when showing parts of a whole (limited categories)
- Each suggestion must use actual column names from the data

Respond with a single JSON object of the form
{"suggestions":[{"type":"bar|line|pie|area","title":"...","xAxis":"...","yAxis":"...","reason":"..."}]}
and nothing else.`

// ProviderService answers suggestion requests with an AI provider.
type ProviderService struct {
	provider ai.Provider
	opts     ai.InferOptions
}

// NewProviderService wraps p. model overrides the provider default when set.
func NewProviderService(p ai.Provider, model string) *ProviderService {
	return &ProviderService{
		provider: p,
		opts:     ai.InferOptions{Model: model, MaxTokens: 2048, Temperature: 0.2},
	}
}

// Suggest prompts the provider once and parses the returned suggestions.
// Suggestions naming columns outside req.Headers are dropped.
func (s *ProviderService) Suggest(ctx context.Context, req Request) ([]dashboard.Suggestion, error) {
	if len(req.Headers) == 0 || req.SampleRows == nil {
		return nil, ErrInvalidRequest
	}

	prompt, err := userPrompt(req)
	if err != nil {
		return nil, err
	}
	res, err := s.provider.Infer(ctx, systemPrompt, []ai.Message{{Role: "user", Content: prompt}}, s.opts)
	if err != nil {
		status := ai.StatusCode(err)
		if status == http.StatusTooManyRequests || status == http.StatusPaymentRequired {
			return nil, &ServiceError{Kind: classifyStatus(status), Status: status, Err: err}
		}
		return nil, &ServiceError{Kind: ErrServiceUnavailable, Status: status, Err: err}
	}

	out, err := parseSuggestions(res.Content)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(req.Headers))
	for _, h := range req.Headers {
		known[h] = true
	}
	kept := out[:0]
	for _, sg := range out {
		if known[sg.XAxis] && known[sg.YAxis] {
			kept = append(kept, sg)
		}
	}
	return kept, nil
}

func userPrompt(req Request) (string, error) {
	rows := req.SampleRows
	if len(rows) > PromptRows {
		rows = rows[:PromptRows]
	}
	sample, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode sample rows: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyze this spreadsheet data and suggest the best charts:\n\n")
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(req.Headers, ", "))
	fmt.Fprintf(&b, "Sample data (first %d rows):\n%s\n\n", PromptRows, sample)
	b.WriteString("Suggest 2-4 optimal charts. For each chart, specify the type (bar/line/pie/area), " +
		"a descriptive title, which column to use for x-axis, which for y-axis, " +
		"and a brief reason why this visualization is useful.")
	return b.String(), nil
}

// parseSuggestions accepts {"suggestions":[...]} or a bare array, optionally
// wrapped in a markdown code fence or surrounding prose.
func parseSuggestions(content string) ([]dashboard.Suggestion, error) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		var obj struct {
			Suggestions []dashboard.Suggestion `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(text[i:j+1]), &obj); err == nil && obj.Suggestions != nil {
			return obj.Suggestions, nil
		}
	}
	if i, j := strings.Index(text, "["), strings.LastIndex(text, "]"); i >= 0 && j > i {
		var arr []dashboard.Suggestion
		if err := json.Unmarshal([]byte(text[i:j+1]), &arr); err == nil {
			return arr, nil
		}
	}
	return nil, malformed("no suggestions returned from AI")
}
