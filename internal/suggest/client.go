package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klytics/sheetdash/internal/dashboard"
)

const maxResponseBytes = 1 << 20

// HTTPService calls a remote suggestion endpoint speaking the
// {headers, sampleRows} → {suggestions} | {error} contract.
type HTTPService struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPService creates a client for endpoint. token, when set, is sent as a
// bearer credential.
func NewHTTPService(endpoint, token string, timeout time.Duration) *HTTPService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPService{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

// Suggest posts req once. Status 429 and 402 map to ErrRateLimited and
// ErrQuotaExhausted; any other failure status, transport error, or a body
// carrying an error field maps to ErrServiceUnavailable.
func (s *HTTPService) Suggest(ctx context.Context, req Request) ([]dashboard.Suggestion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Kind: ErrServiceUnavailable, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &ServiceError{Kind: ErrServiceUnavailable, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ServiceError{Kind: ErrServiceUnavailable, Status: resp.StatusCode, Err: err}
	}

	var out Response
	decodeErr := json.Unmarshal(respBody, &out)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, out.Error)
	}
	if decodeErr != nil {
		return nil, &ServiceError{Kind: ErrMalformedResponse, Status: resp.StatusCode, Err: decodeErr}
	}
	if out.Error != "" {
		return nil, &ServiceError{Kind: ErrServiceUnavailable, Status: resp.StatusCode, Message: out.Error}
	}
	if out.Suggestions == nil {
		return nil, malformed("response has no suggestions")
	}
	return out.Suggestions, nil
}
