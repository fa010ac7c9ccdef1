// Package apperr maps domain failures to the JSON error envelope of the API.
package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/export"
	"github.com/klytics/sheetdash/internal/logging"
	"github.com/klytics/sheetdash/internal/render"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/suggest"
	"github.com/klytics/sheetdash/internal/table"
	"github.com/klytics/sheetdash/internal/workspace"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeParse          ErrorCode = "PARSE_ERROR"
	CodeNoData         ErrorCode = "NO_DATA"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeTooLarge       ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeQuotaExhausted ErrorCode = "QUOTA_EXHAUSTED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode(code),
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Cause = err
	return e
}

func Internal(message string) *AppError   { return New(CodeInternal, message) }
func BadRequest(message string) *AppError { return New(CodeBadRequest, message) }
func NotFound(message string) *AppError   { return New(CodeNotFound, message) }
func RateLimit(message string) *AppError  { return New(CodeRateLimit, message) }

func statusCode(code ErrorCode) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeParse, CodeNoData:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeQuotaExhausted:
		return http.StatusPaymentRequired
	case CodeServiceUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// From classifies err. Unknown errors become INTERNAL_ERROR with a generic
// message; the cause is kept for logging only.
func From(err error) *AppError {
	var (
		app *AppError
		ve  *workspace.ValidationError
		se  *suggest.ServiceError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &app):
		return app
	case errors.As(err, &ve):
		e := Wrap(err, CodeValidation, ve.Reason)
		e.Details = ve.Field
		return e
	case errors.Is(err, export.ErrInvalidDocument):
		return Wrap(err, CodeValidation, err.Error())
	case errors.Is(err, dashboard.ErrUnknownChartType):
		e := Wrap(err, CodeValidation, err.Error())
		e.Details = "type"
		return e
	case table.IsParseError(err):
		return Wrap(err, CodeParse, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return Wrap(err, CodeNotFound, "not found")
	case errors.Is(err, render.ErrNoData):
		return Wrap(err, CodeNoData, err.Error())
	case errors.Is(err, workspace.ErrNoFile):
		return Wrap(err, CodeBadRequest, err.Error())
	case errors.Is(err, workspace.ErrNoSuggester):
		return Wrap(err, CodeServiceUnavail, err.Error())
	case errors.As(err, &se):
		switch {
		case errors.Is(err, suggest.ErrRateLimited):
			return Wrap(err, CodeRateLimit, se.Public())
		case errors.Is(err, suggest.ErrQuotaExhausted):
			return Wrap(err, CodeQuotaExhausted, se.Public())
		default:
			return Wrap(err, CodeServiceUnavail, se.Public())
		}
	case errors.As(err, &mbe):
		return Wrap(err, CodeTooLarge, fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
	default:
		return Wrap(err, CodeInternal, "An unexpected error occurred")
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

// WriteError writes the error envelope for err and logs it at warn for
// client errors and error for server errors.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := From(err)
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
		appErr.RequestID = logging.RequestID(ctx)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: appErr}); encodeErr != nil {
		logger.ErrorContext(ctx, "failed to encode error response", "encode_error", encodeErr, "original_error", err)
		return
	}

	level := slog.LevelError
	if appErr.StatusCode < 500 {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"cause", appErr.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// WriteSuccess writes data in the success envelope with the given status.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(SuccessResponse{Data: data, Success: true})
}
