package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klytics/sheetdash/cmd/version"
	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/export"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/table"
	"github.com/klytics/sheetdash/internal/workspace"
)

// Exit codes for consistent error reporting.
const (
	ExitOK          = 0 // success
	ExitUserError   = 1 // bad flags, unreadable sheet, unknown id
	ExitSystemError = 2 // storage failure, suggestion service down
)

// JSONResult is the standard JSON output envelope for all commands.
type JSONResult struct {
	OK      bool   `json:"ok"`
	Command string `json:"command"`
	Version string `json:"version"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PrintJSON writes a standard success JSON result.
func PrintJSON(w io.Writer, cmd string, data any) error {
	return encode(w, JSONResult{
		OK:      true,
		Command: cmd,
		Version: version.Version,
		Data:    data,
	})
}

// PrintJSONError writes a standard error JSON result.
func PrintJSONError(w io.Writer, cmd string, err error, code int) error {
	if encErr := encode(w, JSONResult{
		OK:      false,
		Command: cmd,
		Version: version.Version,
		Error:   err.Error(),
		Code:    code,
	}); encErr != nil {
		return fmt.Errorf("could not encode JSON error: %w", encErr)
	}
	return nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ExitCode classifies err. Input the user can fix exits 1; everything else
// exits 2.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var verr *workspace.ValidationError
	var usage *UsageError
	switch {
	case errors.As(err, &usage),
		errors.As(err, &verr),
		table.IsParseError(err),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, dashboard.ErrUnknownChartType),
		errors.Is(err, export.ErrInvalidDocument),
		errors.Is(err, workspace.ErrNoFile):
		return ExitUserError
	}
	return ExitSystemError
}

// UsageError marks an error caused by how a command was invoked.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usagef builds a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}
