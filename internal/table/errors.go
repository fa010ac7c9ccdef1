package table

import (
	"errors"
	"fmt"
)

// ErrEmptyTable is returned when a file has a header row but no data rows.
var ErrEmptyTable = errors.New("file must have headers and at least one row of data")

// DecodeError reports bytes that could not be decoded as the declared kind.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode %s data: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err came from parsing a table.
func IsParseError(err error) bool {
	var de *DecodeError
	return errors.Is(err, ErrEmptyTable) || errors.As(err, &de)
}
