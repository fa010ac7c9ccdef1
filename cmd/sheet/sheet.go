// Package sheet provides the commands that work on a local spreadsheet
// without storing it: parse, aggregate and suggest.
package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/table"
)

// readTable parses the file at path, or stdin when path is "-". Stdin is
// treated as delimited text unless kind says otherwise.
func readTable(path, sheet string) (*table.Table, error) {
	var (
		data []byte
		err  error
		kind table.Kind
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("could not read from stdin: %w", err)
		}
		if len(data) == 0 {
			return nil, output.Usagef("no input provided; pass a spreadsheet path or pipe data to stdin")
		}
		kind = table.KindDelimited
		if len(data) > 1 && data[0] == 'P' && data[1] == 'K' {
			kind = table.KindWorkbook
		}
	} else {
		kind = table.DetectKind(path, "")
		if kind == table.KindUnknown {
			return nil, output.Usagef("expected an .xlsx, .xls or .csv file, got %q", filepath.Base(path))
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, output.Usagef("could not read %s: %v", path, err)
		}
	}
	return table.ParseWith(data, kind, table.Options{Sheet: sheet})
}
