package table

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Kind is the decoding hint supplied with an uploaded file.
type Kind int

const (
	// KindUnknown means the file type could not be inferred.
	KindUnknown Kind = iota
	// KindWorkbook is a binary spreadsheet container (.xlsx).
	KindWorkbook
	// KindDelimited is delimited text (.csv).
	KindDelimited
)

func (k Kind) String() string {
	switch k {
	case KindWorkbook:
		return "workbook"
	case KindDelimited:
		return "delimited-text"
	default:
		return "unknown"
	}
}

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
	mimeCSV  = "text/csv"
)

// AcceptedMIMETypes lists the upload content types recognized as spreadsheets.
var AcceptedMIMETypes = []string{mimeXLSX, mimeXLS, mimeCSV}

// AcceptedExtensions lists the upload file extensions recognized as spreadsheets.
var AcceptedExtensions = []string{".xlsx", ".xls", ".csv"}

// DetectKind infers the decoding hint from a file name and optional MIME type.
// An accepted extension wins. Otherwise a known MIME type decides, and other
// familiar extensions are the last resort.
func DetectKind(fileName, mimeType string) Kind {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".xlsx", ".xls":
		return KindWorkbook
	case ".csv":
		return KindDelimited
	}

	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch mt {
	case mimeXLSX, mimeXLS:
		return KindWorkbook
	case mimeCSV, "text/plain", "application/csv", "text/tab-separated-values":
		return KindDelimited
	}

	switch ext {
	case ".xlsm":
		return KindWorkbook
	case ".tsv", ".txt":
		return KindDelimited
	}
	return KindUnknown
}

// Options tunes parsing. The zero value reads the first sheet and sniffs the
// delimiter.
type Options struct {
	// Sheet selects a workbook sheet by name instead of the first one.
	Sheet string
	// Delimiter forces the field separator for delimited text.
	Delimiter rune
}

// Parse decodes data as the given kind using default options.
func Parse(data []byte, kind Kind) (*Table, error) {
	return ParseWith(data, kind, Options{})
}

// ParseWith decodes data as the given kind. Row 0 is always the header row.
func ParseWith(data []byte, kind Kind, opts Options) (*Table, error) {
	var (
		sheet string
		grid  [][]Cell
		err   error
	)

	switch kind {
	case KindWorkbook:
		sheet, grid, err = readWorkbook(data, opts.Sheet)
	case KindDelimited:
		sheet = "Sheet1"
		grid, err = readDelimited(data, opts.Delimiter)
	default:
		return nil, &DecodeError{Kind: kind, Err: fmt.Errorf("unsupported file type")}
	}
	if err != nil {
		return nil, err
	}

	return fromGrid(sheet, grid)
}

// fromGrid zips every row after the first against the header row.
func fromGrid(sheet string, grid [][]Cell) (*Table, error) {
	if len(grid) < 2 {
		return nil, ErrEmptyTable
	}

	headerCells := trimTrailingNulls(grid[0])
	if len(headerCells) == 0 {
		return nil, ErrEmptyTable
	}
	headers := make([]string, len(headerCells))
	for i, c := range headerCells {
		headers[i] = c.String()
	}

	// Blank rows stay as all-null records so row counts match the sheet.
	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		rows = append(rows, Row(cells))
	}

	return New(sheet, headers, rows), nil
}

func trimTrailingNulls(cells []Cell) []Cell {
	n := len(cells)
	for n > 0 && cells[n-1].IsNull() {
		n--
	}
	return cells[:n]
}
