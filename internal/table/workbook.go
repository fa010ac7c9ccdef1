package table

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readWorkbook opens an .xlsx buffer and returns the selected sheet as typed
// cells. The first sheet in workbook order is used when sheet is empty.
func readWorkbook(data []byte, sheet string) (string, [][]Cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, &DecodeError{Kind: KindWorkbook, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, &DecodeError{Kind: KindWorkbook, Err: fmt.Errorf("workbook has no sheets")}
	}

	if sheet == "" {
		sheet = sheets[0]
	} else if !containsString(sheets, sheet) {
		return "", nil, &DecodeError{
			Kind: KindWorkbook,
			Err:  fmt.Errorf("sheet %q not found; available sheets: %v", sheet, sheets),
		}
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, &DecodeError{Kind: KindWorkbook, Err: fmt.Errorf("could not read sheet %q: %w", sheet, err)}
	}
	formatted, err := f.GetRows(sheet)
	if err != nil {
		return "", nil, &DecodeError{Kind: KindWorkbook, Err: fmt.Errorf("could not read sheet %q: %w", sheet, err)}
	}

	grid := make([][]Cell, len(raw))
	for r, row := range raw {
		cells := make([]Cell, len(row))
		for c, value := range row {
			display := value
			if r < len(formatted) && c < len(formatted[r]) {
				display = formatted[r][c]
			}
			cells[c] = workbookCell(f, sheet, c+1, r+1, value, display)
		}
		grid[r] = cells
	}

	return sheet, grid, nil
}

// workbookCell types a single cell from its stored type and raw value.
func workbookCell(f *excelize.File, sheet string, col, row int, raw, display string) Cell {
	if raw == "" {
		return NullCell()
	}

	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return StringCell(display)
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		typ = excelize.CellTypeUnset
	}

	switch typ {
	case excelize.CellTypeBool:
		switch strings.ToUpper(raw) {
		case "1", "TRUE":
			return BoolCell(true)
		case "0", "FALSE":
			return BoolCell(false)
		}
		return StringCell(display)
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return NumberCell(n)
		}
		return StringCell(display)
	case excelize.CellTypeDate:
		return StringCell(display)
	default:
		// shared/inline strings, formula string results and error values
		return StringCell(raw)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
