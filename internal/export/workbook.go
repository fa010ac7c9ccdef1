package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/table"
)

const maxSheetName = 31

// WriteSeries writes one worksheet per chart holding the values the chart
// displays: name/value/count for bar and pie charts, x/y pairs for line and
// area charts.
func WriteSeries(w io.Writer, series []dashboard.ChartData) error {
	if len(series) == 0 {
		return fmt.Errorf("dashboard has no charts to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, d := range series {
		sheetName := uniqueSheetName(d.Chart.Title, i, used)

		if i == 0 {
			defaultSheet := f.GetSheetName(0)
			if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
				return fmt.Errorf("could not rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				return fmt.Errorf("could not create sheet %q: %w", sheetName, err)
			}
		}

		for rowIdx, row := range seriesRows(d) {
			cellName, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("invalid cell coordinates: %w", err)
			}
			if err := f.SetSheetRow(sheetName, cellName, &row); err != nil {
				return fmt.Errorf("could not write row %d of %q: %w", rowIdx+1, sheetName, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("could not write workbook: %w", err)
	}
	return nil
}

func seriesRows(d dashboard.ChartData) [][]any {
	if d.Chart.Type.Categorical() {
		rows := [][]any{{d.Chart.XAxis, d.Chart.YAxis, "count"}}
		for _, p := range d.Points {
			rows = append(rows, []any{p.Key, p.Value, p.Count})
		}
		return rows
	}

	rows := [][]any{{d.Chart.XAxis, d.Chart.YAxis}}
	for _, r := range d.Rows {
		rows = append(rows, []any{cellValue(r.Get(d.Chart.XAxis)), cellValue(r.Get(d.Chart.YAxis))})
	}
	return rows
}

func cellValue(c table.Cell) any {
	if c.IsNull() {
		return nil
	}
	if n, ok := c.Num(); ok {
		return n
	}
	if b, ok := c.Boolean(); ok {
		return b
	}
	return c.String()
}

// uniqueSheetName derives a valid, unused worksheet name from a chart title.
func uniqueSheetName(title string, i int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("Chart %d", i+1)
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}

	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
