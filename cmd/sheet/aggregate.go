package sheet

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/output"
)

// NewAggregateCommand returns the aggregate command.
func NewAggregateCommand() *cobra.Command {
	var (
		sheetName string
		chartType string
		xAxis     string
		yAxis     string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "aggregate <file> --x <column> [--y <column>]",
		Short: "Compute the series a chart would show for a spreadsheet",
		Long: `Groups rows by the x column and sums the y column for bar and pie charts.
When the y column holds no non-zero numbers, each group counts its rows
instead. Line and area charts show the first rows unchanged.

Example:
  dash aggregate sales.csv --x Region --y Sales
  dash aggregate sales.xlsx --type line --x Month --y Revenue --limit 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if xAxis == "" {
				return output.Usagef("--x is required")
			}
			ct, err := dashboard.ParseChartType(chartType)
			if err != nil {
				return err
			}
			tbl, err := readTable(args[0], sheetName)
			if err != nil {
				return err
			}

			c := dashboard.Chart{Type: ct, Title: ct.DefaultTitle(), XAxis: xAxis, YAxis: yAxis}
			data := dashboard.Series(c, tbl, limit)
			return app.Output(cmd, "aggregate").Result(data, func(w io.Writer) error {
				return output.Series(w, data)
			})
		},
	}

	cmd.Flags().StringVar(&sheetName, "sheet", "", "Workbook sheet to read")
	cmd.Flags().StringVarP(&chartType, "type", "t", "bar", "Chart type: bar | line | pie | area")
	cmd.Flags().StringVar(&xAxis, "x", "", "Column to group or plot along")
	cmd.Flags().StringVar(&yAxis, "y", "", "Column to sum or plot")
	cmd.Flags().IntVar(&limit, "limit", 0, "Rows shown by line and area charts (default 50)")
	return cmd
}

