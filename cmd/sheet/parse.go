package sheet

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/table"
)

// NewParseCommand returns the parse command.
func NewParseCommand() *cobra.Command {
	var (
		sheetName string
		rows      int
	)

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a spreadsheet and print its columns and rows",
		Long: `Reads an .xlsx or .csv file the same way uploads are read: the first row
holds the headers, cells are typed as number, text, boolean or empty, and
blank rows are skipped. Pass '-' to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := readTable(args[0], sheetName)
			if err != nil {
				return err
			}
			out := app.Output(cmd, "parse")
			if out.JSON() {
				return out.Result(tbl, nil)
			}

			var sb strings.Builder
			if err := printTable(&sb, tbl, rows); err != nil {
				return err
			}
			if output.ShouldPage(sb.String()) {
				return output.Page(sb.String())
			}
			_, err = io.WriteString(cmd.OutOrStdout(), sb.String())
			return err
		},
	}

	cmd.Flags().StringVar(&sheetName, "sheet", "", "Workbook sheet to read (default: first sheet)")
	cmd.Flags().IntVarP(&rows, "rows", "n", 20, "Rows to print (0 for all)")
	return cmd
}

func printTable(w io.Writer, tbl *table.Table, n int) error {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s: %d rows, %d columns\n\n", tbl.SheetName, tbl.Len(), len(tbl.Headers))

	records := tbl.Records(n)
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = make([]string, len(r.Cells))
		for j, c := range r.Cells {
			rows[i][j] = c.String()
		}
	}
	if err := output.Table(w, tbl.Headers, rows); err != nil {
		return err
	}
	if len(records) < tbl.Len() {
		color.New(color.Faint).Fprintf(w, "\n... %d more rows\n", tbl.Len()-len(records))
	}
	return nil
}
