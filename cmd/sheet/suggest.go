package sheet

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/progress"
	"github.com/klytics/sheetdash/internal/suggest"
)

// NewSuggestCommand returns the suggest command.
func NewSuggestCommand() *cobra.Command {
	var (
		sheetName  string
		sampleRows int
	)

	cmd := &cobra.Command{
		Use:   "suggest <file>",
		Short: "Ask for chart suggestions about a spreadsheet",
		Long: `Sends the headers and the first rows of a spreadsheet to the configured
suggestion service and prints the charts it proposes. Suggestions naming
columns the sheet does not have are dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(cmd)
			if err != nil {
				return err
			}
			svc, err := app.Suggester(cfg)
			if err != nil {
				return err
			}
			tbl, err := readTable(args[0], sheetName)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("sample-rows") {
				sampleRows = cfg.Suggest.SampleRows
			}

			spin := progress.NewSpinner(cmd.ErrOrStderr(), "Asking for chart suggestions")
			spin.Start()
			got, err := suggest.NewAdapter(svc, sampleRows).Request(cmd.Context(), tbl)
			spin.Stop()
			if err != nil {
				return err
			}
			return app.Output(cmd, "suggest").Result(got, func(w io.Writer) error {
				output.Suggestions(w, got)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sheetName, "sheet", "", "Workbook sheet to read")
	cmd.Flags().IntVar(&sampleRows, "sample-rows", suggest.DefaultSampleRows, "Rows sent to the service (5-10)")
	return cmd
}
