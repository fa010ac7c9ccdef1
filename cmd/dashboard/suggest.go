package dashboard

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	dash "github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/progress"
)

func newSuggestCommand() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "suggest <dashboard-id>",
		Short: "Ask for chart suggestions for a dashboard's file",
		Long: `Sends the headers and first rows of the dashboard's file to the suggestion
service. With --apply every suggestion is added to the dashboard as a chart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				if err := a.RequireSuggest(); err != nil {
					return err
				}
				spin := progress.NewSpinner(cmd.ErrOrStderr(), "Asking for chart suggestions")
				spin.Start()
				got, d, err := a.Workspace.Suggest(cmd.Context(), args[0], apply)
				spin.Stop()
				if err != nil {
					return err
				}
				res := struct {
					Suggestions []dash.Suggestion `json:"suggestions"`
					Dashboard   dash.Dashboard    `json:"dashboard"`
					Applied     bool              `json:"applied"`
				}{got, d, apply && len(got) > 0}
				return app.Output(cmd, "dashboard suggest").Result(res, func(w io.Writer) error {
					output.Suggestions(w, got)
					switch {
					case res.Applied:
						fmt.Fprintln(w)
						output.Success(w, "Added %d charts to %q", len(got), d.Name)
					case len(got) > 0:
						fmt.Fprintf(w, "\nRun with --apply to add them, or pick some in 'dash shell %s'.\n", d.ID)
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Add every suggestion to the dashboard")
	return cmd
}
