package dashboard

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	dash "github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/table"
)

type chartFlags struct {
	chartType, title, xAxis, yAxis string
}

func (f *chartFlags) register(cmd *cobra.Command, withType bool) {
	if withType {
		cmd.Flags().StringVarP(&f.chartType, "type", "t", "", "Chart type: bar | line | pie | area")
	}
	cmd.Flags().StringVar(&f.title, "title", "", "Chart title")
	cmd.Flags().StringVar(&f.xAxis, "x", "", "X axis column")
	cmd.Flags().StringVar(&f.yAxis, "y", "", "Y axis column")
}

// patch builds a ChartPatch from the flags the user actually passed.
func (f *chartFlags) patch(cmd *cobra.Command) (dash.ChartPatch, error) {
	var p dash.ChartPatch
	if cmd.Flags().Changed("type") {
		t, err := dash.ParseChartType(f.chartType)
		if err != nil {
			return p, err
		}
		p.Type = &t
	}
	if cmd.Flags().Changed("title") {
		p.Title = &f.title
	}
	if cmd.Flags().Changed("x") {
		p.XAxis = &f.xAxis
	}
	if cmd.Flags().Changed("y") {
		p.YAxis = &f.yAxis
	}
	return p, nil
}

type chartResult struct {
	Chart     dash.Chart     `json:"chart"`
	Dashboard dash.Dashboard `json:"dashboard"`
}

func newAddChartCommand() *cobra.Command {
	var flags chartFlags

	cmd := &cobra.Command{
		Use:   "add-chart <dashboard-id> <bar|line|pie|area>",
		Short: "Add a chart to a dashboard",
		Long: `Adds a chart titled after its type and bound to the first two columns of
the dashboard's file. --title, --x and --y override those defaults.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := dash.ParseChartType(args[1])
			if err != nil {
				return err
			}
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}
			return app.Run(cmd, func(a *app.App) error {
				sess, err := a.Workspace.OpenSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				c, err := sess.Add(t)
				if err != nil {
					return err
				}
				if !patch.Empty() {
					if _, err := sess.Update(c.ID, patch); err != nil {
						return err
					}
					c, _ = findChart(sess.Charts(), c.ID)
				}
				if err := sess.Save(cmd.Context()); err != nil {
					return err
				}
				res := chartResult{Chart: c, Dashboard: sess.Dashboard()}
				return app.Output(cmd, "dashboard add-chart").Result(res, func(w io.Writer) error {
					output.Success(w, "Added %s chart %q (%s by %s)", c.Type, c.Title, c.YAxis, c.XAxis)
					fmt.Fprintf(w, "Chart ID: %s\n", c.ID)
					warnMissing(w, sess.Table(), c)
					return nil
				})
			})
		},
	}

	flags.register(cmd, false)
	return cmd
}

func newUpdateChartCommand() *cobra.Command {
	var flags chartFlags

	cmd := &cobra.Command{
		Use:   "update-chart <dashboard-id> <chart-id>",
		Short: "Change a chart's type, title or axes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}
			if patch.Empty() {
				return output.Usagef("nothing to change; pass --type, --title, --x or --y")
			}
			return app.Run(cmd, func(a *app.App) error {
				sess, err := a.Workspace.OpenSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				ok, err := sess.Update(args[1], patch)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("chart %s: %w", args[1], store.ErrNotFound)
				}
				if err := sess.Save(cmd.Context()); err != nil {
					return err
				}
				c, _ := findChart(sess.Charts(), args[1])
				res := chartResult{Chart: c, Dashboard: sess.Dashboard()}
				return app.Output(cmd, "dashboard update-chart").Result(res, func(w io.Writer) error {
					output.Success(w, "Updated chart %q", c.Title)
					warnMissing(w, sess.Table(), c)
					return nil
				})
			})
		},
	}

	flags.register(cmd, true)
	return cmd
}

func newRemoveChartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-chart <dashboard-id> <chart-id>",
		Short: "Remove a chart from a dashboard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				sess, err := a.Workspace.OpenSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !sess.Remove(args[1]) {
					return fmt.Errorf("chart %s: %w", args[1], store.ErrNotFound)
				}
				if err := sess.Save(cmd.Context()); err != nil {
					return err
				}
				return app.Output(cmd, "dashboard remove-chart").Result(sess.Dashboard(), func(w io.Writer) error {
					output.Success(w, "Removed chart %s", args[1])
					return nil
				})
			})
		},
	}
}

func newSeriesCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "series <dashboard-id>",
		Short: "Print the data every chart of a dashboard shows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				series, err := a.Workspace.Series(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return app.Output(cmd, "dashboard series").Result(series, func(w io.Writer) error {
					if len(series) == 0 {
						fmt.Fprintln(w, "No charts")
					}
					for _, d := range series {
						fmt.Fprintf(w, "%s  %s (%s)\n", d.Chart.ID, d.Chart.Title, d.Chart.Type)
						if err := output.Series(w, d); err != nil {
							return err
						}
						fmt.Fprintln(w)
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Rows shown by line and area charts (default 50)")
	return cmd
}

func warnMissing(w io.Writer, tbl *table.Table, c dash.Chart) {
	if tbl == nil {
		return
	}
	if missing := tbl.Missing(c.XAxis, c.YAxis); len(missing) > 0 {
		output.Warn(w, "%s has no column named %v", tbl.SheetName, missing)
	}
}

func findChart(charts []dash.Chart, id string) (dash.Chart, bool) {
	for _, c := range charts {
		if c.ID == id {
			return c, true
		}
	}
	return dash.Chart{}, false
}
