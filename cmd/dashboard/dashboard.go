// Package dashboard provides the dashboard and chart editing commands.
package dashboard

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	dash "github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/store"
)

// NewCommand returns the dashboard command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"db"},
		Short:   "Create dashboards and edit their charts",
		Long: `Create dashboards over uploaded files and edit their charts.

Example:
  dash dashboard create "Q3 sales" --file <file-id>
  dash dashboard suggest <dashboard-id> --apply
  dash dashboard add-chart <dashboard-id> bar --x Region --y Sales
  dash dashboard render <dashboard-id> --out charts/`,
	}

	cmd.AddCommand(newCreateCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newRenameCommand())
	cmd.AddCommand(newDeleteCommand())
	cmd.AddCommand(newAddChartCommand())
	cmd.AddCommand(newUpdateChartCommand())
	cmd.AddCommand(newRemoveChartCommand())
	cmd.AddCommand(newSeriesCommand())
	cmd.AddCommand(newSuggestCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newImportCommand())
	cmd.AddCommand(newRenderCommand())
	return cmd
}

func newCreateCommand() *cobra.Command {
	var description, fileID string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				d, err := a.Workspace.CreateDashboard(cmd.Context(), args[0], description, fileID)
				if err != nil {
					return err
				}
				return app.Output(cmd, "dashboard create").Result(d, func(w io.Writer) error {
					output.Success(w, "Created dashboard %q", d.Name)
					fmt.Fprintf(w, "Dashboard ID: %s\n", d.ID)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Dashboard description")
	cmd.Flags().StringVarP(&fileID, "file", "f", "", "Uploaded file the charts read from")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dashboards, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				dashes, err := a.Workspace.Dashboards(cmd.Context())
				if err != nil {
					return err
				}
				return app.Output(cmd, "dashboard list").Result(dashes, func(w io.Writer) error {
					if len(dashes) == 0 {
						fmt.Fprintln(w, "No dashboards. Create one with 'dash dashboard create <name>'.")
						return nil
					}
					rows := make([][]string, len(dashes))
					for i, d := range dashes {
						file := d.FileID
						if file == "" {
							file = "-"
						}
						rows[i] = []string{d.ID, d.Name, file, strconv.Itoa(len(d.Charts)), humanize.Time(d.UpdatedAt)}
					}
					return output.Table(w, []string{"ID", "NAME", "FILE", "CHARTS", "UPDATED"}, rows)
				})
			})
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <dashboard-id>",
		Short: "Show a dashboard and its charts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				d, err := a.Workspace.Dashboard(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return app.Output(cmd, "dashboard show").Result(d, func(w io.Writer) error {
					printDashboard(w, d)
					return nil
				})
			})
		},
	}
}

func printDashboard(w io.Writer, d dash.Dashboard) {
	fmt.Fprintf(w, "%s  %s\n", d.ID, d.Name)
	if d.Description != "" {
		fmt.Fprintf(w, "%s\n", d.Description)
	}
	if d.HasFile() {
		fmt.Fprintf(w, "File: %s\n", d.FileID)
	} else {
		fmt.Fprintln(w, "File: none")
	}
	fmt.Fprintf(w, "Updated %s\n\n", humanize.Time(d.UpdatedAt))
	printCharts(w, d.Charts)
}

func printCharts(w io.Writer, charts []dash.Chart) {
	if len(charts) == 0 {
		fmt.Fprintln(w, "No charts")
		return
	}
	rows := make([][]string, len(charts))
	for i, c := range charts {
		rows[i] = []string{c.ID, string(c.Type), c.Title, c.XAxis, c.YAxis}
	}
	output.Table(w, []string{"CHART", "TYPE", "TITLE", "X", "Y"}, rows)
}

func newRenameCommand() *cobra.Command {
	var description, fileID string
	var detach bool

	cmd := &cobra.Command{
		Use:   "rename <dashboard-id> [name]",
		Short: "Change a dashboard's name, description or file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u store.DashboardUpdate
			if len(args) == 2 {
				u.Name = &args[1]
			}
			if cmd.Flags().Changed("description") {
				u.Description = &description
			}
			switch {
			case detach && fileID != "":
				return output.Usagef("--file and --detach cannot be combined")
			case detach:
				empty := ""
				u.FileID = &empty
			case fileID != "":
				u.FileID = &fileID
			}
			if u == (store.DashboardUpdate{}) {
				return output.Usagef("nothing to change; pass a new name, --description, --file or --detach")
			}

			return app.Run(cmd, func(a *app.App) error {
				d, err := a.Workspace.UpdateDashboard(cmd.Context(), args[0], u)
				if err != nil {
					return err
				}
				return app.Output(cmd, "dashboard rename").Result(d, func(w io.Writer) error {
					output.Success(w, "Updated dashboard %q", d.Name)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&fileID, "file", "f", "", "Attach a different file")
	cmd.Flags().BoolVar(&detach, "detach", false, "Detach the dashboard's file")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dashboard-id>",
		Short: "Delete a dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				if err := a.Workspace.DeleteDashboard(cmd.Context(), args[0]); err != nil {
					return err
				}
				return app.Output(cmd, "dashboard delete").Result(map[string]string{"id": args[0]}, func(w io.Writer) error {
					output.Success(w, "Deleted %s", args[0])
					return nil
				})
			})
		},
	}
}
