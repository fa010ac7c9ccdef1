package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/export"
	"github.com/klytics/sheetdash/internal/output"
)

func newExportCommand() *cobra.Command {
	var format, outPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "export <dashboard-id>",
		Short: "Export a dashboard's charts or their data",
		Long: `Writes the dashboard's chart configuration as JSON or YAML, which 'dash
dashboard import' reads back. --format xlsx instead writes a workbook with
one sheet per chart holding the values it displays.

Example:
  dash dashboard export <id> > q3.json
  dash dashboard export <id> --format yaml --out q3.yaml
  dash dashboard export <id> --format xlsx --out q3-data.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = "json"
				if outPath != "" {
					format = string(export.FormatFromPath(outPath))
					if strings.EqualFold(filepath.Ext(outPath), ".xlsx") {
						format = "xlsx"
					}
				}
			}
			if format == "xlsx" && outPath == "" {
				return output.Usagef("--format xlsx needs --out <file.xlsx>")
			}

			return app.Run(cmd, func(a *app.App) error {
				var buf bytes.Buffer
				if format == "xlsx" {
					series, err := a.Workspace.Series(cmd.Context(), args[0], limit)
					if err != nil {
						return err
					}
					if err := export.WriteSeries(&buf, series); err != nil {
						return err
					}
				} else {
					f, err := export.ParseFormat(format)
					if err != nil {
						return output.Usagef("%v", err)
					}
					d, err := a.Workspace.Dashboard(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if err := export.Encode(&buf, export.NewDocument(d), f); err != nil {
						return err
					}
				}

				if outPath == "" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
					return fmt.Errorf("could not write %s: %w", outPath, err)
				}
				return app.Output(cmd, "dashboard export").Result(map[string]any{"path": outPath, "format": format, "bytes": buf.Len()}, func(w io.Writer) error {
					output.Success(w, "Exported to %s", outPath)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json | yaml | xlsx (default: from --out extension, else json)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().IntVar(&limit, "limit", 0, "Rows exported for line and area charts (default 50)")
	return cmd
}

func newImportCommand() *cobra.Command {
	var format, fileID string

	cmd := &cobra.Command{
		Use:   "import <document>",
		Short: "Create a dashboard from an exported document",
		Long:  "Reads a JSON or YAML dashboard document and creates a new dashboard with fresh chart ids. Pass '-' to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return output.Usagef("could not read %s: %v", args[0], err)
			}

			f := export.FormatFromPath(args[0])
			if format != "" {
				if f, err = export.ParseFormat(format); err != nil {
					return output.Usagef("%v", err)
				}
			}
			doc, err := export.Decode(bytes.NewReader(data), f)
			if err != nil {
				return err
			}

			return app.Run(cmd, func(a *app.App) error {
				d, err := a.Workspace.ImportDashboard(cmd.Context(), doc, fileID)
				if err != nil {
					return err
				}
				return app.Output(cmd, "dashboard import").Result(d, func(w io.Writer) error {
					output.Success(w, "Imported %q with %d charts", d.Name, len(d.Charts))
					fmt.Fprintf(w, "Dashboard ID: %s\n", d.ID)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json | yaml (default: from the file extension)")
	cmd.Flags().StringVarP(&fileID, "file", "f", "", "Bind the new dashboard to an uploaded file")
	return cmd
}
