// Package file provides the file library commands.
package file

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/workspace"
)

// NewCommand returns the file command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Upload and manage spreadsheets",
		Long: `Upload spreadsheets into the library and manage them.

Example:
  dash file upload sales.xlsx
  dash file list
  dash file show <file-id>
  dash file delete <file-id>`,
	}

	cmd.AddCommand(newUploadCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newDeleteCommand())
	return cmd
}

func newUploadCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Parse and store a spreadsheet",
		Long:  "Uploads an .xlsx, .xls or .csv file. The file is parsed first and nothing is stored if it cannot be read.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return output.Usagef("could not read %s: %v", path, err)
			}
			if name == "" {
				name = filepath.Base(path)
			}

			return app.Run(cmd, func(a *app.App) error {
				f, tbl, err := a.Workspace.Upload(cmd.Context(), workspace.Upload{
					Name:     name,
					MimeType: mime.TypeByExtension(filepath.Ext(name)),
					Data:     data,
				})
				if err != nil {
					return err
				}
				res := struct {
					File    store.File `json:"file"`
					Headers []string   `json:"headers"`
				}{f, tbl.Headers}
				return app.Output(cmd, "file upload").Result(res, func(w io.Writer) error {
					output.Success(w, "Uploaded %s (%d rows, %d columns)", f.FileName, f.RowCount, len(tbl.Headers))
					fmt.Fprintf(w, "File ID: %s\n", f.ID)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name to store the file under (default: base name)")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				files, err := a.Workspace.Files(cmd.Context())
				if err != nil {
					return err
				}
				return app.Output(cmd, "file list").Result(files, func(w io.Writer) error {
					if len(files) == 0 {
						fmt.Fprintln(w, "No files. Upload one with 'dash file upload <file>'.")
						return nil
					}
					rows := make([][]string, len(files))
					for i, f := range files {
						rows[i] = []string{f.ID, f.FileName, f.SheetName, strconv.Itoa(f.RowCount), humanSize(f.FileSize), humanize.Time(f.CreatedAt)}
					}
					return output.Table(w, []string{"ID", "NAME", "SHEET", "ROWS", "SIZE", "UPLOADED"}, rows)
				})
			})
		},
	}
}

func newShowCommand() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "show <file-id>",
		Short: "Show a file's metadata and first rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				f, err := a.Workspace.File(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tbl, err := a.Workspace.LoadTable(cmd.Context(), f.ID)
				if err != nil {
					return err
				}
				res := struct {
					File    store.File `json:"file"`
					Headers []string   `json:"headers"`
					Rows    any        `json:"rows"`
				}{f, tbl.Headers, tbl.Records(rows)}
				return app.Output(cmd, "file show").Result(res, func(w io.Writer) error {
					fmt.Fprintf(w, "%s  %s, %s\n", f.ID, f.FileName, humanSize(f.FileSize))
					fmt.Fprintf(w, "Sheet %s, %d rows\n\n", f.SheetName, f.RowCount)
					records := tbl.Records(rows)
					cells := make([][]string, len(records))
					for i, r := range records {
						cells[i] = make([]string, len(r.Cells))
						for j, c := range r.Cells {
							cells[i][j] = c.String()
						}
					}
					return output.Table(w, tbl.Headers, cells)
				})
			})
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Rows to show (0 for all)")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file; dashboards using it are detached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				if err := a.Workspace.DeleteFile(cmd.Context(), args[0]); err != nil {
					return err
				}
				return app.Output(cmd, "file delete").Result(map[string]string{"id": args[0]}, func(w io.Writer) error {
					output.Success(w, "Deleted %s", args[0])
					return nil
				})
			})
		},
	}
}

func humanSize(n int64) string {
	return humanize.IBytes(uint64(n))
}
