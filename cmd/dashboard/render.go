package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/klytics/sheetdash/cmd/app"
	dash "github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/progress"
	"github.com/klytics/sheetdash/internal/render"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/workspace"
)

type rendered struct {
	Chart string `json:"chart"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

func newRenderCommand() *cobra.Command {
	var (
		outDir        string
		chartID       string
		width, height int
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "render <dashboard-id>",
		Short: "Render a dashboard's charts as PNG images",
		Long: `Writes one <chart-id>.png per chart into --out. Charts with nothing to
draw are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				sess, err := a.Workspace.OpenSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if sess.Table() == nil {
					return workspace.ErrNoFile
				}
				series := sess.Series(limit)
				if chartID != "" {
					series = filterSeries(series, chartID)
					if len(series) == 0 {
						return fmt.Errorf("chart %s: %w", chartID, store.ErrNotFound)
					}
				}
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("could not create %s: %w", outDir, err)
				}

				results := make([]rendered, len(series))
				bar := progress.New(cmd.ErrOrStderr(), "Rendering", len(series))
				var g errgroup.Group
				g.SetLimit(4)
				for i, d := range series {
					g.Go(func() error {
						results[i] = renderOne(d, outDir, render.Options{Width: width, Height: height})
						bar.Increment(d.Chart.ID)
						return nil
					})
				}
				g.Wait()
				bar.Finish(fmt.Sprintf("Rendered %d charts", len(series)))

				return app.Output(cmd, "dashboard render").Result(results, func(w io.Writer) error {
					for _, r := range results {
						if r.Error != "" {
							output.Warn(w, "%s: %s", r.Chart, r.Error)
							continue
						}
						fmt.Fprintf(w, "%s -> %s\n", r.Chart, r.Path)
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write images to")
	cmd.Flags().StringVar(&chartID, "chart", "", "Render only this chart")
	cmd.Flags().IntVar(&width, "width", 800, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", 400, "Image height in pixels")
	cmd.Flags().IntVar(&limit, "limit", 0, "Rows drawn by line and area charts (default 50)")
	return cmd
}

func renderOne(d dash.ChartData, dir string, opts render.Options) rendered {
	r := rendered{Chart: d.Chart.ID}
	var buf bytes.Buffer
	if err := render.PNG(&buf, d, opts); err != nil {
		r.Error = err.Error()
		return r
	}
	r.Path = filepath.Join(dir, d.Chart.ID+".png")
	if err := os.WriteFile(r.Path, buf.Bytes(), 0644); err != nil {
		r.Path, r.Error = "", err.Error()
	}
	return r
}

func filterSeries(series []dash.ChartData, id string) []dash.ChartData {
	for _, d := range series {
		if d.Chart.ID == id {
			return []dash.ChartData{d}
		}
	}
	return nil
}
