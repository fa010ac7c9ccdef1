// Package watch provides the "dash watch" command.
package watch

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/output"
	w "github.com/klytics/sheetdash/internal/watch"
)

// NewCommand creates the "watch" command.
func NewCommand() *cobra.Command {
	var (
		extensions []string
		recursive  bool
		pattern    string
		debounce   time.Duration
		withDash   bool
		suggest    bool
	)

	cmd := &cobra.Command{
		Use:   "watch <directory> [directory...]",
		Short: "Upload spreadsheets as they land in a directory",
		Long: `Watch directories for new or changed spreadsheets and upload each one
once writes to it have settled. With --dashboard every file also gets a
dashboard; --suggest fills it with suggested charts.

Example:
  dash watch ./exports --pattern "sales_*" --suggest`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				var opts []w.IngestOption
				if withDash {
					opts = append(opts, w.WithDashboard())
				}
				if suggest {
					if err := a.RequireSuggest(); err != nil {
						return err
					}
					opts = append(opts, w.WithSuggestions())
				}

				out := cmd.OutOrStdout()
				jsonOut, _ := cmd.Flags().GetBool("json")
				ingester := w.NewIngester(a.Workspace, a.Logger, opts...)
				var mu sync.Mutex
				ingester.OnIngest = func(in w.Ingested) {
					mu.Lock()
					defer mu.Unlock()
					if jsonOut {
						output.PrintJSON(out, "watch", in)
						return
					}
					color.New(color.FgGreen).Fprintf(out, "✓ %s", in.File.FileName)
					fmt.Fprintf(out, " → %s (%d rows)", in.File.ID, in.File.RowCount)
					if in.Dashboard != nil {
						fmt.Fprintf(out, ", dashboard %s with %d charts", in.Dashboard.ID, in.Charts)
					}
					fmt.Fprintln(out)
				}

				watcher, err := w.New(w.Config{
					Directories: args,
					Extensions:  extensions,
					Pattern:     pattern,
					Recursive:   recursive,
					Debounce:    debounce,
				}, ingester.Handle, a.Logger)
				if err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if !jsonOut {
					fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d directory(ies) for %s files\n",
						len(args), strings.Join(watcher.Config.Extensions, ", "))
					fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop")
				}
				return watcher.Start(ctx)
			})
		},
	}

	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "File extensions to watch (default: .xlsx,.xls,.csv)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Only pick up file names matching this glob")
	cmd.Flags().DurationVar(&debounce, "debounce", w.DefaultDebounce, "How long a file must be quiet before upload")
	cmd.Flags().BoolVar(&withDash, "dashboard", false, "Create a dashboard for each file")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "Create a dashboard with suggested charts for each file")
	return cmd
}
