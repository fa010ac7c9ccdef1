// Package serve provides the "dash serve" command.
package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/server"
)

// NewCommand returns the serve command.
func NewCommand() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long: `Serve the workspace over HTTP: file uploads, dashboards, chart series,
live dashboard streams and chart suggestions.

Example:
  dash serve --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			logger := app.Logger(cfg, cmd.ErrOrStderr())

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			if a.Suggest == nil {
				logger.Warn("chart suggestions disabled", "error", a.SuggestErr)
			}

			srv := server.New(a.Workspace, server.Options{
				Logger:   logger,
				Suggest:  a.Suggest,
				Security: cfg.Security,
			})
			httpSrv := &http.Server{
				Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
				Handler:      srv,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}
			httpSrv.RegisterOnShutdown(srv.CloseStreams)

			gs := server.NewGracefulServer(httpSrv, logger, cfg.Server.ShutdownTimeout)
			gs.RegisterShutdownHook(func(context.Context) error {
				return a.Close()
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", httpSrv.Addr)
			if err != nil {
				a.Close()
				return fmt.Errorf("could not listen on %s: %w", httpSrv.Addr, err)
			}
			color.New(color.FgCyan).Fprintf(cmd.ErrOrStderr(), "Serving on http://%s\n", ln.Addr())
			return gs.Serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen address (default from config: 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config: 8080)")
	return cmd
}
