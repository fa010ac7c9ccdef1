// Package app wires configuration, storage and the suggestion service into a
// workspace for the CLI commands.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/internal/ai"
	"github.com/klytics/sheetdash/internal/blob"
	"github.com/klytics/sheetdash/internal/config"
	"github.com/klytics/sheetdash/internal/logging"
	"github.com/klytics/sheetdash/internal/output"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/suggest"
	"github.com/klytics/sheetdash/internal/workspace"
)

// App holds everything a command needs.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *store.Store
	Blobs     *blob.Dir
	Workspace *workspace.Workspace

	// Suggest is nil when no suggestion service could be set up; SuggestErr
	// then says why.
	Suggest    suggest.Service
	SuggestErr error
}

// LoadConfig reads the configuration and applies the global flags.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		config.UseFile(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider, _ = cmd.Flags().GetString("provider")
	}
	if cmd.Flags().Changed("model") {
		cfg.Model, _ = cmd.Flags().GetString("model")
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// Logger builds the logger for cfg. CLI commands log to stderr.
func Logger(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: w})
}

// Open loads the configuration and opens the workspace.
func Open(cmd *cobra.Command) (*App, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return New(cfg, Logger(cfg, cmd.ErrOrStderr()))
}

// New opens storage for cfg and builds the workspace.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	st, err := store.Open(cfg.Storage.Database)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.NewDir(cfg.Storage.BlobDir)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Store: st, Blobs: blobs}
	a.Suggest, a.SuggestErr = Suggester(cfg)
	if a.SuggestErr != nil {
		logger.Debug("chart suggestions unavailable", "error", a.SuggestErr)
	}

	opts := []workspace.Option{
		workspace.WithMaxUploadBytes(cfg.Upload.MaxBytes),
		workspace.WithLogger(logger),
	}
	if a.Suggest != nil {
		opts = append(opts, workspace.WithSuggester(suggest.NewAdapter(a.Suggest, cfg.Suggest.SampleRows)))
	}
	a.Workspace = workspace.New(st, blobs, cfg.User.ID, opts...)
	return a, nil
}

// Suggester builds the suggestion service: the remote endpoint when one is
// configured, the local AI provider otherwise.
func Suggester(cfg *config.Config) (suggest.Service, error) {
	if cfg.Suggest.Endpoint != "" {
		return suggest.NewHTTPService(cfg.Suggest.Endpoint, cfg.Suggest.Token, cfg.Suggest.Timeout), nil
	}
	opts := ai.Options{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Attempts: cfg.Suggest.Attempts,
		Timeout:  cfg.Suggest.Timeout,
	}
	if key, err := config.GetAPIKey(cfg.Provider); err == nil {
		opts.APIKey = key
	}
	switch cfg.Provider {
	case "openai":
		opts.BaseURL = cfg.OpenAI.BaseURL
	case "ollama":
		opts.BaseURL = cfg.Ollama.Host
	}
	p, err := ai.NewProvider(opts)
	if err != nil {
		return nil, err
	}
	return suggest.NewProviderService(p, cfg.Model), nil
}

// RequireSuggest reports why suggestions are unavailable, if they are.
func (a *App) RequireSuggest() error {
	if a.Suggest != nil {
		return nil
	}
	if a.SuggestErr != nil {
		return fmt.Errorf("%w: %v", workspace.ErrNoSuggester, a.SuggestErr)
	}
	return workspace.ErrNoSuggester
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// Output returns the writer for the named command honouring --json.
func Output(cmd *cobra.Command, name string) *output.Writer {
	format := output.FormatText
	if v, _ := cmd.Flags().GetBool("json"); v {
		format = output.FormatJSON
	}
	return output.NewWriter(cmd.OutOrStdout(), format, name)
}

// Run opens the app, calls fn and closes the app again.
func Run(cmd *cobra.Command, fn func(*App) error) error {
	a, err := Open(cmd)
	if err != nil {
		return err
	}
	return errors.Join(fn(a), a.Close())
}
