// Package cmd contains all CLI commands for the dash binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/completion"
	cmdconfig "github.com/klytics/sheetdash/cmd/config"
	"github.com/klytics/sheetdash/cmd/dashboard"
	"github.com/klytics/sheetdash/cmd/file"
	"github.com/klytics/sheetdash/cmd/serve"
	"github.com/klytics/sheetdash/cmd/sheet"
	"github.com/klytics/sheetdash/cmd/shell"
	"github.com/klytics/sheetdash/cmd/version"
	cmdwatch "github.com/klytics/sheetdash/cmd/watch"
	"github.com/klytics/sheetdash/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	modelName  string
	provider   string
	noColor    bool
	configFile string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dash",
		Short: "Spreadsheet dashboards from the terminal",
		Long: `sheetdash turns spreadsheets into chart dashboards.

Upload .xlsx and .csv files, build dashboards of bar, line, pie and area
charts over their columns, let an AI model suggest charts, and serve
everything over HTTP with live updates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || jsonOutput {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", defaultModel(), "AI model name override")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", defaultProvider(), "AI provider: anthropic | openai | ollama")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.dash/config.yaml)")

	// Register subcommands
	rootCmd.AddCommand(sheet.NewParseCommand())
	rootCmd.AddCommand(sheet.NewAggregateCommand())
	rootCmd.AddCommand(sheet.NewSuggestCommand())
	rootCmd.AddCommand(file.NewCommand())
	rootCmd.AddCommand(dashboard.NewCommand())
	rootCmd.AddCommand(shell.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(serve.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code for any error.
func Execute() {
	rootCmd := NewRootCommand()
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	code := output.ExitCode(err)
	if jsonOutput {
		output.PrintJSONError(os.Stdout, cmd.CommandPath(), err, code)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(code)
}

// The config file still wins over these unless the flag is set explicitly.
func defaultModel() string {
	if m := os.Getenv("DASH_MODEL"); m != "" {
		return m
	}
	return "claude-sonnet-4-20250514"
}

func defaultProvider() string {
	if p := os.Getenv("DASH_PROVIDER"); p != "" {
		return p
	}
	return "anthropic"
}
