// Package config provides CLI commands for configuration management.
package config

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	"github.com/klytics/sheetdash/internal/config"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dash configuration",
		Long:  "Interactive setup, view, and modify dash settings.",
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newResetCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newEnvCommand())

	return cmd
}

// load reads the configuration so viper holds the current values.
func load(cmd *cobra.Command) error {
	_, err := app.LoadConfig(cmd)
	return err
}

func newInitCommand() *cobra.Command {
	var noInteractive bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noInteractive {
				return config.WizardNonInteractive()
			}
			if err := load(cmd); err != nil {
				return err
			}
			return config.Wizard(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Skip prompts, use defaults")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			return app.Output(cmd, "config show").Result(config.ToEnv(), func(w io.Writer) error {
				_, err := fmt.Fprint(w, config.ShowConfig())
				return err
			})
		},
	}
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			val := config.Get(args[0])
			if val == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], val)
			}
			return nil
		},
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ResetConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults")
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			issues := config.Validate()

			return app.Output(cmd, "config validate").Result(issues, func(w io.Writer) error {
				errs, warnings := 0, 0
				for _, issue := range issues {
					switch issue.Severity {
					case "error":
						errs++
					case "warning":
						warnings++
					}
				}
				if errs == 0 && warnings == 0 {
					color.New(color.FgGreen).Fprintln(w, "Configuration is valid")
					return nil
				}

				fmt.Fprintf(w, "Config validation: %d errors, %d warnings\n\n", errs, warnings)
				for _, issue := range issues {
					switch issue.Severity {
					case "error":
						color.New(color.FgRed).Fprintf(w, "  %s\n", issue.Message)
					case "warning":
						color.New(color.FgYellow).Fprintf(w, "  %s\n", issue.Message)
					case "info":
						color.New(color.FgGreen).Fprintf(w, "  %s\n", issue.Message)
					}
					if issue.Fix != "" {
						fmt.Fprintf(w, "   Fix: %s\n", issue.Fix)
					}
				}
				return nil
			})
		},
	}
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Export configuration as environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			env := config.ToEnv()

			return app.Output(cmd, "config env").Result(env, func(w io.Writer) error {
				keys := make([]string, 0, len(env))
				for k := range env {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				for _, k := range keys {
					fmt.Fprintf(w, "export %s=%q\n", k, env[k])
				}
				fmt.Fprintln(w, "# Add these to your ~/.zshrc or ~/.bashrc")
				return nil
			})
		},
	}
}
