// Package shell provides the "dash shell" dashboard editor command.
package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetdash/cmd/app"
	shellpkg "github.com/klytics/sheetdash/internal/shell"
)

// NewCommand creates the "shell" command.
func NewCommand() *cobra.Command {
	var evalCmd string

	cmd := &cobra.Command{
		Use:   "shell <dashboard-id>",
		Short: "Edit a dashboard interactively",
		Long: `Open a dashboard in an interactive editor with history and tab completion.

Chart changes stay in memory until "save". Separate several commands
with ";" to run them without a prompt:

  dash shell d1 --eval "add bar; set c1 x Region; save"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, func(a *app.App) error {
				edit, err := a.Workspace.OpenSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				var sg shellpkg.Suggester
				if a.Suggest != nil {
					sg = a.Workspace
				}
				session := shellpkg.NewSession(edit, sg, cmd.OutOrStdout())

				if evalCmd == "" {
					return session.Run(cmd.Context())
				}
				for _, line := range strings.Split(evalCmd, ";") {
					if strings.TrimSpace(line) == "" {
						continue
					}
					out, err := session.Eval(cmd.Context(), line)
					fmt.Fprint(cmd.OutOrStdout(), out)
					if errors.Is(err, shellpkg.ErrExit) {
						return nil
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&evalCmd, "eval", "", "Run commands separated by \";\" and exit")
	return cmd
}
