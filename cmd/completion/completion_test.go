package completion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "dash"}
	root.AddCommand(&cobra.Command{Use: "dashboard", Short: "Dashboards", Run: func(*cobra.Command, []string) {}})
	root.AddCommand(&cobra.Command{Use: "serve", Short: "Serve", Run: func(*cobra.Command, []string) {}})
	root.AddCommand(NewCommand(root))

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"completion"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestCompletion(t *testing.T) {
	cases := map[string]string{
		"bash":       "_dash",
		"zsh":        "compdef",
		"fish":       "complete -c dash",
		"powershell": "dash",
	}
	for shell, want := range cases {
		out, err := run(t, shell)
		if err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.HasPrefix(out, "# dash "+shell+" completion") {
			t.Errorf("%s: missing install header", shell)
		}
		if !strings.Contains(out, want) {
			t.Errorf("%s completion should contain %q", shell, want)
		}
	}
}

func TestCompletionUnsupportedShell(t *testing.T) {
	if _, err := run(t, "tcsh"); err == nil {
		t.Error("expected error for tcsh")
	}
}
