package output

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const defaultTermHeight = 40

// ShouldPage reports whether content is taller than the terminal stdout is
// attached to.
func ShouldPage(content string) bool {
	if !isTerminal() {
		return false
	}
	return strings.Count(content, "\n") > termHeight()
}

// Page pipes content through the user's preferred pager (PAGER env, or "less").
func Page(content string) error {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}

	cmd := exec.Command(pager)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

func termHeight() int {
	if n, err := strconv.Atoi(os.Getenv("LINES")); err == nil && n > 0 {
		return n
	}
	return defaultTermHeight
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
