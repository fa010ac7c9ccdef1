// Package output provides formatting utilities for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/klytics/sheetdash/internal/dashboard"
)

// Format represents an output format.
type Format int

const (
	// FormatText is plain text output.
	FormatText Format = iota
	// FormatJSON is the JSON envelope.
	FormatJSON
)

// Writer renders a command's result as text or as the JSON envelope.
type Writer struct {
	dest    io.Writer
	format  Format
	command string
}

// NewWriter creates a writer for the named command.
func NewWriter(dest io.Writer, format Format, command string) *Writer {
	return &Writer{dest: dest, format: format, command: command}
}

// JSON reports whether the writer emits the JSON envelope.
func (w *Writer) JSON() bool { return w.format == FormatJSON }

// Result writes data in JSON mode and calls text otherwise.
func (w *Writer) Result(data any, text func(io.Writer) error) error {
	if w.format == FormatJSON {
		return PrintJSON(w.dest, w.command, data)
	}
	return text(w.dest)
}

// Table writes aligned columns with a bold header row.
func Table(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold).SprintFunc()
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, bold(h))
	}
	fmt.Fprintln(tw)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// Success prints a green confirmation line.
func Success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

// Warn prints a yellow warning line.
func Warn(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, "Warning: "+format+"\n", args...)
}

// Suggestions prints numbered chart suggestions.
func Suggestions(w io.Writer, ss []dashboard.Suggestion) {
	if len(ss) == 0 {
		fmt.Fprintln(w, "No suggestions")
		return
	}
	title := color.New(color.Bold)
	for i, s := range ss {
		title.Fprintf(w, "%d. %s", i+1, s.Title)
		fmt.Fprintf(w, " (%s: %s by %s)\n", s.Type, s.YAxis, s.XAxis)
		if s.Reason != "" {
			fmt.Fprintf(w, "   %s\n", s.Reason)
		}
	}
}

// Series prints the data one chart shows.
func Series(w io.Writer, d dashboard.ChartData) error {
	if d.Stale() {
		Warn(w, "no column named %v", d.StaleAxes)
	}
	if d.Chart.Type.Categorical() {
		rows := make([][]string, len(d.Points))
		for i, p := range d.Points {
			rows[i] = []string{p.Key, fmt.Sprint(p.Value), fmt.Sprint(p.Count)}
		}
		return Table(w, []string{"NAME", "VALUE", "ROWS"}, rows)
	}
	rows := make([][]string, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = []string{r.Get(d.Chart.XAxis).String(), r.Get(d.Chart.YAxis).String()}
	}
	return Table(w, []string{d.Chart.XAxis, d.Chart.YAxis}, rows)
}
