// Package shell provides the interactive dashboard editor.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/table"
)

// Suggester proposes charts for a table.
type Suggester interface {
	SuggestTable(ctx context.Context, t *table.Table) ([]dashboard.Suggestion, error)
}

// ErrExit is returned by Eval for the exit and quit commands.
var ErrExit = errors.New("exit")

// Session edits one dashboard interactively. Changes stay in memory until
// "save".
type Session struct {
	HistoryFile    string
	CommandHistory []string
	StartTime      time.Time

	edit      *dashboard.Session
	suggester Suggester
	pending   []dashboard.Suggestion
	out       io.Writer
}

// Commands lists the editor's commands for completion and help.
var Commands = []string{
	"charts", "columns", "add", "set", "remove", "suggest", "apply",
	"series", "status", "save", "discard", "history", "help", "exit", "quit",
}

var fields = []string{"type", "title", "x", "y"}

// NewSession wraps an editing session. suggester may be nil.
func NewSession(edit *dashboard.Session, suggester Suggester, out io.Writer) *Session {
	if out == nil {
		out = os.Stdout
	}
	var histFile string
	if home, err := os.UserHomeDir(); err == nil {
		histFile = filepath.Join(home, ".dash", "shell_history")
		os.MkdirAll(filepath.Dir(histFile), 0755)
	}
	return &Session{
		HistoryFile: histFile,
		StartTime:   time.Now(),
		edit:        edit,
		suggester:   suggester,
		out:         out,
	}
}

// Run starts the editing loop. It blocks until "exit" or Ctrl+D.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     s.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(s.buildCompleter()...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	d := s.edit.Dashboard()
	fmt.Fprintf(s.out, "Editing %q (%d charts)\n", d.Name, len(d.Charts))
	fmt.Fprintln(s.out, "Type 'help' for commands, 'exit' to quit.")
	fmt.Fprintln(s.out)

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		out, err := s.Eval(ctx, line)
		if out != "" {
			fmt.Fprint(s.out, out)
		}
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		rl.SetPrompt(s.prompt())
	}
	fmt.Fprint(s.out, s.goodbye())
	return nil
}

func (s *Session) prompt() string {
	if s.edit.Dirty() {
		return "dash*> "
	}
	return "dash> "
}

// Eval runs one editor command and returns what it prints.
func (s *Session) Eval(ctx context.Context, line string) (string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", nil
	}
	s.CommandHistory = append(s.CommandHistory, strings.TrimSpace(line))

	var sb strings.Builder
	var err error
	switch args[0] {
	case "exit", "quit":
		sb.WriteString(s.goodbye())
		err = ErrExit
	case "help":
		s.printHelp(&sb)
	case "history":
		for i, cmd := range s.CommandHistory {
			fmt.Fprintf(&sb, "  %d  %s\n", i+1, cmd)
		}
	case "charts":
		s.printCharts(&sb)
	case "columns":
		err = s.columns(&sb)
	case "add":
		err = s.add(&sb, args[1:])
	case "set":
		err = s.set(&sb, args[1:])
	case "remove":
		err = s.remove(&sb, args[1:])
	case "suggest":
		err = s.suggest(ctx, &sb)
	case "apply":
		err = s.apply(&sb, args[1:])
	case "series":
		err = s.series(&sb, args[1:])
	case "status":
		s.status(&sb)
	case "save":
		if err = s.edit.Save(ctx); err == nil {
			sb.WriteString("Saved\n")
		}
	case "discard":
		s.edit.Discard()
		s.pending = nil
		sb.WriteString("Changes discarded\n")
	default:
		err = fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
	return sb.String(), err
}

func (s *Session) printCharts(w io.Writer) {
	charts := s.edit.Charts()
	if len(charts) == 0 {
		fmt.Fprintln(w, "No charts. Use 'add <type>' or 'suggest'.")
		return
	}
	for _, c := range charts {
		fmt.Fprintf(w, "  %s  %-5s %q  %s by %s\n", c.ID, c.Type, c.Title, c.YAxis, c.XAxis)
	}
}

func (s *Session) columns(w io.Writer) error {
	t := s.edit.Table()
	if t == nil {
		return errors.New("dashboard has no file attached")
	}
	fmt.Fprintf(w, "%s (%d rows)\n", t.SheetName, t.Len())
	for _, h := range t.Headers {
		fmt.Fprintf(w, "  %s\n", h)
	}
	return nil
}

func (s *Session) add(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: add <bar|line|pie|area>")
	}
	ct, err := dashboard.ParseChartType(args[0])
	if err != nil {
		return err
	}
	c, err := s.edit.Add(ct)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Added %s %q\n", c.ID, c.Title)
	return nil
}

func (s *Session) set(w io.Writer, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: set <chart-id> <type|title|x|y> <value>")
	}
	id, field, value := args[0], args[1], strings.Join(args[2:], " ")

	var patch dashboard.ChartPatch
	switch field {
	case "type":
		ct, err := dashboard.ParseChartType(value)
		if err != nil {
			return err
		}
		patch.Type = &ct
	case "title":
		patch.Title = &value
	case "x":
		patch.XAxis = &value
	case "y":
		patch.YAxis = &value
	default:
		return fmt.Errorf("unknown field %q (one of: %s)", field, strings.Join(fields, ", "))
	}
	ok, err := s.edit.Update(id, patch)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(w, "No chart %s\n", id)
		return nil
	}
	if t := s.edit.Table(); t != nil && (field == "x" || field == "y") && !t.HasColumn(value) {
		fmt.Fprintf(w, "Warning: %q is not a column of %s\n", value, t.SheetName)
	}
	fmt.Fprintf(w, "Updated %s %s\n", id, field)
	return nil
}

func (s *Session) remove(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: remove <chart-id>")
	}
	if s.edit.Remove(args[0]) {
		fmt.Fprintf(w, "Removed %s\n", args[0])
	} else {
		fmt.Fprintf(w, "No chart %s\n", args[0])
	}
	return nil
}

func (s *Session) suggest(ctx context.Context, w io.Writer) error {
	if s.suggester == nil {
		return errors.New("chart suggestions are not configured")
	}
	t := s.edit.Table()
	if t == nil {
		return errors.New("dashboard has no file attached")
	}
	got, err := s.suggester.SuggestTable(ctx, t)
	if err != nil {
		return err
	}
	s.pending = got
	if len(got) == 0 {
		fmt.Fprintln(w, "No suggestions")
		return nil
	}
	for i, sg := range got {
		fmt.Fprintf(w, "  [%d] %-5s %q  %s by %s\n", i+1, sg.Type, sg.Title, sg.YAxis, sg.XAxis)
		if sg.Reason != "" {
			fmt.Fprintf(w, "      %s\n", sg.Reason)
		}
	}
	fmt.Fprintln(w, "Use 'apply' for all or 'apply 1 3' to pick.")
	return nil
}

func (s *Session) apply(w io.Writer, args []string) error {
	if len(s.pending) == 0 {
		return errors.New("no suggestions to apply; run 'suggest' first")
	}
	picked := s.pending
	if len(args) > 0 {
		picked = picked[:0:0]
		for _, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil || n < 1 || n > len(s.pending) {
				return fmt.Errorf("no suggestion %q", a)
			}
			picked = append(picked, s.pending[n-1])
		}
	}
	added := s.edit.Apply(picked...)
	fmt.Fprintf(w, "Added %d charts\n", len(added))
	return nil
}

func (s *Session) series(w io.Writer, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}
	for _, d := range s.edit.Series(limit) {
		fmt.Fprintf(w, "%s %q\n", d.Chart.ID, d.Chart.Title)
		if d.Stale() {
			fmt.Fprintf(w, "  missing columns: %s\n", strings.Join(d.StaleAxes, ", "))
		}
		for _, p := range d.Points {
			fmt.Fprintf(w, "  %-20s %v\n", p.Key, p.Value)
		}
		if len(d.Rows) > 0 {
			fmt.Fprintf(w, "  %d rows\n", len(d.Rows))
		}
	}
	return nil
}

func (s *Session) status(w io.Writer) {
	d := s.edit.Dashboard()
	fmt.Fprintf(w, "Dashboard: %s (%s)\n", d.Name, d.ID)
	if t := s.edit.Table(); t != nil {
		fmt.Fprintf(w, "File:      %s, %d rows\n", d.FileID, t.Len())
	} else {
		fmt.Fprintln(w, "File:      none")
	}
	fmt.Fprintf(w, "Charts:    %d\n", len(d.Charts))
	if s.edit.Dirty() {
		fmt.Fprintln(w, "Unsaved changes")
	}
}

func (s *Session) goodbye() string {
	msg := fmt.Sprintf("\nSession ended after %s.\n", formatDuration(time.Since(s.StartTime)))
	if s.edit.Dirty() {
		msg += "Unsaved changes were discarded.\n"
	}
	return msg
}

// Complete returns completion candidates for the given input.
func (s *Session) Complete(input string) []string {
	parts := strings.Fields(input)
	trailing := strings.HasSuffix(input, " ")

	if len(parts) == 0 || (len(parts) == 1 && !trailing) {
		var prefix string
		if len(parts) == 1 {
			prefix = parts[0]
		}
		return withPrefix(Commands, prefix)
	}

	pos := len(parts)
	prefix := ""
	if !trailing {
		pos--
		prefix = parts[pos]
	}
	switch parts[0] {
	case "add":
		if pos == 1 {
			return withPrefix(chartTypeNames(), prefix)
		}
	case "remove":
		if pos == 1 {
			return withPrefix(s.chartIDs(), prefix)
		}
	case "set":
		switch pos {
		case 1:
			return withPrefix(s.chartIDs(), prefix)
		case 2:
			return withPrefix(fields, prefix)
		case 3:
			if parts[2] == "type" {
				return withPrefix(chartTypeNames(), prefix)
			}
			if (parts[2] == "x" || parts[2] == "y") && s.edit.Table() != nil {
				return withPrefix(s.edit.Table().Headers, prefix)
			}
		}
	}
	return nil
}

func withPrefix(list []string, prefix string) []string {
	var out []string
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func chartTypeNames() []string {
	names := make([]string, len(dashboard.ChartTypes))
	for i, t := range dashboard.ChartTypes {
		names[i] = string(t)
	}
	return names
}

func (s *Session) chartIDs() []string {
	charts := s.edit.Charts()
	ids := make([]string, len(charts))
	for i, c := range charts {
		ids[i] = c.ID
	}
	return ids
}

func (s *Session) printHelp(w io.Writer) {
	fmt.Fprintln(w, "Charts:")
	fmt.Fprintln(w, "  charts                      list charts")
	fmt.Fprintln(w, "  columns                     list the file's columns")
	fmt.Fprintln(w, "  add <type>                  add a bar, line, pie or area chart")
	fmt.Fprintln(w, "  set <id> <field> <value>    change type, title, x or y")
	fmt.Fprintln(w, "  remove <id>                 remove a chart")
	fmt.Fprintln(w, "  series [limit]              show chart data")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Suggestions:")
	fmt.Fprintln(w, "  suggest                     ask for chart ideas")
	fmt.Fprintln(w, "  apply [n...]                add all or the numbered suggestions")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Session:")
	fmt.Fprintln(w, "  status, save, discard, history, exit")
}

func (s *Session) buildCompleter() []readline.PrefixCompleterInterface {
	ids := func(string) []string { return s.chartIDs() }
	columns := func(string) []string {
		if t := s.edit.Table(); t != nil {
			return t.Headers
		}
		return nil
	}
	types := make([]readline.PrefixCompleterInterface, 0, len(dashboard.ChartTypes))
	for _, name := range chartTypeNames() {
		types = append(types, readline.PcItem(name))
	}

	var items []readline.PrefixCompleterInterface
	for _, cmd := range Commands {
		switch cmd {
		case "add":
			items = append(items, readline.PcItem(cmd, types...))
		case "remove":
			items = append(items, readline.PcItem(cmd, readline.PcItemDynamic(ids)))
		case "set":
			items = append(items, readline.PcItem(cmd,
				readline.PcItemDynamic(ids,
					readline.PcItem("type", types...),
					readline.PcItem("title"),
					readline.PcItem("x", readline.PcItemDynamic(columns)),
					readline.PcItem("y", readline.PcItemDynamic(columns)),
				)))
		default:
			items = append(items, readline.PcItem(cmd))
		}
	}
	return items
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}
