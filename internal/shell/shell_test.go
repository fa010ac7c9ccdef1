package shell

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/table"
)

type memSaver struct {
	saves int
	fail  error
}

func (m *memSaver) SaveCharts(_ context.Context, id string, charts []dashboard.Chart) (dashboard.Dashboard, error) {
	if m.fail != nil {
		return dashboard.Dashboard{}, m.fail
	}
	m.saves++
	return dashboard.Dashboard{ID: id, Name: "Sales", Charts: charts}, nil
}

type fakeSuggester []dashboard.Suggestion

func (f fakeSuggester) SuggestTable(context.Context, *table.Table) ([]dashboard.Suggestion, error) {
	return f, nil
}

func newTestSession(t *testing.T, sg Suggester) (*Session, *memSaver) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	tbl, err := table.Parse([]byte("Region,Sales\nEast,100\nWest,50\nEast,30\n"), table.KindDelimited)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	ids := dashboard.IDFunc(func() string {
		n++
		return fmt.Sprintf("c%d", n)
	})
	saver := &memSaver{}
	edit := dashboard.NewSession(dashboard.Dashboard{ID: "d1", Name: "Sales"}, tbl, saver, ids)
	return NewSession(edit, sg, &strings.Builder{}), saver
}

func eval(t *testing.T, s *Session, line string) string {
	t.Helper()
	out, err := s.Eval(context.Background(), line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return out
}

func TestNewSession(t *testing.T) {
	s, _ := newTestSession(t, nil)
	if !strings.HasSuffix(s.HistoryFile, "shell_history") {
		t.Errorf("history file = %q", s.HistoryFile)
	}
	if len(s.CommandHistory) != 0 {
		t.Errorf("history = %v", s.CommandHistory)
	}
}

func TestEditAndSave(t *testing.T) {
	s, saver := newTestSession(t, nil)

	if out := eval(t, s, "add bar"); !strings.Contains(out, `Added c1 "New Bar Chart"`) {
		t.Errorf("add: %q", out)
	}
	if s.prompt() != "dash*> " {
		t.Errorf("prompt = %q", s.prompt())
	}
	eval(t, s, "set c1 title Sales by region")
	eval(t, s, "set c1 type pie")
	if out := eval(t, s, "charts"); !strings.Contains(out, `pie   "Sales by region"  Sales by Region`) {
		t.Errorf("charts: %q", out)
	}
	if out := eval(t, s, "series"); !strings.Contains(out, "East") || !strings.Contains(out, "130") {
		t.Errorf("series: %q", out)
	}
	if out := eval(t, s, "save"); out != "Saved\n" {
		t.Errorf("save: %q", out)
	}
	if saver.saves != 1 || s.edit.Dirty() {
		t.Errorf("saves = %d dirty = %v", saver.saves, s.edit.Dirty())
	}
}

func TestSetWarnsOnUnknownColumn(t *testing.T) {
	s, _ := newTestSession(t, nil)
	eval(t, s, "add line")
	out := eval(t, s, "set c1 y Profit")
	if !strings.Contains(out, `Warning: "Profit" is not a column`) {
		t.Errorf("set: %q", out)
	}
	if out := eval(t, s, "set c9 title x"); !strings.Contains(out, "No chart c9") {
		t.Errorf("unknown id: %q", out)
	}
}

func TestEvalErrors(t *testing.T) {
	s, _ := newTestSession(t, nil)
	for _, line := range []string{
		"add scatter",
		"add",
		"set c1 colour red",
		"suggest",
		"apply",
		"series many",
		"frobnicate",
	} {
		if _, err := s.Eval(context.Background(), line); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}
}

func TestSuggestAndApply(t *testing.T) {
	s, _ := newTestSession(t, fakeSuggester{
		{Type: dashboard.Bar, Title: "By region", XAxis: "Region", YAxis: "Sales", Reason: "categories"},
		{Type: dashboard.Line, Title: "Trend", XAxis: "Region", YAxis: "Sales"},
	})
	out := eval(t, s, "suggest")
	if !strings.Contains(out, `[1] bar   "By region"`) || !strings.Contains(out, "categories") {
		t.Errorf("suggest: %q", out)
	}
	if _, err := s.Eval(context.Background(), "apply 3"); err == nil {
		t.Error("apply 3 should fail")
	}
	if out := eval(t, s, "apply 2"); out != "Added 1 charts\n" {
		t.Errorf("apply: %q", out)
	}
	charts := s.edit.Charts()
	if len(charts) != 1 || charts[0].Title != "Trend" {
		t.Errorf("charts = %+v", charts)
	}
	eval(t, s, "apply")
	if got := len(s.edit.Charts()); got != 3 {
		t.Errorf("charts after apply all = %d", got)
	}
}

func TestDiscard(t *testing.T) {
	s, _ := newTestSession(t, nil)
	eval(t, s, "add area")
	eval(t, s, "discard")
	if len(s.edit.Charts()) != 0 || s.edit.Dirty() {
		t.Error("discard should revert")
	}
}

func TestSaveFailureKeepsChanges(t *testing.T) {
	s, saver := newTestSession(t, nil)
	saver.fail = errors.New("disk full")
	eval(t, s, "add bar")
	if _, err := s.Eval(context.Background(), "save"); err == nil {
		t.Fatal("expected save error")
	}
	if !s.edit.Dirty() || len(s.edit.Charts()) != 1 {
		t.Error("failed save should keep the edit")
	}
}

func TestExit(t *testing.T) {
	s, _ := newTestSession(t, nil)
	eval(t, s, "add bar")
	out, err := s.Eval(context.Background(), "exit")
	if !errors.Is(err, ErrExit) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "Unsaved changes were discarded") {
		t.Errorf("exit: %q", out)
	}
	if !reflect.DeepEqual(s.CommandHistory, []string{"add bar", "exit"}) {
		t.Errorf("history = %v", s.CommandHistory)
	}
}

func TestComplete(t *testing.T) {
	s, _ := newTestSession(t, nil)
	eval(t, s, "add bar")

	cases := []struct {
		input string
		want  []string
	}{
		{"s", []string{"save", "series", "set", "status", "suggest"}},
		{"add ", []string{"area", "bar", "line", "pie"}},
		{"add p", []string{"pie"}},
		{"remove ", []string{"c1"}},
		{"set c1 ", []string{"title", "type", "x", "y"}},
		{"set c1 x R", []string{"Region"}},
		{"set c1 type l", []string{"line"}},
		{"charts ", nil},
	}
	for _, tc := range cases {
		if got := s.Complete(tc.input); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Complete(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(42e9); got != "42s" {
		t.Errorf("got %q", got)
	}
	if got := formatDuration(125e9); got != "2m 5s" {
		t.Errorf("got %q", got)
	}
}
