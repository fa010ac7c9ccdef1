package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/klytics/sheetdash/internal/dashboard"
	"github.com/klytics/sheetdash/internal/export"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/table"
	"github.com/klytics/sheetdash/internal/workspace"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, "file list", map[string]int{"files": 2}); err != nil {
		t.Fatal(err)
	}
	var got JSONResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.OK || got.Command != "file list" || got.Version == "" || got.Error != "" {
		t.Errorf("result = %+v", got)
	}
}

func TestPrintJSONError(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONError(&buf, "parse", errors.New("bad sheet"), ExitUserError); err != nil {
		t.Fatal(err)
	}
	var got JSONResult
	json.Unmarshal(buf.Bytes(), &got)
	if got.OK || got.Error != "bad sheet" || got.Code != ExitUserError || got.Data != nil {
		t.Errorf("result = %+v", got)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{Usagef("expected a file, got %q", "x"), ExitUserError},
		{&workspace.ValidationError{Field: "file type", Reason: "no"}, ExitUserError},
		{fmt.Errorf("parse: %w", table.ErrEmptyTable), ExitUserError},
		{&table.DecodeError{Kind: table.KindWorkbook, Err: errors.New("zip")}, ExitUserError},
		{fmt.Errorf("dashboard d1: %w", store.ErrNotFound), ExitUserError},
		{fmt.Errorf("%w %q", dashboard.ErrUnknownChartType, "radar"), ExitUserError},
		{fmt.Errorf("%w: no name", export.ErrInvalidDocument), ExitUserError},
		{workspace.ErrNoFile, ExitUserError},
		{workspace.ErrNoSuggester, ExitSystemError},
		{errors.New("disk I/O error"), ExitSystemError},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWriterResult(t *testing.T) {
	var buf bytes.Buffer
	text := func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "2 files")
		return err
	}

	if err := NewWriter(&buf, FormatText, "file list").Result([]int{1, 2}, text); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "2 files\n" {
		t.Errorf("text = %q", buf.String())
	}

	buf.Reset()
	w := NewWriter(&buf, FormatJSON, "file list")
	if !w.JSON() {
		t.Error("JSON() = false")
	}
	if err := w.Result([]int{1, 2}, text); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"command": "file list"`) {
		t.Errorf("json = %s", buf.String())
	}
}

func TestTable(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	err := Table(&buf, []string{"ID", "NAME"}, [][]string{{"f1", "sales.csv"}, {"f22", "q3.xlsx"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "ID   NAME\nf1   sales.csv\nf22  q3.xlsx\n"
	if buf.String() != want {
		t.Errorf("table:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestShouldPageOffTerminal(t *testing.T) {
	if ShouldPage(strings.Repeat("line\n", 500)) {
		t.Error("tests do not run on a terminal")
	}
}

func TestTermHeight(t *testing.T) {
	t.Setenv("LINES", "12")
	if termHeight() != 12 {
		t.Errorf("termHeight = %d", termHeight())
	}
	t.Setenv("LINES", "")
	if termHeight() != defaultTermHeight {
		t.Errorf("termHeight = %d", termHeight())
	}
}
