package table

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(name, cell, v); err != nil {
					t.Fatalf("set %s: %v", cell, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseCSVScenario(t *testing.T) {
	tbl, err := Parse([]byte("Region,Sales\nEast,100\nWest,50\nEast,30\n"), KindDelimited)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(tbl.Headers) != 2 || tbl.Headers[0] != "Region" || tbl.Headers[1] != "Sales" {
		t.Fatalf("headers = %v", tbl.Headers)
	}
	if tbl.Len() != 3 {
		t.Fatalf("rows = %d, want 3", tbl.Len())
	}

	want := []struct {
		region string
		sales  float64
	}{{"East", 100}, {"West", 50}, {"East", 30}}
	for i, w := range want {
		region, ok := tbl.Value(tbl.Rows[i], "Region").Text()
		if !ok || region != w.region {
			t.Errorf("row %d Region = %v", i, tbl.Value(tbl.Rows[i], "Region"))
		}
		sales, ok := tbl.Value(tbl.Rows[i], "Sales").Num()
		if !ok || sales != w.sales {
			t.Errorf("row %d Sales = %v", i, tbl.Value(tbl.Rows[i], "Sales"))
		}
	}
}

func TestParseRowArity(t *testing.T) {
	input := "a,b,c\n1\n1,2,3,4,5\n,x\n"
	tbl, err := Parse([]byte(input), KindDelimited)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, row := range tbl.Rows {
		if len(row) != len(tbl.Headers) {
			t.Errorf("row %d has %d cells, want %d", i, len(row), len(tbl.Headers))
		}
	}

	if !tbl.Rows[0][1].IsNull() || !tbl.Rows[0][2].IsNull() {
		t.Errorf("short row should be padded with nulls: %v", tbl.Rows[0])
	}
	if n, _ := tbl.Rows[1][2].Num(); n != 3 {
		t.Errorf("overflow row kept wrong cells: %v", tbl.Rows[1])
	}
	if !tbl.Rows[2][0].IsNull() {
		t.Errorf("empty field should be null, got %v", tbl.Rows[2][0].Kind())
	}
}

func TestParseHeaderOnly(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"header only", "Region,Sales\n"},
		{"header and blank lines", "Region,Sales\n\n\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), KindDelimited)
			if !errors.Is(err, ErrEmptyTable) {
				t.Fatalf("err = %v, want ErrEmptyTable", err)
			}
			if !IsParseError(err) {
				t.Error("IsParseError should be true")
			}
		})
	}
}

func TestParseKeepsBlankRows(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		rows  int
		blank []int
	}{
		{"blank before data", "Region,Sales\n,\nEast,1\n", 2, []int{0}},
		{"only blank rows", "Region,Sales\n,\n", 1, []int{0}},
		{"blank between data", "Region,Sales\nEast,1\n,\nWest,2\n", 3, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Parse([]byte(tt.data), KindDelimited)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if tbl.Len() != tt.rows {
				t.Fatalf("rows = %d, want %d", tbl.Len(), tt.rows)
			}
			for _, i := range tt.blank {
				for _, h := range tbl.Headers {
					if !tbl.Value(tbl.Rows[i], h).IsNull() {
						t.Errorf("row %d %s = %v, want null", i, h, tbl.Value(tbl.Rows[i], h))
					}
				}
			}
		})
	}
}

func TestParseWorkbookKeepsBlankRows(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"S": {{"a", "b"}, {nil, nil}, {"x", 1}},
	}, []string{"S"})

	tbl, err := Parse(data, KindWorkbook)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
	if !tbl.Value(tbl.Rows[0], "a").IsNull() {
		t.Errorf("a = %v, want null", tbl.Value(tbl.Rows[0], "a"))
	}
}

func TestParseCSVTypes(t *testing.T) {
	tbl, err := Parse([]byte("name,active,score,code\nann,TRUE,1.5,007x\nbob,false,-2e3,\n"), KindDelimited)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if b, ok := tbl.Rows[0][1].Boolean(); !ok || !b {
		t.Errorf("active = %v", tbl.Rows[0][1])
	}
	if b, ok := tbl.Rows[1][1].Boolean(); !ok || b {
		t.Errorf("active = %v", tbl.Rows[1][1])
	}
	if n, ok := tbl.Rows[1][2].Num(); !ok || n != -2000 {
		t.Errorf("score = %v", tbl.Rows[1][2])
	}
	if s, ok := tbl.Rows[0][3].Text(); !ok || s != "007x" {
		t.Errorf("code = %v", tbl.Rows[0][3])
	}
	if !tbl.Rows[1][3].IsNull() {
		t.Errorf("trailing empty field should be null")
	}
}

func TestParseSemicolonDelimited(t *testing.T) {
	tbl, err := Parse([]byte("city;total\n\"Lyon, FR\";12\n"), KindDelimited)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Headers) != 2 {
		t.Fatalf("headers = %v", tbl.Headers)
	}
	if s, _ := tbl.Rows[0][0].Text(); s != "Lyon, FR" {
		t.Errorf("city = %q", s)
	}
}

func TestParseBinaryAsCSV(t *testing.T) {
	_, err := Parse([]byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0x00}, KindDelimited)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if de.Kind != KindDelimited {
		t.Errorf("kind = %v", de.Kind)
	}
}

func TestParseWorkbook(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Orders": {
			{"Status", "Amount", "Paid"},
			{"open", 10, true},
			{"closed", 2.5, false},
			{nil, 7, nil},
		},
		"Other": {
			{"x"},
			{"ignored"},
		},
	}, []string{"Orders", "Other"})

	tbl, err := Parse(data, KindWorkbook)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tbl.SheetName != "Orders" {
		t.Errorf("sheet = %q, want first sheet", tbl.SheetName)
	}
	if tbl.Len() != 3 {
		t.Fatalf("rows = %d", tbl.Len())
	}
	if n, ok := tbl.Value(tbl.Rows[1], "Amount").Num(); !ok || n != 2.5 {
		t.Errorf("Amount = %v", tbl.Value(tbl.Rows[1], "Amount"))
	}
	if b, ok := tbl.Value(tbl.Rows[0], "Paid").Boolean(); !ok || !b {
		t.Errorf("Paid = %v", tbl.Value(tbl.Rows[0], "Paid"))
	}
	if !tbl.Value(tbl.Rows[2], "Status").IsNull() {
		t.Errorf("missing Status should be null")
	}
	if s, ok := tbl.Value(tbl.Rows[0], "Status").Text(); !ok || s != "open" {
		t.Errorf("Status = %v", tbl.Value(tbl.Rows[0], "Status"))
	}
}

func TestParseWorkbookNamedSheet(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"A": {{"h"}, {"1"}},
		"B": {{"k"}, {"v"}},
	}, []string{"A", "B"})

	tbl, err := ParseWith(data, KindWorkbook, Options{Sheet: "B"})
	if err != nil {
		t.Fatalf("ParseWith: %v", err)
	}
	if tbl.SheetName != "B" || tbl.Headers[0] != "k" {
		t.Errorf("got sheet %q headers %v", tbl.SheetName, tbl.Headers)
	}

	if _, err := ParseWith(data, KindWorkbook, Options{Sheet: "Missing"}); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestParseWorkbookHeaderOnly(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{"S": {{"a", "b"}}}, []string{"S"})
	if _, err := Parse(data, KindWorkbook); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("err = %v, want ErrEmptyTable", err)
	}
}

func TestParseInvalidWorkbook(t *testing.T) {
	_, err := Parse([]byte("Region,Sales\nEast,1\n"), KindWorkbook)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name, mime string
		want       Kind
	}{
		{"sales.xlsx", "", KindWorkbook},
		{"SALES.XLS", "", KindWorkbook},
		{"data.csv", "", KindDelimited},
		{"upload", "text/csv; charset=utf-8", KindDelimited},
		{"upload", mimeXLSX, KindWorkbook},
		{"data.csv", mimeXLSX, KindDelimited},
		{"report.txt", mimeXLSX, KindWorkbook},
		{"report.txt", mimeXLS + "; name=x", KindWorkbook},
		{"export.tsv", mimeCSV, KindDelimited},
		{"notes.txt", "", KindDelimited},
		{"notes.txt", "application/pdf", KindDelimited},
		{"book.xlsm", "", KindWorkbook},
		{"notes.pdf", "application/pdf", KindUnknown},
	}
	for _, tt := range tests {
		if got := DetectKind(tt.name, tt.mime); got != tt.want {
			t.Errorf("DetectKind(%q, %q) = %v, want %v", tt.name, tt.mime, got, tt.want)
		}
	}
}

func TestDuplicateHeadersRightmostWins(t *testing.T) {
	tbl, err := Parse([]byte("k,k\n1,2\n"), KindDelimited)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Headers) != 2 {
		t.Fatalf("duplicate headers must be kept: %v", tbl.Headers)
	}
	if n, _ := tbl.Value(tbl.Rows[0], "k").Num(); n != 2 {
		t.Errorf("Value(k) = %v, want rightmost column", n)
	}
}

func TestTableJSON(t *testing.T) {
	tbl := New("S", []string{"b", "a"}, []Row{{StringCell("x"), NullCell()}})
	data, err := json.Marshal(tbl)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"sheetName":"S","headers":["b","a"],"rows":[{"b":"x","a":null}]}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}

	var back Table
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Len() != 1 || !back.Rows[0][0].Equal(StringCell("x")) || !back.Rows[0][1].IsNull() {
		t.Errorf("decoded rows = %v", back.Rows)
	}
}

func TestMissing(t *testing.T) {
	tbl := New("S", []string{"Region", "Sales"}, nil)
	got := tbl.Missing("Region", "Revenue", "Revenue", "")
	if len(got) != 2 || got[0] != "Revenue" || got[1] != "" {
		t.Errorf("Missing = %q", got)
	}
}

func TestRecordJSONKeepsOrder(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"b":1,"a":"x","c":null}`), &r); err != nil {
		t.Fatal(err)
	}
	if strings.Join(r.Headers, ",") != "b,a,c" {
		t.Errorf("headers = %v", r.Headers)
	}
	n, _ := r.Get("b").Num()
	a, _ := r.Get("a").Text()
	if n != 1 || a != "x" || !r.Get("c").IsNull() {
		t.Errorf("cells = %v", r.Cells)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"b":1,"a":"x","c":null}` {
		t.Errorf("re-encoded = %s", out)
	}
	if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
		t.Error("array decoded into record")
	}
}
