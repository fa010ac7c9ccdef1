package blob

import (
	"context"
	"errors"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := d.Put(ctx, "u1/1700000000000-sales.csv", []byte("a,b\n1,2\n")); err != nil {
		t.Fatal(err)
	}
	got, err := d.Get(ctx, "u1/1700000000000-sales.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Errorf("Get = %q", got)
	}

	if err := d.Delete(ctx, "u1/1700000000000-sales.csv"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Get(ctx, "u1/1700000000000-sales.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if err := d.Delete(ctx, "u1/1700000000000-sales.csv"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "/etc/passwd", "../x", "u1/../../x", "u1//x", `u1\x`} {
		if err := d.Put(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("Put(%q) accepted", key)
		}
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"sales.csv":           "sales.csv",
		"Q1 report.xlsx":      "Q1_report.xlsx",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a.csv`:   "a.csv",
		"données.csv":         "donnes.csv",
		"...":                 "upload",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
