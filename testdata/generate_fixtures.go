//go:build ignore

// This program writes sample spreadsheets for trying the dash CLI:
//
//	go run testdata/generate_fixtures.go
//	dash file upload testdata/sample.xlsx
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

var rows = [][]any{
	{"Region", "Month", "Sales", "Units"},
	{"North", "Jan", 1200.5, 40},
	{"South", "Jan", 980, 31},
	{"East", "Jan", 1430.25, 52},
	{"West", "Jan", 760, 22},
	{"North", "Feb", 1310, 44},
	{"South", "Feb", 1020.75, 35},
	{"East", "Feb", 1500, 55},
	{"West", "Feb", nil, 20},
	{"North", "Mar", 1405, 47},
	{"South", "Mar", 1110, 38},
	{"East", "Mar", 1620.4, 60},
	{"West", "Mar", 845, 26},
}

func main() {
	dir := "testdata"
	if err := generateXlsx(filepath.Join(dir, "sample.xlsx")); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample.xlsx: %v\n", err)
		os.Exit(1)
	}
	if err := generateCSV(filepath.Join(dir, "sample.csv")); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample.csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test fixtures generated successfully.")
}

func generateXlsx(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Sales"); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow("Sales", cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func generateCSV(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(out, ",")
			}
			if v != nil {
				fmt.Fprint(out, v)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}
