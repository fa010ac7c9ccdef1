package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readDelimited decodes delimited text into typed cells. Empty fields become
// nulls, TRUE/FALSE become booleans and numeric literals become numbers.
func readDelimited(data []byte, delim rune) ([][]Cell, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, &DecodeError{Kind: KindDelimited, Err: errors.New("content is binary, not delimited text")}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if delim == 0 {
		delim = sniffDelimiter(data)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]Cell
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Kind: KindDelimited, Err: err}
		}
		cells := make([]Cell, len(record))
		for i, field := range record {
			cells[i] = textCell(field)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the
// first line, ignoring quoted sections. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, ch := range string(line) {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case ch == ',' || ch == ';' || ch == '\t':
			counts[ch]++
		}
	}

	best := ','
	for _, cand := range []rune{';', '\t'} {
		if counts[cand] > counts[best] {
			best = cand
		}
	}
	return best
}

// textCell types a single delimited field.
func textCell(field string) Cell {
	if field == "" {
		return NullCell()
	}
	s := strings.TrimSpace(field)
	switch strings.ToUpper(s) {
	case "TRUE":
		return BoolCell(true)
	case "FALSE":
		return BoolCell(false)
	}
	if looksNumeric(s) {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return NumberCell(n)
		}
	}
	return StringCell(field)
}

// looksNumeric rejects forms ParseFloat accepts but a spreadsheet would keep
// as text, such as "inf", "NaN" and hex literals.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for i, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '+' || ch == '-':
			if i != 0 && s[i-1] != 'e' && s[i-1] != 'E' {
				return false
			}
		case ch == '.' || ch == 'e' || ch == 'E':
		default:
			return false
		}
	}
	return digits > 0
}
