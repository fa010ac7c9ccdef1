// Package table turns uploaded spreadsheets into a normalized header/row
// structure that charts are derived from.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row holds one data row, aligned positionally with Table.Headers.
type Row []Cell

// Table is a parsed sheet: a header row plus data rows of equal width.
type Table struct {
	SheetName string
	Headers   []string
	Rows      []Row

	index map[string]int
}

// New builds a table from headers and rows, padding short rows with nulls and
// dropping cells beyond the header width.
func New(sheetName string, headers []string, rows []Row) *Table {
	t := &Table{
		SheetName: sheetName,
		Headers:   append([]string(nil), headers...),
		Rows:      make([]Row, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, fitRow(r, len(headers)))
	}
	t.buildIndex()
	return t
}

func fitRow(r Row, width int) Row {
	out := make(Row, width)
	copy(out, r)
	return out
}

// buildIndex maps each header to a column. When a header repeats, the
// rightmost column wins, matching how keyed records overwrite earlier keys.
func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		t.index[h] = i
	}
}

// Column returns the column position for a header name.
func (t *Table) Column(name string) (int, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether name is one of the headers.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Missing returns the names from cols that are not headers of t, in order,
// without duplicates.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range cols {
		if seen[c] || t.HasColumn(c) {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Value returns the cell of row r under the named column, or a null cell when
// the column does not exist.
func (t *Table) Value(r Row, column string) Cell {
	i, ok := t.Column(column)
	if !ok || i >= len(r) {
		return NullCell()
	}
	return r[i]
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Record returns row i as a keyed record.
func (t *Table) Record(i int) Record {
	return Record{Headers: t.Headers, Cells: t.Rows[i]}
}

// Records returns the first n rows as keyed records. n <= 0 or n beyond the
// row count returns every row.
func (t *Table) Records(n int) []Record {
	if n <= 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = t.Record(i)
	}
	return out
}

// Record is a row viewed as header → cell pairs. It encodes as a JSON object
// whose keys keep header order.
type Record struct {
	Headers []string
	Cells   Row
}

// Get returns the value under the named header. For repeated headers the
// rightmost column is returned.
func (r Record) Get(name string) Cell {
	for i := len(r.Headers) - 1; i >= 0; i-- {
		if r.Headers[i] == name {
			if i < len(r.Cells) {
				return r.Cells[i]
			}
			return NullCell()
		}
	}
	return NullCell()
}

// MarshalJSON writes the record as an ordered JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	written := make(map[string]bool, len(r.Headers))
	first := true
	for i := range r.Headers {
		name := r.Headers[i]
		if written[name] {
			continue
		}
		written[name] = true
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := r.Get(name).MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object into a record, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}
	var rec Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var c Cell
		if err := c.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		rec.Headers = append(rec.Headers, key)
		rec.Cells = append(rec.Cells, c)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = rec
	return nil
}

type tableJSON struct {
	SheetName string   `json:"sheetName"`
	Headers   []string `json:"headers"`
	Rows      []Record `json:"rows"`
}

// MarshalJSON encodes the table as {sheetName, headers, rows[]} with keyed rows.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{
		SheetName: t.SheetName,
		Headers:   t.Headers,
		Rows:      t.Records(0),
	})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw struct {
		SheetName string                     `json:"sheetName"`
		Headers   []string                   `json:"headers"`
		Rows      []map[string]json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Headers) == 0 {
		return fmt.Errorf("table has no headers")
	}
	rows := make([]Row, 0, len(raw.Rows))
	for _, obj := range raw.Rows {
		row := make(Row, len(raw.Headers))
		for i, h := range raw.Headers {
			msg, ok := obj[h]
			if !ok {
				continue
			}
			if err := row[i].UnmarshalJSON(msg); err != nil {
				return fmt.Errorf("column %q: %w", h, err)
			}
		}
		rows = append(rows, row)
	}
	*t = *New(raw.SheetName, raw.Headers, rows)
	return nil
}
