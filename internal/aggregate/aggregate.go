// Package aggregate derives chart-ready series from a parsed table.
package aggregate

import (
	"math"

	"github.com/klytics/sheetdash/internal/table"
)

// DefaultWindow is the number of rows sequential charts show when no limit is
// given.
const DefaultWindow = 50

// UnknownKey labels rows whose category cell is empty.
const UnknownKey = "Unknown"

// Point is one group of a categorical series.
type Point struct {
	Key   string  `json:"name"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

type accumulator struct {
	sum   float64
	count int
}

// Categorical groups rows by the xAxis column and folds the yAxis column into
// each group. Keys appear in first-seen order.
//
// Value is the per-group sum when at least one row holds a real non-zero
// number in yAxis, and the per-group row count otherwise. The choice is made
// once for the whole table. Columns that do not exist read as nulls.
func Categorical(t *table.Table, xAxis, yAxis string) []Point {
	if t == nil || t.Len() == 0 {
		return []Point{}
	}

	var order []string
	groups := make(map[string]*accumulator)
	numeric := false

	for _, row := range t.Rows {
		key := categoryKey(t.Value(row, xAxis))
		y := t.Value(row, yAxis)

		v, _ := y.Float()
		if n, ok := y.Num(); ok && n != 0 && !math.IsNaN(n) {
			numeric = true
		}

		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
			order = append(order, key)
		}
		acc.sum += v
		acc.count++
	}

	points := make([]Point, len(order))
	for i, key := range order {
		acc := groups[key]
		value := float64(acc.count)
		if numeric {
			value = acc.sum
		}
		points[i] = Point{Key: key, Value: value, Count: acc.count}
	}
	return points
}

func categoryKey(c table.Cell) string {
	if c.IsNull() {
		return UnknownKey
	}
	return c.String()
}

// Window returns the first limit rows in table order with their original
// values: min(limit, rows) of them. A limit of zero or less yields no rows.
func Window(t *table.Table, limit int) []table.Record {
	if t == nil || t.Len() == 0 || limit <= 0 {
		return []table.Record{}
	}
	return t.Records(limit)
}
