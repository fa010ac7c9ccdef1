package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CellKind identifies which variant a Cell holds.
type CellKind uint8

const (
	// Null is an absent or empty cell.
	Null CellKind = iota
	// String is a text cell.
	String
	// Number is a numeric cell.
	Number
	// Bool is a boolean cell.
	Bool
)

func (k CellKind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("CellKind(%d)", uint8(k))
	}
}

// Cell is a single spreadsheet value. The zero value is a null cell.
type Cell struct {
	kind CellKind
	str  string
	num  float64
	b    bool
}

// NullCell returns an empty cell.
func NullCell() Cell { return Cell{} }

// StringCell returns a text cell.
func StringCell(s string) Cell { return Cell{kind: String, str: s} }

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell { return Cell{kind: Number, num: f} }

// BoolCell returns a boolean cell.
func BoolCell(b bool) Cell { return Cell{kind: Bool, b: b} }

// Kind reports which variant the cell holds.
func (c Cell) Kind() CellKind { return c.kind }

// IsNull reports whether the cell is empty.
func (c Cell) IsNull() bool { return c.kind == Null }

// Text returns the string payload and whether the cell is a String.
func (c Cell) Text() (string, bool) { return c.str, c.kind == String }

// Num returns the numeric payload and whether the cell is a Number.
func (c Cell) Num() (float64, bool) { return c.num, c.kind == Number }

// Boolean returns the boolean payload and whether the cell is a Bool.
func (c Cell) Boolean() (bool, bool) { return c.b, c.kind == Bool }

// String renders the cell the way it is displayed as a category label.
// Null cells render as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case String:
		return c.str
	case Number:
		return formatNumber(c.num)
	case Bool:
		return strconv.FormatBool(c.b)
	default:
		return ""
	}
}

// Float coerces the cell to a number. Numbers are returned as is, numeric
// text is parsed, booleans map to 1 and 0. Anything else, including NaN,
// yields (0, false).
func (c Cell) Float() (float64, bool) {
	switch c.kind {
	case Number:
		if math.IsNaN(c.num) {
			return 0, false
		}
		return c.num, true
	case String:
		s := strings.TrimSpace(c.str)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case Bool:
		if c.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, true
	}
}

// Equal reports whether two cells hold the same variant and payload.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case String:
		return c.str == o.str
	case Number:
		return c.num == o.num
	case Bool:
		return c.b == o.b
	default:
		return true
	}
}

// MarshalJSON encodes the cell as a JSON scalar or null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case String:
		return json.Marshal(c.str)
	case Number:
		if math.IsNaN(c.num) || math.IsInf(c.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(c.num)
	case Bool:
		return json.Marshal(c.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar or null into the cell.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*c = NullCell()
	case string:
		*c = StringCell(x)
	case float64:
		*c = NumberCell(x)
	case bool:
		*c = BoolCell(x)
	default:
		return fmt.Errorf("cell must be a string, number, boolean or null, got %T", v)
	}
	return nil
}

func formatNumber(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
