package dashboard

import (
	"github.com/google/uuid"

	"github.com/klytics/sheetdash/internal/table"
)

// IDGenerator hands out chart identifiers.
type IDGenerator interface {
	NewID() string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() string

// NewID calls f.
func (f IDFunc) NewID() string { return f() }

// UUIDs generates random UUIDv4 identifiers.
var UUIDs IDGenerator = IDFunc(uuid.NewString)

// Charts is the ordered chart collection of one dashboard.
type Charts struct {
	ids   IDGenerator
	items []Chart
}

// NewCharts wraps an existing chart list. A nil generator uses UUIDs.
func NewCharts(ids IDGenerator, existing []Chart) *Charts {
	if ids == nil {
		ids = UUIDs
	}
	return &Charts{
		ids:   ids,
		items: append([]Chart(nil), existing...),
	}
}

// List returns a copy of the charts in display order.
func (c *Charts) List() []Chart {
	out := make([]Chart, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of charts.
func (c *Charts) Len() int { return len(c.items) }

// Get returns the chart with the given id.
func (c *Charts) Get(id string) (Chart, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	return Chart{}, false
}

// Add appends a chart of the given type with a default title, bound to the
// first two headers of tbl. Missing headers bind to "".
func (c *Charts) Add(t ChartType, tbl *table.Table) Chart {
	var x, y string
	if tbl != nil {
		if len(tbl.Headers) > 0 {
			x = tbl.Headers[0]
		}
		if len(tbl.Headers) > 1 {
			y = tbl.Headers[1]
		}
	}
	return c.append(Chart{Type: t, Title: t.DefaultTitle(), XAxis: x, YAxis: y})
}

// Update changes the supplied fields of the chart with the given id. It
// reports whether a chart was found; an unknown id is not an error.
func (c *Charts) Update(id string, patch ChartPatch) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	patch.apply(&c.items[i])
	return true
}

// Remove deletes the chart with the given id and reports whether it existed.
func (c *Charts) Remove(id string) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// ApplySuggestion appends the suggestion as a new chart.
func (c *Charts) ApplySuggestion(s Suggestion) Chart {
	return c.append(Chart{Type: s.Type, Title: s.Title, XAxis: s.XAxis, YAxis: s.YAxis})
}

// ApplyAll appends every suggestion in order and returns the new charts.
func (c *Charts) ApplyAll(ss []Suggestion) []Chart {
	added := make([]Chart, 0, len(ss))
	for _, s := range ss {
		added = append(added, c.ApplySuggestion(s))
	}
	return added
}

func (c *Charts) append(ch Chart) Chart {
	ch.ID = c.freshID()
	c.items = append(c.items, ch)
	return ch
}

// maxIDAttempts bounds how often a generator may repeat itself before
// freshID falls back to random UUIDs.
const maxIDAttempts = 8

// freshID draws ids until one is non-empty and not already in the collection.
func (c *Charts) freshID() string {
	for range maxIDAttempts {
		if id := c.ids.NewID(); id != "" && c.indexOf(id) < 0 {
			return id
		}
	}
	for {
		if id := uuid.NewString(); c.indexOf(id) < 0 {
			return id
		}
	}
}

func (c *Charts) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}
