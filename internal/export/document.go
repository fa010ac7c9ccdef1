// Package export writes dashboards and their chart series to portable files
// and reads dashboard definitions back.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klytics/sheetdash/internal/dashboard"
)

// Format is a dashboard document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown export format %q (supported: json, yaml)", s)
}

// documentVersion is bumped when the document layout changes.
const documentVersion = 1

// Document is the portable form of a dashboard. It carries the chart
// configuration but not the owner, file binding or timestamps.
type Document struct {
	Version     int               `json:"version" yaml:"version"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Charts      []dashboard.Chart `json:"charts" yaml:"charts"`
}

// NewDocument captures d.
func NewDocument(d dashboard.Dashboard) Document {
	charts := d.Charts
	if charts == nil {
		charts = []dashboard.Chart{}
	}
	return Document{
		Version:     documentVersion,
		Name:        d.Name,
		Description: d.Description,
		Charts:      charts,
	}
}

// Encode writes doc in the given format.
func Encode(w io.Writer, doc Document, f Format) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("could not encode YAML: %w", err)
		}
		return enc.Close()
	case JSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("could not encode JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ErrInvalidDocument is wrapped by every Decode failure.
var ErrInvalidDocument = errors.New("invalid dashboard document")

// Decode reads a document and validates its charts.
func Decode(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: could not parse YAML: %v", ErrInvalidDocument, err)
		}
	case JSON, "":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: could not parse JSON: %v", ErrInvalidDocument, err)
		}
	default:
		return Document{}, fmt.Errorf("unknown export format %q", f)
	}

	if doc.Version > documentVersion {
		return Document{}, fmt.Errorf("%w: version %d is newer than supported version %d", ErrInvalidDocument, doc.Version, documentVersion)
	}
	if strings.TrimSpace(doc.Name) == "" {
		return Document{}, fmt.Errorf("%w: no dashboard name", ErrInvalidDocument)
	}
	for i, c := range doc.Charts {
		if !c.Type.Valid() {
			return Document{}, fmt.Errorf("%w: chart %d: %w %q", ErrInvalidDocument, i+1, dashboard.ErrUnknownChartType, c.Type)
		}
	}
	return doc, nil
}

// Suggestions turns the document charts into suggestions so they can be
// applied to a collection with fresh ids.
func (doc Document) Suggestions() []dashboard.Suggestion {
	out := make([]dashboard.Suggestion, len(doc.Charts))
	for i, c := range doc.Charts {
		out[i] = dashboard.Suggestion{Type: c.Type, Title: c.Title, XAxis: c.XAxis, YAxis: c.YAxis}
	}
	return out
}
