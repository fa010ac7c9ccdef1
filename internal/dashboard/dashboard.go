package dashboard

import "time"

// Dashboard is a named set of charts owned by one user, optionally bound to
// an uploaded file.
type Dashboard struct {
	ID          string    `json:"id" yaml:"id"`
	UserID      string    `json:"user_id" yaml:"user_id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	FileID      string    `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	Charts      []Chart   `json:"chart_config" yaml:"chart_config"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasFile reports whether the dashboard is bound to a file.
func (d Dashboard) HasFile() bool { return d.FileID != "" }
