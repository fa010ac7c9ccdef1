package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/klytics/sheetdash/internal/dashboard"
)

// DashboardUpdate lists the dashboard fields to change. Nil fields are kept;
// an empty FileID detaches the file.
type DashboardUpdate struct {
	Name        *string
	Description *string
	FileID      *string
	Charts      *[]dashboard.Chart
}

const dashboardColumns = `id, user_id, name, description, file_id, chart_config, created_at, updated_at`

// CreateDashboard stores a new dashboard for d.UserID. The chart config is
// stored as given, normally empty.
func (s *Store) CreateDashboard(ctx context.Context, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	if d.ID == "" {
		d.ID = s.ids()
	}
	if d.Charts == nil {
		d.Charts = []dashboard.Chart{}
	}
	charts, err := json.Marshal(d.Charts)
	if err != nil {
		return dashboard.Dashboard{}, &PersistenceError{Op: "insert", Kind: "dashboard", ID: d.ID, Err: err}
	}
	stamp := s.stamp()
	d.CreatedAt = fromStamp(stamp)
	d.UpdatedAt = d.CreatedAt

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dashboards (`+dashboardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Name, nullString(d.Description), nullString(d.FileID), string(charts), stamp, stamp)
	if err != nil {
		return dashboard.Dashboard{}, &PersistenceError{Op: "insert", Kind: "dashboard", ID: d.ID, Err: err}
	}
	return d, nil
}

// Dashboard returns one of the user's dashboards.
func (s *Store) Dashboard(ctx context.Context, userID, id string) (dashboard.Dashboard, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE user_id = ? AND id = ?`, userID, id)
	d, err := scanDashboard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dashboard.Dashboard{}, &PersistenceError{Op: "get", Kind: "dashboard", ID: id, Err: ErrNotFound}
	}
	if err != nil {
		return dashboard.Dashboard{}, &PersistenceError{Op: "get", Kind: "dashboard", ID: id, Err: err}
	}
	return d, nil
}

// Dashboards lists the user's dashboards, most recently updated first.
func (s *Store) Dashboards(ctx context.Context, userID string) ([]dashboard.Dashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Kind: "dashboard", Err: err}
	}
	defer rows.Close()

	out := []dashboard.Dashboard{}
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "list", Kind: "dashboard", Err: err}
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Kind: "dashboard", Err: err}
	}
	return out, nil
}

// UpdateDashboard applies u and bumps updated_at.
func (s *Store) UpdateDashboard(ctx context.Context, userID, id string, u DashboardUpdate) (dashboard.Dashboard, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.stamp()}

	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*u.Description))
	}
	if u.FileID != nil {
		sets = append(sets, "file_id = ?")
		args = append(args, nullString(*u.FileID))
	}
	if u.Charts != nil {
		charts := *u.Charts
		if charts == nil {
			charts = []dashboard.Chart{}
		}
		data, err := json.Marshal(charts)
		if err != nil {
			return dashboard.Dashboard{}, &PersistenceError{Op: "update", Kind: "dashboard", ID: id, Err: err}
		}
		sets = append(sets, "chart_config = ?")
		args = append(args, string(data))
	}

	args = append(args, userID, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE dashboards SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`, args...)
	if err != nil {
		return dashboard.Dashboard{}, &PersistenceError{Op: "update", Kind: "dashboard", ID: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dashboard.Dashboard{}, &PersistenceError{Op: "update", Kind: "dashboard", ID: id, Err: ErrNotFound}
	}
	return s.Dashboard(ctx, userID, id)
}

// SaveCharts replaces the chart config of a dashboard.
func (s *Store) SaveCharts(ctx context.Context, userID, id string, charts []dashboard.Chart) (dashboard.Dashboard, error) {
	return s.UpdateDashboard(ctx, userID, id, DashboardUpdate{Charts: &charts})
}

// DeleteDashboard removes one of the user's dashboards.
func (s *Store) DeleteDashboard(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dashboards WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return &PersistenceError{Op: "delete", Kind: "dashboard", ID: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &PersistenceError{Op: "delete", Kind: "dashboard", ID: id, Err: ErrNotFound}
	}
	return nil
}

func scanDashboard(sc scanner) (dashboard.Dashboard, error) {
	var (
		d                dashboard.Dashboard
		desc, fileID     sql.NullString
		charts           string
		created, updated int64
	)
	if err := sc.Scan(&d.ID, &d.UserID, &d.Name, &desc, &fileID, &charts, &created, &updated); err != nil {
		return dashboard.Dashboard{}, err
	}
	d.Description = desc.String
	d.FileID = fileID.String
	d.CreatedAt = fromStamp(created)
	d.UpdatedAt = fromStamp(updated)
	d.Charts = []dashboard.Chart{}
	if charts != "" {
		if err := json.Unmarshal([]byte(charts), &d.Charts); err != nil {
			return dashboard.Dashboard{}, fmt.Errorf("chart_config of %s: %w", d.ID, err)
		}
	}
	return d, nil
}
