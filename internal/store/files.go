package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// File is the metadata record of an uploaded spreadsheet.
type File struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type,omitempty"`
	SheetName string    `json:"sheet_name,omitempty"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

const fileColumns = `id, user_id, file_name, file_path, file_size, mime_type, sheet_name, row_count, created_at`

// InsertFile stores f. ID and CreatedAt are assigned when empty.
func (s *Store) InsertFile(ctx context.Context, f File) (File, error) {
	if f.ID == "" {
		f.ID = s.ids()
	}
	stamp := s.stamp()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = fromStamp(stamp)
	} else {
		stamp = f.CreatedAt.UTC().UnixNano()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.FileName, f.FilePath, f.FileSize, nullString(f.MimeType), f.SheetName, f.RowCount, stamp)
	if err != nil {
		return File{}, &PersistenceError{Op: "insert", Kind: "file", ID: f.ID, Err: err}
	}
	return f, nil
}

// File returns one of the user's files.
func (s *Store) File(ctx context.Context, userID, id string) (File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = ? AND id = ?`, userID, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, &PersistenceError{Op: "get", Kind: "file", ID: id, Err: ErrNotFound}
	}
	if err != nil {
		return File{}, &PersistenceError{Op: "get", Kind: "file", ID: id, Err: err}
	}
	return f, nil
}

// Files lists the user's files, newest first.
func (s *Store) Files(ctx context.Context, userID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Kind: "file", Err: err}
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "list", Kind: "file", Err: err}
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Kind: "file", Err: err}
	}
	return files, nil
}

// DeleteFile removes the file record and detaches it from the user's
// dashboards.
func (s *Store) DeleteFile(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "delete", Kind: "file", ID: id, Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return &PersistenceError{Op: "delete", Kind: "file", ID: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &PersistenceError{Op: "delete", Kind: "file", ID: id, Err: ErrNotFound}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE dashboards SET file_id = NULL WHERE user_id = ? AND file_id = ?`, userID, id); err != nil {
		return &PersistenceError{Op: "delete", Kind: "file", ID: id, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "delete", Kind: "file", ID: id, Err: err}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(sc scanner) (File, error) {
	var (
		f       File
		mime    sql.NullString
		created int64
	)
	if err := sc.Scan(&f.ID, &f.UserID, &f.FileName, &f.FilePath, &f.FileSize, &mime, &f.SheetName, &f.RowCount, &created); err != nil {
		return File{}, err
	}
	f.MimeType = mime.String
	f.CreatedAt = fromStamp(created)
	return f, nil
}
