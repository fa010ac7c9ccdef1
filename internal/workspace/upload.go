package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/klytics/sheetdash/internal/blob"
	"github.com/klytics/sheetdash/internal/store"
	"github.com/klytics/sheetdash/internal/table"
)

// Upload is a file handed to the workspace.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// Validate checks the file type and size. The type is accepted when either
// the MIME type or the extension is a known spreadsheet type.
func (w *Workspace) Validate(name, mimeType string, size int64) error {
	if !acceptedType(name, mimeType) {
		return &ValidationError{Field: "file type", Reason: "please upload an Excel (.xlsx, .xls) or CSV file"}
	}
	if size > w.maxBytes {
		return &ValidationError{Field: "file size", Reason: fmt.Sprintf("file must be less than %d MB", w.maxBytes>>20)}
	}
	return nil
}

func acceptedType(name, mimeType string) bool {
	for _, m := range table.AcceptedMIMETypes {
		if strings.EqualFold(strings.TrimSpace(strings.Split(mimeType, ";")[0]), m) {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range table.AcceptedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Upload validates, parses and stores a file. Nothing is stored when
// validation or parsing fails, and the stored bytes are removed again when
// the metadata record cannot be written.
func (w *Workspace) Upload(ctx context.Context, up Upload) (store.File, *table.Table, error) {
	if err := w.Validate(up.Name, up.MimeType, int64(len(up.Data))); err != nil {
		return store.File{}, nil, err
	}

	tbl, err := table.Parse(up.Data, table.DetectKind(up.Name, up.MimeType))
	if err != nil {
		return store.File{}, nil, err
	}

	key := fmt.Sprintf("%s/%d-%s", blob.SafeName(w.userID), w.now().UnixMilli(), blob.SafeName(up.Name))
	if err := w.blobs.Put(ctx, key, up.Data); err != nil {
		return store.File{}, nil, fmt.Errorf("could not store file: %w", err)
	}

	f, err := w.store.InsertFile(ctx, store.File{
		UserID:    w.userID,
		FileName:  up.Name,
		FilePath:  key,
		FileSize:  int64(len(up.Data)),
		MimeType:  up.MimeType,
		SheetName: tbl.SheetName,
		RowCount:  tbl.Len(),
	})
	if err != nil {
		if rmErr := w.blobs.Delete(context.WithoutCancel(ctx), key); rmErr != nil {
			w.logger.Warn("could not remove orphaned upload", "key", key, "error", rmErr)
		}
		return store.File{}, nil, err
	}

	w.logger.Info("file uploaded", "file_id", f.ID, "name", f.FileName, "rows", f.RowCount, "columns", len(tbl.Headers))
	return f, tbl, nil
}
