package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type (
	Folder struct {
		ID        string
		Name      string
		OwnerID   string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// File is the persisted upload descriptor, the bytes live under
	// StoragePath in the upload storage.
	File struct {
		ID          string
		FolderID    string
		OwnerID     string
		Name        string
		MimeType    string
		SizeBytes   int64
		StoragePath string
		CreatedAt   time.Time
	}
)

const (
	folderColumns = `id, name, owner_id, created_at, updated_at`
	fileColumns   = `id, folder_id, owner_id, name, mime_type, size_bytes, storage_path, created_at`
)

// ListFolders returns the live folders of owner, newest first.
func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `select `+folderColumns+` from folders
		where owner_id = ? and deleted_at is null
		order by created_at desc, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("unable to list folders, cause %w", err)
	}
	defer rows.Close()
	var out []Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CreateFolder(ctx context.Context, ownerID, name string) (*Folder, error) {
	now := fromMillis(toMillis(s.now()))
	f := &Folder{ID: uuid.NewString(), Name: name, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx, `insert into folders(`+folderColumns+`) values (?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.OwnerID, toMillis(f.CreatedAt), toMillis(f.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("unable to insert folder, cause %w", err)
	}
	return f, nil
}

// Folder returns a live folder or NotFound.
func (s *Store) Folder(ctx context.Context, id string) (*Folder, error) {
	row := s.db.QueryRowContext(ctx, `select `+folderColumns+` from folders where id = ? and deleted_at is null`, id)
	f, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound{Kind: "folder", ID: id}
	} else if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `update folders set name = ?, updated_at = ? where id = ? and deleted_at is null`,
		name, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("unable to rename folder %v, cause %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFound{Kind: "folder", ID: id}
	}
	return nil
}

// MarkFolderDeleted hides the folder and every file in it and returns the
// files whose bytes must now be removed.
func (s *Store) MarkFolderDeleted(ctx context.Context, id string) ([]File, error) {
	var files []File
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := toMillis(s.now())
		res, err := tx.ExecContext(ctx, `update folders set deleted_at = ? where id = ? and deleted_at is null`, now, id)
		if err != nil {
			return fmt.Errorf("unable to mark folder %v, cause %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return NotFound{Kind: "folder", ID: id}
		}
		if _, err := tx.ExecContext(ctx, `update files set deleted_at = ? where folder_id = ? and deleted_at is null`, now, id); err != nil {
			return fmt.Errorf("unable to mark files of folder %v, cause %w", id, err)
		}
		files, err = queryFiles(ctx, tx, `select `+fileColumns+` from files where folder_id = ? order by created_at`, id)
		return err
	})
	return files, err
}

// PurgeFolder deletes a folder previously marked as deleted. It fails if
// file rows still reference it.
func (s *Store) PurgeFolder(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from folders where id = ? and deleted_at is not null
		and not exists (select 1 from files where folder_id = ?)`, id, id)
	if err != nil {
		return fmt.Errorf("unable to purge folder %v, cause %w", id, err)
	}
	return nil
}

// DeletedFolders lists folders marked as deleted that still have a row.
func (s *Store) DeletedFolders(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select id from folders where deleted_at is not null order by deleted_at limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list deleted folders, cause %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Files returns the live files of a folder, newest first.
func (s *Store) Files(ctx context.Context, folderID string) ([]File, error) {
	return queryFiles(ctx, s.db, `select `+fileColumns+` from files
		where folder_id = ? and deleted_at is null
		order by created_at desc, id`, folderID)
}

// File returns a live file or NotFound.
func (s *Store) File(ctx context.Context, id string) (*File, error) {
	files, err := queryFiles(ctx, s.db, `select `+fileColumns+` from files where id = ? and deleted_at is null`, id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, NotFound{Kind: "file", ID: id}
	}
	return &files[0], nil
}

// CreateFile persists a descriptor, ID and CreatedAt are assigned here.
// The folder must still be live when the row is written, otherwise
// NotFound is returned and nothing is inserted.
func (s *Store) CreateFile(ctx context.Context, f File) (*File, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = fromMillis(toMillis(s.now()))
	res, err := s.db.ExecContext(ctx, `insert into files(`+fileColumns+`)
		select ?, ?, ?, ?, ?, ?, ?, ?
		where exists (select 1 from folders where id = ? and deleted_at is null)`,
		f.ID, f.FolderID, f.OwnerID, f.Name, f.MimeType, f.SizeBytes, f.StoragePath, toMillis(f.CreatedAt), f.FolderID)
	if isUniqueViolation(err) {
		return nil, Conflict{Kind: "file", Field: "storage_path"}
	} else if err != nil {
		return nil, fmt.Errorf("unable to insert file, cause %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("unable to insert file, cause %w", err)
	} else if n == 0 {
		return nil, NotFound{Kind: "folder", ID: f.FolderID}
	}
	return &f, nil
}

func (s *Store) MarkFileDeleted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update files set deleted_at = ? where id = ? and deleted_at is null`, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("unable to mark file %v, cause %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFound{Kind: "file", ID: id}
	}
	return nil
}

// PurgeFile removes a descriptor marked as deleted.
func (s *Store) PurgeFile(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from files where id = ? and deleted_at is not null`, id)
	if err != nil {
		return fmt.Errorf("unable to purge file %v, cause %w", id, err)
	}
	return nil
}

// DeletedFiles lists descriptors marked as deleted, oldest mark first.
func (s *Store) DeletedFiles(ctx context.Context, limit int) ([]File, error) {
	return queryFiles(ctx, s.db, `select `+fileColumns+` from files
		where deleted_at is not null order by deleted_at limit ?`, limit)
}

type (
	scanner interface {
		Scan(dest ...interface{}) error
	}

	querier interface {
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	}
)

func scanFolder(sc scanner) (Folder, error) {
	var f Folder
	var created, updated int64
	if err := sc.Scan(&f.ID, &f.Name, &f.OwnerID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, err
		}
		return f, fmt.Errorf("unable to scan folder, cause %w", err)
	}
	f.CreatedAt = fromMillis(created)
	f.UpdatedAt = fromMillis(updated)
	return f, nil
}

func queryFiles(ctx context.Context, q querier, query string, args ...interface{}) ([]File, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query files, cause %w", err)
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		var f File
		var created int64
		if err := rows.Scan(&f.ID, &f.FolderID, &f.OwnerID, &f.Name, &f.MimeType, &f.SizeBytes, &f.StoragePath, &created); err != nil {
			return nil, fmt.Errorf("unable to scan file, cause %w", err)
		}
		f.CreatedAt = fromMillis(created)
		out = append(out, f)
	}
	return out, rows.Err()
}
