// Package drive exposes folder and file operations on behalf of a
// principal. Every operation fetches the resource first and checks that
// the caller owns it before returning or changing anything.
package drive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/goldyy12/files/store"
	"github.com/goldyy12/files/upload"
	"github.com/spf13/afero"
)

type (
	// Resources is the subset of the data store used by Drive.
	Resources interface {
		ListFolders(ctx context.Context, ownerID string) ([]store.Folder, error)
		CreateFolder(ctx context.Context, ownerID, name string) (*store.Folder, error)
		Folder(ctx context.Context, id string) (*store.Folder, error)
		RenameFolder(ctx context.Context, id, name string) error
		MarkFolderDeleted(ctx context.Context, id string) ([]store.File, error)
		PurgeFolder(ctx context.Context, id string) error
		DeletedFolders(ctx context.Context, limit int) ([]string, error)

		Files(ctx context.Context, folderID string) ([]store.File, error)
		File(ctx context.Context, id string) (*store.File, error)
		CreateFile(ctx context.Context, f store.File) (*store.File, error)
		MarkFileDeleted(ctx context.Context, id string) error
		PurgeFile(ctx context.Context, id string) error
		DeletedFiles(ctx context.Context, limit int) ([]store.File, error)
	}

	// Blobs holds file bytes.
	Blobs interface {
		Receive(ctx context.Context, r *http.Request) (*upload.Descriptor, error)
		Open(storagePath string) (afero.File, error)
		Remove(storagePath string) error
		Discard(ctx context.Context, storagePath string)
	}

	Drive struct {
		res   Resources
		blobs Blobs
		batch int
	}

	// FolderView is a folder with its live files.
	FolderView struct {
		store.Folder
		Files []store.File
	}
)

const (
	maxFolderName = 255
	reapBatch     = 100
)

func New(res Resources, blobs Blobs) *Drive {
	return &Drive{res: res, blobs: blobs, batch: reapBatch}
}

func (d *Drive) ListFolders(ctx context.Context, who *auth.Principal) ([]store.Folder, error) {
	if err := auth.RequirePrincipal(who); err != nil {
		return nil, err
	}
	return d.res.ListFolders(ctx, who.ID)
}

func (d *Drive) CreateFolder(ctx context.Context, who *auth.Principal, name string) (*store.Folder, error) {
	if err := auth.RequirePrincipal(who); err != nil {
		return nil, err
	}
	name, err := folderName(name)
	if err != nil {
		return nil, err
	}
	return d.res.CreateFolder(ctx, who.ID, name)
}

// Folder returns the folder with its files.
func (d *Drive) Folder(ctx context.Context, who *auth.Principal, id string) (*FolderView, error) {
	f, err := d.ownedFolder(ctx, who, id)
	if err != nil {
		return nil, err
	}
	files, err := d.res.Files(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return &FolderView{Folder: *f, Files: files}, nil
}

func (d *Drive) RenameFolder(ctx context.Context, who *auth.Principal, id, name string) error {
	if _, err := d.ownedFolder(ctx, who, id); err != nil {
		return err
	}
	name, err := folderName(name)
	if err != nil {
		return err
	}
	return d.res.RenameFolder(ctx, id, name)
}

// DeleteFolder hides the folder and its files at once, then removes the
// bytes and rows. Whatever fails after the folder is hidden is finished
// later by Reap.
func (d *Drive) DeleteFolder(ctx context.Context, who *auth.Principal, id string) error {
	if _, err := d.ownedFolder(ctx, who, id); err != nil {
		return err
	}
	files, err := d.res.MarkFolderDeleted(ctx, id)
	if err != nil {
		return err
	}
	clean := true
	for _, f := range files {
		if !d.purgeFile(ctx, f) {
			clean = false
		}
	}
	if clean {
		if err := d.res.PurgeFolder(ctx, id); err != nil {
			log := logutil.GetOrDefault(ctx)
			log.Warn().Err(err).Str("folder_id", id).Msg("Folder row left for the reaper")
		}
	}
	return nil
}

// Upload stores the file part of r in folderID. Bytes are durable before
// the descriptor is written, and discarded if the descriptor cannot be
// written.
func (d *Drive) Upload(ctx context.Context, who *auth.Principal, folderID string, r *http.Request) (*store.File, error) {
	folder, err := d.ownedFolder(ctx, who, folderID)
	if err != nil {
		return nil, err
	}
	desc, err := d.blobs.Receive(ctx, r)
	if err != nil {
		return nil, err
	}
	f, err := d.res.CreateFile(ctx, store.File{
		FolderID:    folder.ID,
		OwnerID:     who.ID,
		Name:        desc.OriginalName,
		MimeType:    desc.MimeType,
		SizeBytes:   desc.Size,
		StoragePath: desc.StoragePath,
	})
	if err != nil {
		// the request may be gone already, cleanup must still happen
		d.blobs.Discard(context.WithoutCancel(ctx), desc.StoragePath)
		return nil, fmt.Errorf("unable to record upload, cause %w", err)
	}
	return f, nil
}

// OpenFile returns the descriptor and the bytes of a file, the caller must
// close the returned afero.File.
func (d *Drive) OpenFile(ctx context.Context, who *auth.Principal, folderID, fileID string) (*store.File, afero.File, error) {
	f, err := d.ownedFile(ctx, who, folderID, fileID)
	if err != nil {
		return nil, nil, err
	}
	content, err := d.blobs.Open(f.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return f, content, nil
}

func (d *Drive) DeleteFile(ctx context.Context, who *auth.Principal, folderID, fileID string) error {
	f, err := d.ownedFile(ctx, who, folderID, fileID)
	if err != nil {
		return err
	}
	if err := d.res.MarkFileDeleted(ctx, f.ID); err != nil {
		return err
	}
	d.purgeFile(ctx, *f)
	return nil
}

// Sweep finishes deletions interrupted between marking and purging. It
// satisfies session.Sweepable so it runs on the same schedule as the
// session sweeper.
func (d *Drive) Sweep(ctx context.Context, _ time.Time) (int, error) {
	files, err := d.res.DeletedFiles(ctx, d.batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if d.purgeFile(ctx, f) {
			n++
		}
	}
	folders, err := d.res.DeletedFolders(ctx, d.batch)
	if err != nil {
		return n, err
	}
	for _, id := range folders {
		if err := d.res.PurgeFolder(ctx, id); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (d *Drive) purgeFile(ctx context.Context, f store.File) bool {
	log := logutil.GetOrDefault(ctx)
	if err := d.blobs.Remove(f.StoragePath); err != nil {
		log.Warn().Err(err).Str("file_id", f.ID).Msg("Stored bytes left for the reaper")
		return false
	}
	if err := d.res.PurgeFile(ctx, f.ID); err != nil {
		log.Warn().Err(err).Str("file_id", f.ID).Msg("File row left for the reaper")
		return false
	}
	return true
}

func (d *Drive) ownedFolder(ctx context.Context, who *auth.Principal, id string) (*store.Folder, error) {
	if err := auth.RequirePrincipal(who); err != nil {
		return nil, err
	}
	f, err := d.res.Folder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnership(who, f.OwnerID); err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Drive) ownedFile(ctx context.Context, who *auth.Principal, folderID, fileID string) (*store.File, error) {
	if _, err := d.ownedFolder(ctx, who, folderID); err != nil {
		return nil, err
	}
	f, err := d.res.File(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnership(who, f.OwnerID); err != nil {
		return nil, err
	}
	if f.FolderID != folderID {
		return nil, store.NotFound{Kind: "file", ID: fileID}
	}
	return f, nil
}

func folderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", auth.ValidationError{Field: "name", Message: "Folder name is required."}
	case utf8.RuneCountInString(name) > maxFolderName:
		return "", auth.ValidationError{Field: "name", Message: "Folder name is too long."}
	}
	return name, nil
}
