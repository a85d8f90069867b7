package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/internal/testutil"
	"github.com/goldyy12/files/store"
	"github.com/goldyy12/files/upload"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type (
	recordingBlobs struct {
		*upload.Pipeline
		received     []*upload.Descriptor
		failRemove   bool
		afterReceive func()
	}

	failingResources struct {
		*store.Store
	}
)

func (r *recordingBlobs) Receive(ctx context.Context, req *http.Request) (*upload.Descriptor, error) {
	d, err := r.Pipeline.Receive(ctx, req)
	if d != nil {
		r.received = append(r.received, d)
	}
	if r.afterReceive != nil {
		r.afterReceive()
	}
	return d, err
}

func (r *recordingBlobs) Remove(storagePath string) error {
	if r.failRemove {
		return errors.New("disk on fire")
	}
	return r.Pipeline.Remove(storagePath)
}

func (failingResources) CreateFile(context.Context, store.File) (*store.File, error) {
	return nil, errors.New("database is locked")
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(upload.FieldName, filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(part, content)
	w.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type fixture struct {
	st    *store.Store
	mem   afero.Fs
	blobs *recordingBlobs
	drive *Drive
	ana   *auth.Principal
	bob   *auth.Principal
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t)
	t.Cleanup(cleanup)
	mem := testutil.MemFs()
	pipe, err := upload.NewPipeline(mem, 1<<20)
	require.NoError(t, err)
	blobs := &recordingBlobs{Pipeline: pipe}
	return &fixture{
		st:    st,
		mem:   mem,
		blobs: blobs,
		drive: New(st, blobs),
		ana:   testutil.AcquireUser(ctx, t, st, "ana@example.com", "secret1"),
		bob:   testutil.AcquireUser(ctx, t, st, "bob@example.com", "secret2"),
	}
}

func (f *fixture) exists(t *testing.T, storagePath string) bool {
	ok, err := afero.Exists(f.mem, storagePath)
	require.NoError(t, err)
	return ok
}

func isDenied(err error) bool {
	var aerr auth.AuthorizationError
	return errors.As(err, &aerr)
}

func TestFolderOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.drive.CreateFolder(ctx, f.ana, "   ")
	var verr auth.ValidationError
	require.True(t, errors.As(err, &verr))

	folder, err := f.drive.CreateFolder(ctx, f.ana, "  photos ")
	require.NoError(t, err)
	require.Equal(t, "photos", folder.Name)

	list, err := f.drive.ListFolders(ctx, f.ana)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = f.drive.ListFolders(ctx, f.bob)
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, f.drive.RenameFolder(ctx, f.ana, folder.ID, "holidays"))
	view, err := f.drive.Folder(ctx, f.ana, folder.ID)
	require.NoError(t, err)
	require.Equal(t, "holidays", view.Name)
	require.Empty(t, view.Files)
}

func TestOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.drive.CreateFolder(ctx, f.ana, "private")
	require.NoError(t, err)
	file, err := f.drive.Upload(ctx, f.ana, folder.ID, uploadRequest(t, "diary.txt", "dear diary"))
	require.NoError(t, err)

	for _, who := range []*auth.Principal{f.bob, nil} {
		_, err = f.drive.Folder(ctx, who, folder.ID)
		require.True(t, isDenied(err), "read folder: %v", err)
		require.True(t, isDenied(f.drive.RenameFolder(ctx, who, folder.ID, "mine now")))
		_, _, err = f.drive.OpenFile(ctx, who, folder.ID, file.ID)
		require.True(t, isDenied(err), "download: %v", err)
		require.True(t, isDenied(f.drive.DeleteFile(ctx, who, folder.ID, file.ID)))
		require.True(t, isDenied(f.drive.DeleteFolder(ctx, who, folder.ID)))
		_, err = f.drive.Upload(ctx, who, folder.ID, uploadRequest(t, "x.txt", "x"))
		require.True(t, isDenied(err), "upload: %v", err)
	}
	require.Len(t, f.blobs.received, 1, "denied uploads must not write bytes")

	// nothing changed for the owner
	view, err := f.drive.Folder(ctx, f.ana, folder.ID)
	require.NoError(t, err)
	require.Equal(t, "private", view.Name)
	require.Len(t, view.Files, 1)
	require.True(t, f.exists(t, file.StoragePath))
}

func TestFileMustBelongToFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.drive.CreateFolder(ctx, f.ana, "a")
	require.NoError(t, err)
	b, err := f.drive.CreateFolder(ctx, f.ana, "b")
	require.NoError(t, err)
	file, err := f.drive.Upload(ctx, f.ana, a.ID, uploadRequest(t, "x.txt", "x"))
	require.NoError(t, err)

	_, _, err = f.drive.OpenFile(ctx, f.ana, b.ID, file.ID)
	require.True(t, store.IsNotFound(err), "got %v", err)
}

func TestUploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.drive.CreateFolder(ctx, f.ana, "docs")
	require.NoError(t, err)

	file, err := f.drive.Upload(ctx, f.ana, folder.ID, uploadRequest(t, "notes.txt", "some notes"))
	require.NoError(t, err)
	require.Equal(t, "notes.txt", file.Name)
	require.Equal(t, int64(len("some notes")), file.SizeBytes)
	require.Equal(t, f.ana.ID, file.OwnerID)

	got, content, err := f.drive.OpenFile(ctx, f.ana, folder.ID, file.ID)
	require.NoError(t, err)
	buf, err := io.ReadAll(content)
	content.Close()
	require.NoError(t, err)
	require.Equal(t, "some notes", string(buf))
	require.Equal(t, file.ID, got.ID)

	require.NoError(t, f.drive.DeleteFile(ctx, f.ana, folder.ID, file.ID))
	require.False(t, f.exists(t, file.StoragePath))
	_, _, err = f.drive.OpenFile(ctx, f.ana, folder.ID, file.ID)
	require.True(t, store.IsNotFound(err))
	pending, err := f.st.DeletedFiles(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestUploadDiscardsBytesWhenRecordFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.drive.CreateFolder(ctx, f.ana, "docs")
	require.NoError(t, err)

	d := New(failingResources{Store: f.st}, f.blobs)
	_, err = d.Upload(ctx, f.ana, folder.ID, uploadRequest(t, "notes.txt", "some notes"))
	require.Error(t, err)
	require.Len(t, f.blobs.received, 1)
	require.False(t, f.exists(t, f.blobs.received[0].StoragePath), "bytes without a descriptor must be discarded")
}

func TestUploadIntoFolderDeletedMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.drive.CreateFolder(ctx, f.ana, "docs")
	require.NoError(t, err)

	// the folder goes away while the bytes are streaming
	f.blobs.afterReceive = func() {
		f.blobs.afterReceive = nil
		require.NoError(t, f.drive.DeleteFolder(ctx, f.ana, folder.ID))
	}
	_, err = f.drive.Upload(ctx, f.ana, folder.ID, uploadRequest(t, "late.txt", "late bytes"))
	require.True(t, store.IsNotFound(err), "got %v", err)
	require.Len(t, f.blobs.received, 1)
	require.False(t, f.exists(t, f.blobs.received[0].StoragePath))

	folders, err := f.st.DeletedFolders(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, folders, "nothing may keep the folder from being purged")
}

func TestUploadTooLargeLeavesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pipe, err := upload.NewPipeline(f.mem, 4)
	require.NoError(t, err)
	f.blobs.Pipeline = pipe
	folder, err := f.drive.CreateFolder(ctx, f.ana, "docs")
	require.NoError(t, err)

	_, err = f.drive.Upload(ctx, f.ana, folder.ID, uploadRequest(t, "big.txt", "way more than four bytes"))
	require.ErrorAs(t, err, &upload.TooLarge{})
	view, err := f.drive.Folder(ctx, f.ana, folder.ID)
	require.NoError(t, err)
	require.Empty(t, view.Files)
}

func TestDeleteFolderAndReap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.drive.CreateFolder(ctx, f.ana, "docs")
	require.NoError(t, err)
	var paths []string
	for _, name := range []string{"a.txt", "b.txt"} {
		file, err := f.drive.Upload(ctx, f.ana, folder.ID, uploadRequest(t, name, name))
		require.NoError(t, err)
		paths = append(paths, file.StoragePath)
	}

	// bytes cannot be removed, the folder disappears anyway and the rows
	// stay marked
	f.blobs.failRemove = true
	require.NoError(t, f.drive.DeleteFolder(ctx, f.ana, folder.ID))
	_, err = f.drive.Folder(ctx, f.ana, folder.ID)
	require.True(t, store.IsNotFound(err))
	pending, err := f.st.DeletedFiles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	f.blobs.failRemove = false
	n, err := f.drive.Sweep(ctx, folder.CreatedAt)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	for _, p := range paths {
		require.False(t, f.exists(t, p))
	}
	pending, err = f.st.DeletedFiles(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
	folders, err := f.st.DeletedFolders(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, folders)
}
