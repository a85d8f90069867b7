// Package upload receives multipart file streams and stores them under
// generated, collision free names.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/spf13/afero"
)

type (
	// Descriptor is what Receive learned about a stored file.
	Descriptor struct {
		OriginalName string
		MimeType     string
		Size         int64
		StorageName  string
		StoragePath  string
	}

	// Pipeline streams uploads into fs, never holding a whole file in
	// memory.
	Pipeline struct {
		fs  afero.Fs
		max int64
		now func() time.Time
	}

	ctxReader struct {
		ctx context.Context
		r   io.Reader
	}
)

const (
	FieldName = "file"

	tmpDir         = "tmp"
	sniffLen       = 3072
	multipartSlack = 64 << 10
)

// NewPipeline stores files in fs, rejecting any file larger than maxSize.
func NewPipeline(fs afero.Fs, maxSize int64) (*Pipeline, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("upload size limit must be positive, got %v", maxSize)
	}
	return &Pipeline{fs: fs, max: maxSize, now: time.Now}, nil
}

// OnDisk is a pipeline rooted at the directory root of the local
// filesystem.
func OnDisk(root string, maxSize int64) (*Pipeline, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("unable to create storage root %v, cause %w", root, err)
	}
	return NewPipeline(afero.NewBasePathFs(afero.NewOsFs(), root), maxSize)
}

func (p *Pipeline) MaxSize() int64 {
	return p.max
}

// Receive reads the multipart body of r and stores the part named
// FieldName. On any error nothing is left behind in storage.
func (p *Pipeline) Receive(ctx context.Context, r *http.Request) (*Descriptor, error) {
	if r.ContentLength > p.max+multipartSlack {
		return nil, TooLarge{Limit: p.max}
	}
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return nil, MissingFile{Field: FieldName}
	}
	body := http.MaxBytesReader(nil, r.Body, p.max+multipartSlack)
	defer body.Close()
	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, MissingFile{Field: FieldName}
		} else if err != nil {
			return nil, p.classify("read upload", err)
		}
		if part.FormName() != FieldName {
			_, err := io.Copy(io.Discard, ctxReader{ctx: ctx, r: part})
			part.Close()
			if err != nil {
				return nil, p.classify("read upload", err)
			}
			continue
		}
		if part.FileName() == "" {
			part.Close()
			return nil, MissingFile{Field: FieldName}
		}
		d, err := p.store(ctx, part)
		part.Close()
		return d, err
	}
}

func (p *Pipeline) store(ctx context.Context, part *multipart.Part) (*Descriptor, error) {
	name, err := StorageName(SafeName(part.FileName()), p.now())
	if err != nil {
		return nil, err
	}
	final := StoragePath(name)
	tmp := path.Join(tmpDir, name+".part")
	if err := p.fs.MkdirAll(tmpDir, 0o750); err != nil {
		return nil, StorageError{Op: "create temporary directory", cause: err}
	}
	if err := p.fs.MkdirAll(path.Dir(final), 0o750); err != nil {
		return nil, StorageError{Op: "create shard directory", cause: err}
	}
	if exists, _ := afero.Exists(p.fs, final); exists {
		return nil, StorageError{Op: "allocate storage name", cause: os.ErrExist}
	}
	f, err := p.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, StorageError{Op: "create temporary file", cause: err}
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			p.fs.Remove(tmp)
		}
	}()

	src := ctxReader{ctx: ctx, r: part}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, p.classify("read upload", err)
	}
	head = head[:n]
	// one byte past the limit is enough to know the file is too large
	size, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), src), p.max+1))
	if err != nil {
		return nil, p.classify("write upload", err)
	}
	if size > p.max {
		return nil, TooLarge{Limit: p.max}
	}
	if err := f.Sync(); err != nil {
		return nil, StorageError{Op: "flush upload", cause: err}
	}
	if err := f.Close(); err != nil {
		return nil, StorageError{Op: "close upload", cause: err}
	}
	committed = true
	if err := p.fs.Rename(tmp, final); err != nil {
		p.fs.Remove(tmp)
		return nil, StorageError{Op: "commit upload", cause: err}
	}
	return &Descriptor{
		OriginalName: DisplayName(part.FileName()),
		MimeType:     detectType(head, part.Header.Get("Content-Type")),
		Size:         size,
		StorageName:  name,
		StoragePath:  final,
	}, nil
}

// Open returns the stored bytes at storagePath.
func (p *Pipeline) Open(storagePath string) (afero.File, error) {
	if err := checkPath(storagePath); err != nil {
		return nil, err
	}
	f, err := p.fs.Open(storagePath)
	if err != nil {
		return nil, StorageError{Op: "open stored file", cause: err}
	}
	return f, nil
}

// Remove deletes the bytes at storagePath, a missing file is not an error.
func (p *Pipeline) Remove(storagePath string) error {
	if err := checkPath(storagePath); err != nil {
		return err
	}
	err := p.fs.Remove(storagePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return StorageError{Op: "remove stored file", cause: err}
	}
	return nil
}

// Discard is Remove for cleanup paths, failures are only logged.
func (p *Pipeline) Discard(ctx context.Context, storagePath string) {
	if err := p.Remove(storagePath); err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Error().Err(err).Str("storage_path", storagePath).Msg("Unable to discard stored bytes")
	}
}

func (p *Pipeline) classify(op string, err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return TooLarge{Limit: p.max}
	}
	return StorageError{Op: op, cause: err}
}

func (c ctxReader) Read(buf []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(buf)
}

// detectType trusts the content over the client, unless the content
// says nothing useful.
func detectType(head []byte, declared string) string {
	detected := mimetype.Detect(head)
	if !detected.Is("application/octet-stream") || declared == "" {
		return detected.String()
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		return mt
	}
	return detected.String()
}
