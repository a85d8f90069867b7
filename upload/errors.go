package upload

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

type (
	// TooLarge is returned when the file part exceeds the configured
	// ceiling. Nothing is kept on disk.
	TooLarge struct {
		Limit int64
	}

	// StorageError wraps filesystem or transport failures while
	// receiving or serving bytes.
	StorageError struct {
		Op    string
		cause error
	}

	// MissingFile means the request carried no usable file part.
	MissingFile struct {
		Field string
	}

	// InvalidPath rejects storage paths that could escape the storage root.
	InvalidPath struct {
		Path string
	}
)

func (t TooLarge) Error() string {
	return fmt.Sprintf("file exceeds the %v limit", humanize.IBytes(uint64(t.Limit)))
}

func (s StorageError) Error() string {
	return fmt.Sprintf("unable to %v, cause %v", s.Op, s.cause)
}

func (s StorageError) Unwrap() error {
	return s.cause
}

func (m MissingFile) Error() string {
	return fmt.Sprintf("no file sent in field %q", m.Field)
}

func (i InvalidPath) Error() string {
	return fmt.Sprintf("invalid storage path %q", i.Path)
}
