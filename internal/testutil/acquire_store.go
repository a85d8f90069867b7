package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/store"
	"github.com/spf13/afero"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore returns a migrated store backed by a database in a fresh
// temporary directory.
func AcquireStore(ctx context.Context, t TestLog) (*store.Store, func()) {
	dir, err := os.MkdirTemp("", "files-tests")
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.OpenAndMigrate(ctx, filepath.Join(dir, "files.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return st, func() {
		err := st.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// AcquireUser registers a principal directly in st.
func AcquireUser(ctx context.Context, t TestLog, st *store.Store, email, password string) *auth.Principal {
	hashed, err := FastHasher().Hash(password)
	if err != nil {
		t.Fatal(err)
	}
	p, err := st.CreateUser(ctx, auth.UserRecord{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hashed,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// MemFs is an empty in-memory storage root.
func MemFs() afero.Fs {
	return afero.NewMemMapFs()
}

// FastHasher is an argon2id hasher with the cheapest parameters, only
// meant for tests.
func FastHasher() *auth.Argon2Hasher {
	return &auth.Argon2Hasher{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}
