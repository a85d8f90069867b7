package auth

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"golang.org/x/crypto/bcrypt"
)

// cheap parameters, the production ones take ~100ms per hash
func testHasher() *Argon2Hasher {
	return &Argon2Hasher{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}

func TestHashRoundTrip(t *testing.T) {
	h := testHasher()
	for _, p := range []string{"secret1", "", "pässwörd", strings.Repeat("x", 512), "with $ and spaces"} {
		hashed, err := h.Hash(p)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(hashed, "$argon2id$v=19$m=1024,t=1,p=1$") {
			t.Fatalf("unexpected hash format %v", hashed)
		}
		if !h.Verify(p, hashed) {
			t.Errorf("Verify(%q, Hash(%q)) should be true", p, p)
		}
		if h.Verify(p+"x", hashed) {
			t.Errorf("Verify should reject a different password for %q", p)
		}
	}
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher()
	a, err := h.Hash("secret1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Hash("secret1")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyUsesStoredParameters(t *testing.T) {
	old := testHasher()
	hashed, err := old.Hash("secret1")
	if err != nil {
		t.Fatal(err)
	}
	// raising the cost must not invalidate existing hashes
	current := &Argon2Hasher{Time: 2, Memory: 2048, Threads: 2, KeyLen: 32, SaltLen: 16}
	if !current.Verify("secret1", hashed) {
		t.Fatal("hash created with older parameters should still verify")
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := testHasher()
	if !h.Verify("secret1", string(legacy)) {
		t.Fatal("bcrypt hashes should verify")
	}
	if h.Verify("secret2", string(legacy)) {
		t.Fatal("bcrypt hash should reject wrong password")
	}
}

func TestVerifyMalformed(t *testing.T) {
	h := testHasher()
	for _, hashed := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=19$m=1024,t=1,p=1$$",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5",
		"$argon2id$v=19$m=999999999,t=1,p=1$c2FsdHNhbHQ$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$2a$garbage",
	} {
		if h.Verify("secret1", hashed) {
			t.Errorf("malformed hash %q must not verify", hashed)
		}
	}
}

func TestHashEntropyFailure(t *testing.T) {
	h := testHasher()
	h.Rand = iotest.ErrReader(errors.New("no entropy"))
	_, err := h.Hash("secret1")
	var herr HashingError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HashingError, got %v", err)
	}
}
