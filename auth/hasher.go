package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type (
	// PasswordHasher turns passwords into self describing hashes.
	PasswordHasher interface {
		Hash(plaintext string) (string, error)
		Verify(plaintext, hashed string) bool
	}

	// Argon2Hasher hashes with argon2id. The parameters only apply to new
	// hashes, Verify always reads them back from the stored string.
	Argon2Hasher struct {
		Time    uint32
		Memory  uint32 // KiB
		Threads uint8
		KeyLen  uint32
		SaltLen int

		// Rand defaults to crypto/rand.Reader.
		Rand io.Reader
	}
)

const (
	// upper bound accepted from a stored hash, protects Verify from a
	// corrupted row asking for gigabytes of memory
	maxArgon2Memory = 1 << 21
)

// DefaultHasher uses the RFC 9106 second recommended option scaled down
// to 64 MiB.
func DefaultHasher() *Argon2Hasher {
	return &Argon2Hasher{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 2,
		KeyLen:  32,
		SaltLen: 16,
	}
}

func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.SaltLen)
	rnd := h.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return "", HashingError{cause: err}
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.Time, h.Memory, h.Threads, h.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Verify(plaintext, hashed string) bool {
	switch {
	case strings.HasPrefix(hashed, "$argon2id$"):
		return verifyArgon2id(plaintext, hashed)
	case strings.HasPrefix(hashed, "$2a$"), strings.HasPrefix(hashed, "$2b$"), strings.HasPrefix(hashed, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
	}
	return false
}

func verifyArgon2id(plaintext, hashed string) bool {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(hashed, "$")
	if len(parts) != 6 {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || memory > maxArgon2Memory || time == 0 || threads == 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return false
	}
	candidate := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1
}
