// Package session keeps server side session records keyed by an opaque
// random id. The id is the only thing the browser ever holds; the record
// itself only knows which principal it belongs to and when it expires.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

type (
	// Payload is what a session id resolves to.
	Payload struct {
		PrincipalID string    `json:"pid"`
		CreatedAt   time.Time `json:"created_at"`
		ExpiresAt   time.Time `json:"expires_at"`
	}

	// Store maps session ids to payloads.
	//
	// Load must report ErrNotFound for ids that never existed and for
	// records past their expiry. Destroy is idempotent.
	Store interface {
		Create(ctx context.Context, p Payload) (string, error)
		Load(ctx context.Context, id string) (Payload, error)
		Touch(ctx context.Context, id string, expiresAt time.Time) error
		Destroy(ctx context.Context, id string) error
		Sweep(ctx context.Context, now time.Time) (int, error)
	}
)

const (
	idBytes = 32
)

var (
	ErrNotFound = errors.New("session not found")
)

// NewID returns a fresh url safe id with 256 bits of entropy.
func NewID() (string, error) {
	var buf [idBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("unable to generate session id, cause %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

// Expired reports whether the payload is no longer valid at now.
func (p Payload) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
