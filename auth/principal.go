package auth

import (
	"context"
	"strings"
	"time"
)

type (
	// Principal is the authenticated identity attached to a request.
	Principal struct {
		ID           string
		Email        string
		FirstName    string
		LastName     string
		PasswordHash string
		CreatedAt    time.Time
	}

	// UserRecord carries the fields needed to persist a new principal.
	UserRecord struct {
		Email        string
		FirstName    string
		LastName     string
		PasswordHash string
	}

	// CredentialStore persists principals. Lookups return (nil, nil) when
	// no principal matches; errors are reserved for store failures.
	CredentialStore interface {
		FindUserByEmail(ctx context.Context, email string) (*Principal, error)
		FindUserByID(ctx context.Context, id string) (*Principal, error)
		// CreateUser must return ErrEmailTaken when the email is in use.
		CreateUser(ctx context.Context, u UserRecord) (*Principal, error)
	}
)

func (p *Principal) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}
