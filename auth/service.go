package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goldyy12/files/session"
)

type (
	// Service is the authentication engine. Build one per process with
	// NewService and share it between requests.
	Service struct {
		users    CredentialStore
		sessions session.Store
		hasher   PasswordHasher
		idle     time.Duration
		now      func() time.Time

		dummyOnce sync.Once
		dummyHash string
	}

	// SignUp is the raw sign-up form.
	SignUp struct {
		FirstName       string
		LastName        string
		Email           string
		Password        string
		ConfirmPassword string
	}
)

const (
	// sessions closer than this to a full idle window are not rewritten,
	// keeps a burst of requests from turning into a burst of writes
	touchSlack = time.Minute
)

func NewService(users CredentialStore, sessions session.Store, hasher PasswordHasher, idle time.Duration) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		idle:     idle,
		now:      time.Now,
	}
}

// Register validates the form and stores a new principal.
func (s *Service) Register(ctx context.Context, form SignUp) (*Principal, error) {
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	form.Email = strings.TrimSpace(form.Email)
	if form.FirstName == "" || form.LastName == "" || form.Email == "" || form.Password == "" || form.ConfirmPassword == "" {
		return nil, ValidationError{Message: "All fields are required."}
	}
	if form.Password != form.ConfirmPassword {
		return nil, ValidationError{Field: "confirmPassword", Message: "Passwords do not match."}
	}
	if !strings.Contains(form.Email, "@") {
		return nil, ValidationError{Field: "email", Message: "Email address is not valid."}
	}
	hashed, err := s.hasher.Hash(form.Password)
	if err != nil {
		return nil, err
	}
	p, err := s.users.CreateUser(ctx, UserRecord{
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: hashed,
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil, ValidationError{Field: "email", Message: "An account with that email already exists."}
	} else if err != nil {
		return nil, fmt.Errorf("unable to create user, cause %w", err)
	}
	return p, nil
}

// Authenticate returns the principal owning email if password matches.
// Any credential problem is an AuthFailure.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, AuthFailure{Reason: MissingCredentials}
	}
	p, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("unable to lookup user, cause %w", err)
	}
	if p == nil {
		// spend the same effort as a real check so response time does
		// not reveal which emails are registered
		s.hasher.Verify(password, s.dummy())
		return nil, AuthFailure{Reason: NoSuchUser}
	}
	if !s.hasher.Verify(password, p.PasswordHash) {
		return nil, AuthFailure{Reason: BadPassword}
	}
	return p, nil
}

// EstablishSession creates a session for p and returns its id.
func (s *Service) EstablishSession(ctx context.Context, p *Principal) (string, error) {
	if p == nil || p.ID == "" {
		return "", errUnauthenticated
	}
	now := s.now()
	id, err := s.sessions.Create(ctx, session.Payload{
		PrincipalID: p.ID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.idle),
	})
	if err != nil {
		return "", fmt.Errorf("unable to create session, cause %w", err)
	}
	return id, nil
}

// ResolvePrincipal maps a session id to the live principal. A nil
// principal with a nil error means anonymous.
func (s *Service) ResolvePrincipal(ctx context.Context, sessionID string) (*Principal, error) {
	if sessionID == "" {
		return nil, nil
	}
	payload, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to load session, cause %w", err)
	}
	p, err := s.users.FindUserByID(ctx, payload.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("unable to load principal, cause %w", err)
	}
	if p == nil {
		if err := s.sessions.Destroy(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("unable to drop orphan session, cause %w", err)
		}
		return nil, nil
	}
	expiresAt := s.now().Add(s.idle)
	if expiresAt.Sub(payload.ExpiresAt) > touchSlack {
		err = s.sessions.Touch(ctx, sessionID, expiresAt)
		if errors.Is(err, session.ErrNotFound) {
			// logged out by a concurrent request
			return nil, nil
		} else if err != nil {
			return nil, fmt.Errorf("unable to refresh session, cause %w", err)
		}
	}
	return p, nil
}

// EndSession destroys the session, calling it twice is fine.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("unable to destroy session, cause %w", err)
	}
	return nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not a real password")
	})
	return s.dummyHash
}
