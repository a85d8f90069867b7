package auth

import (
	"errors"
	"fmt"
)

type (
	FailureReason string

	// AuthFailure is returned when credentials cannot be verified. Reason
	// must not reach the client.
	AuthFailure struct {
		Reason FailureReason
	}

	// AuthorizationError denies access to a route or a resource.
	AuthorizationError struct {
		Reason string
	}

	// ValidationError reports a problem with user supplied input, Message
	// is safe to show back to the user.
	ValidationError struct {
		Field   string
		Message string
	}

	// HashingError means the hasher itself failed (entropy, resources),
	// never that a password was wrong.
	HashingError struct {
		cause error
	}
)

const (
	NoSuchUser         = FailureReason("no such user")
	BadPassword        = FailureReason("bad password")
	MissingCredentials = FailureReason("missing credentials")

	// GenericLoginFailure is the only message ever shown for AuthFailure.
	GenericLoginFailure = "Invalid email or password."
)

var (
	ErrEmailTaken = errors.New("email already registered")

	errUnauthenticated = AuthorizationError{Reason: "unauthenticated"}
	errNotOwner        = AuthorizationError{Reason: "not owner"}
)

func (a AuthFailure) Error() string {
	return fmt.Sprintf("authentication failed: %v", a.Reason)
}

func (a AuthorizationError) Error() string {
	return fmt.Sprintf("access denied: %v", a.Reason)
}

// Unauthenticated reports whether the denial happened because there was no
// principal at all.
func (a AuthorizationError) Unauthenticated() bool {
	return a == errUnauthenticated
}

func (v ValidationError) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%v: %v", v.Field, v.Message)
}

func (h HashingError) Error() string {
	return fmt.Sprintf("unable to hash password, cause %v", h.cause)
}

func (h HashingError) Unwrap() error {
	return h.cause
}
