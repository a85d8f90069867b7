package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

type (
	NotFound struct {
		Kind string
		ID   string
	}

	// Conflict means a unique column already holds the value.
	Conflict struct {
		Kind  string
		Field string
	}
)

func (n NotFound) Error() string {
	return fmt.Sprintf("%v %v not found", n.Kind, n.ID)
}

// IsNotFound reports whether err, or anything it wraps, is a NotFound.
func IsNotFound(err error) bool {
	var nf NotFound
	return errors.As(err, &nf)
}

func (c Conflict) Error() string {
	return fmt.Sprintf("%v with the same %v already exists", c.Kind, c.Field)
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
