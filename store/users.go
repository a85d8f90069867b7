package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goldyy12/files/auth"
	"github.com/google/uuid"
)

const userColumns = `id, email, first_name, last_name, password_hash, created_at`

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where email = ?`, email)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*auth.Principal, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where id = ?`, id)
}

func (s *Store) CreateUser(ctx context.Context, u auth.UserRecord) (*auth.Principal, error) {
	p := &auth.Principal{
		ID:           uuid.NewString(),
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    fromMillis(toMillis(s.now())),
	}
	_, err := s.db.ExecContext(ctx, `insert into users(`+userColumns+`) values (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.FirstName, p.LastName, p.PasswordHash, toMillis(p.CreatedAt))
	if isUniqueViolation(err) {
		return nil, auth.ErrEmailTaken
	} else if err != nil {
		return nil, fmt.Errorf("unable to insert user, cause %w", err)
	}
	return p, nil
}

// DeleteUser removes the user with all folders and file descriptors. The
// bytes of those files are not touched.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = ?`, id)
	if err != nil {
		return fmt.Errorf("unable to delete user %v, cause %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFound{Kind: "user", ID: id}
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, query string, arg string) (*auth.Principal, error) {
	var p auth.Principal
	var created int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to query user, cause %w", err)
	}
	p.CreatedAt = fromMillis(created)
	return &p, nil
}
