package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goldyy12/files/session"
)

type (
	// Sessions is the durable session.Store, backed by the sessions table.
	Sessions struct {
		s *Store
	}
)

var _ session.Store = (*Sessions)(nil)

func (s *Store) Sessions() *Sessions {
	return &Sessions{s: s}
}

func (ss *Sessions) Create(ctx context.Context, p session.Payload) (string, error) {
	id, err := session.NewID()
	if err != nil {
		return "", err
	}
	_, err = ss.s.db.ExecContext(ctx, `insert into sessions(id, principal_id, created_at, expires_at) values (?, ?, ?, ?)`,
		id, p.PrincipalID, toMillis(p.CreatedAt), toMillis(p.ExpiresAt))
	if err != nil {
		return "", fmt.Errorf("unable to insert session, cause %w", err)
	}
	return id, nil
}

func (ss *Sessions) Load(ctx context.Context, id string) (session.Payload, error) {
	var p session.Payload
	var created, expires int64
	err := ss.s.db.QueryRowContext(ctx, `select principal_id, created_at, expires_at from sessions where id = ?`, id).
		Scan(&p.PrincipalID, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return p, session.ErrNotFound
	} else if err != nil {
		return p, fmt.Errorf("unable to load session, cause %w", err)
	}
	p.CreatedAt = fromMillis(created)
	p.ExpiresAt = fromMillis(expires)
	if p.Expired(ss.s.now()) {
		return session.Payload{}, session.ErrNotFound
	}
	return p, nil
}

func (ss *Sessions) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := ss.s.db.ExecContext(ctx, `update sessions set expires_at = ? where id = ? and expires_at > ?`,
		toMillis(expiresAt), id, toMillis(ss.s.now()))
	if err != nil {
		return fmt.Errorf("unable to refresh session, cause %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (ss *Sessions) Destroy(ctx context.Context, id string) error {
	if _, err := ss.s.db.ExecContext(ctx, `delete from sessions where id = ?`, id); err != nil {
		return fmt.Errorf("unable to destroy session, cause %w", err)
	}
	return nil
}

func (ss *Sessions) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := ss.s.db.ExecContext(ctx, `delete from sessions where expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("unable to sweep sessions, cause %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
