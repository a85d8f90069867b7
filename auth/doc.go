// Package auth verifies credentials and ties an authenticated principal to a
// server side session.
//
// Passwords are never stored, only an argon2id hash in PHC format which
// embeds its own salt and cost parameters. Hashes produced by older
// deployments (bcrypt, $2a$/$2b$) are still accepted on login.
//
// A session only remembers the principal id. Every request re-reads the
// principal from the credential store, so deleting a user immediately
// invalidates all of their sessions.
//
// Login failures never tell the caller whether the email or the password
// was wrong; the reason is kept on AuthFailure for logging only.
package auth
