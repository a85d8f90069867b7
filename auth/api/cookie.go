package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type (
	// CookieCodec writes the session id to the browser inside an HS256
	// token so a forged or tampered cookie never reaches the session store.
	// The token has no expiry of its own, the server side record decides.
	CookieCodec struct {
		Name   string
		Secure bool
		secret []byte
		now    func() time.Time
	}
)

const (
	DefaultCookieName = "files_session"
	// matches the minimum enforced by the configuration
	minSecretLen      = 32
)

var (
	errShortSecret = errors.New("session secret is too short")
)

func NewCookieCodec(name string, secret []byte, secure bool) (*CookieCodec, error) {
	if len(secret) < minSecretLen {
		return nil, errShortSecret
	}
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieCodec{
		Name:   name,
		Secure: secure,
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}, nil
}

func (c *CookieCodec) Encode(sessionID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:       sessionID,
		IssuedAt: jwt.NewNumericDate(c.now()),
	})
	return token.SignedString(c.secret)
}

// Decode returns the session id carried by value, ok is false for anything
// that was not signed with our secret.
func (c *CookieCodec) Decode(value string) (sessionID string, ok bool) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.ID == "" {
		return "", false
	}
	return claims.ID, true
}

// Read extracts the session id from r. present reports whether the
// cookie was sent at all, even if it did not decode.
func (c *CookieCodec) Read(r *http.Request) (sessionID string, present bool) {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", true
	}
	sessionID, _ = c.Decode(value)
	return sessionID, true
}

func (c *CookieCodec) Set(w http.ResponseWriter, sessionID string) error {
	value, err := c.Encode(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
