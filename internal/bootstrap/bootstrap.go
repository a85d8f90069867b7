// Package bootstrap assembles the application from a configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/auth/api"
	"github.com/goldyy12/files/drive"
	"github.com/goldyy12/files/internal/config"
	"github.com/goldyy12/files/session"
	"github.com/goldyy12/files/store"
	"github.com/goldyy12/files/upload"
	"github.com/goldyy12/files/web"
	"github.com/rs/zerolog"
)

type (
	Components struct {
		Config   config.Config
		Store    *store.Store
		Sessions session.Store
		Auth     *auth.Service
		Gate     *api.Gate
		Blobs    *upload.Pipeline
		Drive    *drive.Drive
		Sweeper  *session.Sweeper
	}
)

// Build opens the store, applies migrations and wires every service. The
// caller must Close the result.
func Build(ctx context.Context, cfg config.Config) (*Components, error) {
	st, err := store.OpenAndMigrate(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	c := &Components{Config: cfg, Store: st}
	if err := c.wire(); err != nil {
		st.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) wire() error {
	cfg := c.Config
	switch cfg.SessionBackend {
	case config.BackendMemory:
		mem, err := session.InMemoryStore(cfg.SessionIdle)
		if err != nil {
			return err
		}
		c.Sessions = mem
	default:
		c.Sessions = c.Store.Sessions()
	}
	c.Auth = auth.NewService(c.Store, c.Sessions, auth.DefaultHasher(), cfg.SessionIdle)
	cookies, err := api.NewCookieCodec(api.DefaultCookieName, []byte(cfg.SessionSecret), cfg.SecureCookie)
	if err != nil {
		return fmt.Errorf("unable to configure session cookie, cause %w", err)
	}
	c.Gate = api.NewGate(c.Auth, cookies)
	c.Blobs, err = upload.OnDisk(cfg.StorageRoot, cfg.MaxUploadSize)
	if err != nil {
		return err
	}
	c.Drive = drive.New(c.Store, c.Blobs)
	c.Sweeper = session.NewSweeper(cfg.SweepInterval).
		Add("sessions", c.Sessions).
		Add("deletions", c.Drive)
	return nil
}

// Handler is the complete web application.
func (c *Components) Handler(logger zerolog.Logger) http.Handler {
	return web.New(web.Deps{
		Auth:      c.Auth,
		Gate:      c.Gate,
		Drive:     c.Drive,
		Health:    c.Store,
		MaxUpload: c.Blobs.MaxSize(),
	}).Handler(logger)
}

func (c *Components) Close() error {
	return c.Store.Close()
}
