// Package web wires the HTTP routes of the application.
package web

import (
	"context"
	"net/http"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/auth/api"
	"github.com/goldyy12/files/drive"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/goldyy12/files/web/views"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

type (
	// Pinger reports whether a dependency is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Deps struct {
		Auth   *auth.Service
		Gate   *api.Gate
		Drive  *drive.Drive
		Health Pinger
		// MaxUpload is only used to tell users the limit.
		MaxUpload int64
	}

	App struct {
		auth      *auth.Service
		gate      *api.Gate
		drive     *drive.Drive
		health    Pinger
		maxUpload int64
	}
)

const (
	maxFormSize = 64 << 10
)

func New(d Deps) *App {
	a := &App{
		auth:      d.Auth,
		gate:      d.Gate,
		drive:     d.Drive,
		health:    d.Health,
		maxUpload: d.MaxUpload,
	}
	a.gate.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		a.fail(w, r, api.Request{}, err)
	}
	return a
}

// Handler returns the complete application: request logging, panic
// recovery and every route.
func (a *App) Handler(logger zerolog.Logger) http.Handler {
	router := httprouter.New()
	authed := func(h api.Handler) httprouter.Handle {
		return a.gate.Handle(h, api.RequireAuthenticated)
	}
	anon := func(h api.Handler) httprouter.Handle {
		return a.gate.Handle(h, api.RequireAnonymous)
	}

	router.GET("/healthz", a.healthz)
	router.GET("/", a.gate.Handle(a.index))

	router.GET("/sign-up", anon(a.signUpForm))
	router.POST("/sign-up", anon(a.signUp))
	router.GET("/login", anon(a.loginForm))
	router.POST("/login", anon(a.login))
	router.GET("/logout", authed(a.logout))
	router.POST("/logout", authed(a.logout))

	router.GET("/folders", authed(a.newFolderForm))
	router.POST("/folders", authed(a.createFolder))
	router.GET("/folders/:id", authed(a.folder))
	router.GET("/folders/:id/createfile", authed(a.uploadForm))
	router.GET("/folders/:id/edit", authed(a.editFolderForm))
	router.POST("/folders/:id/edit", authed(a.editFolder))
	router.POST("/folders/:id/delete", authed(a.deleteFolder))
	router.POST("/folders/:id/upload", authed(a.upload))
	router.POST("/folders/:id/files/:fileId/delete", authed(a.deleteFile))
	router.GET("/folders/:id/files/:fileId/download", authed(a.download))
	router.POST("/folders/:id/files/:fileId/download", authed(a.download))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, http.StatusNotFound, views.Error(nil, http.StatusNotFound, "There is nothing here."))
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		log := logutil.FromRequest(r)
		log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("Recovered from panic")
		views.Render(w, http.StatusInternalServerError, views.Error(nil, http.StatusInternalServerError, genericFailure))
	}
	return logutil.Middleware(logger, router)
}
