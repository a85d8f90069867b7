package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/auth/api"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/goldyy12/files/store"
	"github.com/goldyy12/files/upload"
	"github.com/goldyy12/files/web/views"
)

const (
	genericFailure = "Something went wrong, please try again later."
	deniedMessage  = "You do not have access to this page."
	missingMessage = "We could not find what you were looking for."
)

// status maps err to the response status and a message safe to show.
// Anything not recognised is an internal failure.
func status(err error) (int, string) {
	var (
		verr    auth.ValidationError
		aerr    auth.AuthorizationError
		failure auth.AuthFailure
		tooBig  upload.TooLarge
		missing upload.MissingFile
		badPath upload.InvalidPath
	)
	switch {
	case errors.As(err, &aerr):
		return http.StatusForbidden, deniedMessage
	case errors.As(err, &failure):
		return http.StatusUnauthorized, auth.GenericLoginFailure
	case store.IsNotFound(err), errors.As(err, &badPath):
		return http.StatusNotFound, missingMessage
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("Files can be at most %v.", humanize.IBytes(uint64(tooBig.Limit)))
	case errors.As(err, &missing):
		return http.StatusBadRequest, "Choose a file to upload."
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	}
	return http.StatusInternalServerError, genericFailure
}

// fail is the single place where errors become responses. Internal
// details only reach the log.
func (a *App) fail(w http.ResponseWriter, r *http.Request, req api.Request, err error) {
	var aerr auth.AuthorizationError
	if errors.As(err, &aerr) && aerr.Unauthenticated() {
		http.Redirect(w, r, api.LoginPath, http.StatusSeeOther)
		return
	}
	code, msg := status(err)
	log := logutil.FromRequest(r)
	switch {
	case code >= http.StatusInternalServerError:
		log.Error().Err(err).Msg("Request failed")
	case code == http.StatusForbidden:
		log.Warn().Err(err).Msg("Access denied")
	default:
		log.Debug().Err(err).Int("status", code).Msg("Request rejected")
	}
	views.Render(w, code, views.Error(req.Principal, code, msg))
}
