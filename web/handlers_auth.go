package web

import (
	"errors"
	"net/http"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/auth/api"
	"github.com/goldyy12/files/web/views"
)

func (a *App) index(w http.ResponseWriter, r *http.Request, req api.Request) {
	if req.Principal == nil {
		views.Render(w, http.StatusOK, views.Index(nil, nil))
		return
	}
	folders, err := a.drive.ListFolders(r.Context(), req.Principal)
	if err != nil {
		a.fail(w, r, req, err)
		return
	}
	views.Render(w, http.StatusOK, views.Index(req.Principal, folders))
}

func (a *App) signUpForm(w http.ResponseWriter, r *http.Request, req api.Request) {
	views.Render(w, http.StatusOK, views.SignUp(views.SignUpForm{}, ""))
}

func (a *App) signUp(w http.ResponseWriter, r *http.Request, req api.Request) {
	if err := readForm(w, r); err != nil {
		a.fail(w, r, req, err)
		return
	}
	form := auth.SignUp{
		FirstName:       r.PostForm.Get("firstName"),
		LastName:        r.PostForm.Get("lastName"),
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirmPassword"),
	}
	_, err := a.auth.Register(r.Context(), form)
	var verr auth.ValidationError
	if errors.As(err, &verr) {
		echo := views.SignUpForm{FirstName: form.FirstName, LastName: form.LastName, Email: form.Email}
		views.Render(w, http.StatusBadRequest, views.SignUp(echo, verr.Message))
		return
	} else if err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, api.LoginPath, http.StatusSeeOther)
}

func (a *App) loginForm(w http.ResponseWriter, r *http.Request, req api.Request) {
	views.Render(w, http.StatusOK, views.Login("", ""))
}

func (a *App) login(w http.ResponseWriter, r *http.Request, req api.Request) {
	if err := readForm(w, r); err != nil {
		a.fail(w, r, req, err)
		return
	}
	email := r.PostForm.Get("email")
	p, err := a.auth.Authenticate(r.Context(), email, r.PostForm.Get("password"))
	var failure auth.AuthFailure
	if errors.As(err, &failure) {
		views.Render(w, http.StatusUnauthorized, views.Login(email, auth.GenericLoginFailure))
		return
	} else if err != nil {
		a.fail(w, r, req, err)
		return
	}
	sid, err := a.auth.EstablishSession(r.Context(), p)
	if err != nil {
		a.fail(w, r, req, err)
		return
	}
	if err := a.gate.Login(w, sid); err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, api.HomePath, http.StatusSeeOther)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request, req api.Request) {
	if err := a.gate.Logout(w, r, req); err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, api.HomePath, http.StatusSeeOther)
}

func readForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		return auth.ValidationError{Message: "The form could not be read."}
	}
	return nil
}
