package web

import (
	"errors"
	"mime"
	"net/http"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/auth/api"
	"github.com/goldyy12/files/upload"
	"github.com/goldyy12/files/web/views"
)

func (a *App) newFolderForm(w http.ResponseWriter, r *http.Request, req api.Request) {
	views.Render(w, http.StatusOK, views.NewFolder(req.Principal, "", ""))
}

func (a *App) createFolder(w http.ResponseWriter, r *http.Request, req api.Request) {
	if err := readForm(w, r); err != nil {
		a.fail(w, r, req, err)
		return
	}
	name := r.PostForm.Get("name")
	_, err := a.drive.CreateFolder(r.Context(), req.Principal, name)
	var verr auth.ValidationError
	if errors.As(err, &verr) {
		views.Render(w, http.StatusBadRequest, views.NewFolder(req.Principal, name, verr.Message))
		return
	} else if err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, api.HomePath, http.StatusSeeOther)
}

func (a *App) folder(w http.ResponseWriter, r *http.Request, req api.Request) {
	view, err := a.drive.Folder(r.Context(), req.Principal, req.Params.ByName("id"))
	if err != nil {
		a.fail(w, r, req, err)
		return
	}
	views.Render(w, http.StatusOK, views.Folder(req.Principal, view))
}

func (a *App) uploadForm(w http.ResponseWriter, r *http.Request, req api.Request) {
	view, err := a.drive.Folder(r.Context(), req.Principal, req.Params.ByName("id"))
	if err != nil {
		a.fail(w, r, req, err)
		return
	}
	views.Render(w, http.StatusOK, views.UploadForm(req.Principal, view.Folder, a.maxUpload, ""))
}

func (a *App) editFolderForm(w http.ResponseWriter, r *http.Request, req api.Request) {
	view, err := a.drive.Folder(r.Context(), req.Principal, req.Params.ByName("id"))
	if err != nil {
		a.fail(w, r, req, err)
		return
	}
	views.Render(w, http.StatusOK, views.EditFolder(req.Principal, view.Folder, "", ""))
}

func (a *App) editFolder(w http.ResponseWriter, r *http.Request, req api.Request) {
	id := req.Params.ByName("id")
	if err := readForm(w, r); err != nil {
		a.fail(w, r, req, err)
		return
	}
	name := r.PostForm.Get("name")
	err := a.drive.RenameFolder(r.Context(), req.Principal, id, name)
	var verr auth.ValidationError
	if errors.As(err, &verr) {
		view, ferr := a.drive.Folder(r.Context(), req.Principal, id)
		if ferr != nil {
			a.fail(w, r, req, ferr)
			return
		}
		views.Render(w, http.StatusBadRequest, views.EditFolder(req.Principal, view.Folder, name, verr.Message))
		return
	} else if err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, "/folders/"+id, http.StatusSeeOther)
}

func (a *App) deleteFolder(w http.ResponseWriter, r *http.Request, req api.Request) {
	if err := a.drive.DeleteFolder(r.Context(), req.Principal, req.Params.ByName("id")); err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, api.HomePath, http.StatusSeeOther)
}

func (a *App) upload(w http.ResponseWriter, r *http.Request, req api.Request) {
	id := req.Params.ByName("id")
	_, err := a.drive.Upload(r.Context(), req.Principal, id, r)
	var (
		tooBig  upload.TooLarge
		missing upload.MissingFile
	)
	if errors.As(err, &tooBig) || errors.As(err, &missing) {
		code, msg := status(err)
		view, ferr := a.drive.Folder(r.Context(), req.Principal, id)
		if ferr != nil {
			a.fail(w, r, req, ferr)
			return
		}
		// the rest of the body is not read, the client must not reuse
		// the connection
		w.Header().Set("Connection", "close")
		views.Render(w, code, views.UploadForm(req.Principal, view.Folder, a.maxUpload, msg))
		return
	} else if err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, "/folders/"+id, http.StatusSeeOther)
}

func (a *App) deleteFile(w http.ResponseWriter, r *http.Request, req api.Request) {
	id := req.Params.ByName("id")
	if err := a.drive.DeleteFile(r.Context(), req.Principal, id, req.Params.ByName("fileId")); err != nil {
		a.fail(w, r, req, err)
		return
	}
	http.Redirect(w, r, "/folders/"+id, http.StatusSeeOther)
}

func (a *App) download(w http.ResponseWriter, r *http.Request, req api.Request) {
	f, content, err := a.drive.OpenFile(r.Context(), req.Principal, req.Params.ByName("id"), req.Params.ByName("fileId"))
	if err != nil {
		a.fail(w, r, req, err)
		return
	}
	defer content.Close()
	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, f.Name, f.CreatedAt, content)
}
