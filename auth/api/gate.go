package api

import (
	"net/http"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	// Request is what a gated handler gets to know about the caller.
	Request struct {
		Params    httprouter.Params
		Principal *auth.Principal
		SessionID string
	}

	// Handler is an httprouter handle that also receives the resolved
	// caller.
	Handler func(w http.ResponseWriter, r *http.Request, req Request)

	// Decision is the outcome of a Guard. The zero value denies with 403.
	Decision struct {
		Allow    bool
		Status   int
		Location string
	}

	// Guard decides whether a request may proceed to its handler.
	Guard func(r *http.Request, req Request) Decision

	// Gate resolves the session cookie and runs guards before handlers.
	Gate struct {
		auth    *auth.Service
		cookies *CookieCodec

		// OnError renders internal failures (store down, ...), defaults to
		// a bare 500.
		OnError func(w http.ResponseWriter, r *http.Request, err error)
	}
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

func NewGate(svc *auth.Service, cookies *CookieCodec) *Gate {
	return &Gate{
		auth:    svc,
		cookies: cookies,
	}
}

func Allow() Decision {
	return Decision{Allow: true}
}

func Redirect(location string) Decision {
	return Decision{Status: http.StatusSeeOther, Location: location}
}

func Deny(status int) Decision {
	return Decision{Status: status}
}

// RequireAuthenticated sends anonymous callers to the login page.
func RequireAuthenticated(_ *http.Request, req Request) Decision {
	if req.Principal == nil {
		return Redirect(LoginPath)
	}
	return Allow()
}

// RequireAnonymous keeps signed in callers away from login and sign-up.
func RequireAnonymous(_ *http.Request, req Request) Decision {
	if req.Principal != nil {
		return Redirect(HomePath)
	}
	return Allow()
}

// Handle wraps h so guards run, in order, before it. The first guard that
// does not allow the request decides the response.
func (g *Gate) Handle(h Handler, guards ...Guard) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		req, ok := g.resolve(w, r)
		if !ok {
			return
		}
		req.Params = ps
		for _, guard := range guards {
			d := guard(r, req)
			if !d.Allow {
				d.write(w, r)
				return
			}
		}
		h(w, r, req)
	}
}

// Login binds sessionID to the browser.
func (g *Gate) Login(w http.ResponseWriter, sessionID string) error {
	return g.cookies.Set(w, sessionID)
}

// Logout ends the caller session, if any, and clears the cookie.
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request, req Request) error {
	g.cookies.Clear(w)
	return g.auth.EndSession(r.Context(), req.SessionID)
}

func (g *Gate) resolve(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	sid, present := g.cookies.Read(r)
	if !present {
		return req, true
	}
	p, err := g.auth.ResolvePrincipal(r.Context(), sid)
	if err != nil {
		g.fail(w, r, err)
		return req, false
	}
	if p == nil {
		// expired, logged out elsewhere or forged
		g.cookies.Clear(w)
		return req, true
	}
	req.Principal = p
	req.SessionID = sid
	return req, true
}

func (g *Gate) fail(w http.ResponseWriter, r *http.Request, err error) {
	if g.OnError != nil {
		g.OnError(w, r, err)
		return
	}
	log := logutil.FromRequest(r)
	log.Error().Err(err).Msg("Unable to resolve session")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (d Decision) write(w http.ResponseWriter, r *http.Request) {
	status := d.Status
	if d.Location != "" {
		if status == 0 {
			status = http.StatusSeeOther
		}
		http.Redirect(w, r, d.Location, status)
		return
	}
	if status == 0 {
		status = http.StatusForbidden
	}
	http.Error(w, http.StatusText(status), status)
}
