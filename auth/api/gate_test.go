package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/session"
	"github.com/julienschmidt/httprouter"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

type (
	oneUser struct {
		p *auth.Principal
	}

	brokenSessions struct {
		session.Store
	}
)

func (o oneUser) FindUserByEmail(_ context.Context, email string) (*auth.Principal, error) {
	if email == o.p.Email {
		return o.p, nil
	}
	return nil, nil
}

func (o oneUser) FindUserByID(_ context.Context, id string) (*auth.Principal, error) {
	if id == o.p.ID {
		return o.p, nil
	}
	return nil, nil
}

func (o oneUser) CreateUser(context.Context, auth.UserRecord) (*auth.Principal, error) {
	return nil, auth.ErrEmailTaken
}

func (brokenSessions) Load(context.Context, string) (session.Payload, error) {
	return session.Payload{}, errors.New("store unreachable")
}

var secret = []byte("blmHX4evD5FygUEa3EWxjzuAPF7lC4sKuWBrhgti")

func newTestGate(t *testing.T, sessions session.Store) (*Gate, *auth.Service, *auth.Principal) {
	p := &auth.Principal{ID: "u1", Email: "ana@example.com"}
	svc := auth.NewService(oneUser{p: p}, sessions, auth.DefaultHasher(), time.Hour)
	codec, err := NewCookieCodec("", secret, true)
	require.NoError(t, err)
	return NewGate(svc, codec), svc, p
}

func memSessions(t *testing.T) session.Store {
	s, err := session.InMemoryStore(time.Hour)
	require.NoError(t, err)
	return s
}

func TestCookieCodec(t *testing.T) {
	codec, err := NewCookieCodec("", secret, false)
	require.NoError(t, err)
	value, err := codec.Encode("session-1")
	require.NoError(t, err)

	sid, ok := codec.Decode(value)
	require.True(t, ok)
	require.Equal(t, "session-1", sid)

	other, err := NewCookieCodec("", []byte("another secret of a decent length, too"), false)
	require.NoError(t, err)
	_, ok = other.Decode(value)
	require.False(t, ok, "token signed with another secret must be rejected")

	_, ok = codec.Decode(value + "x")
	require.False(t, ok)
	_, ok = codec.Decode("session-1")
	require.False(t, ok, "a raw id is not a valid cookie")

	_, err = NewCookieCodec("", []byte("short"), false)
	require.Error(t, err)
	_, err = NewCookieCodec("", secret[:31], false)
	require.Error(t, err, "secrets under 32 bytes are rejected")
	_, err = NewCookieCodec("", secret[:32], false)
	require.NoError(t, err)
}

func TestGuards(t *testing.T) {
	gate, svc, p := newTestGate(t, memSessions(t))
	sid, err := svc.EstablishSession(context.Background(), p)
	require.NoError(t, err)
	cookie, err := gate.cookies.Encode(sid)
	require.NoError(t, err)

	var count uint32
	var seen Request
	handler := func(w http.ResponseWriter, r *http.Request, req Request) {
		atomic.AddUint32(&count, 1)
		seen = req
		w.WriteHeader(http.StatusNoContent)
	}
	router := httprouter.New()
	router.GET("/private/:id", gate.Handle(handler, RequireAuthenticated))
	router.GET("/login", gate.Handle(handler, RequireAnonymous))
	router.GET("/deny", gate.Handle(handler, RequireAuthenticated, func(*http.Request, Request) Decision {
		return Deny(http.StatusTeapot)
	}))

	apitest.Handler(router).Get("/private/42").Expect(t).Status(http.StatusSeeOther).Header("Location", LoginPath).End()
	apitest.Handler(router).Get("/login").Expect(t).Status(http.StatusNoContent).End()
	require.Nil(t, seen.Principal)

	apitest.Handler(router).Get("/private/42").Cookie(DefaultCookieName, cookie).Expect(t).Status(http.StatusNoContent).End()
	require.Equal(t, "u1", seen.Principal.ID)
	require.Equal(t, sid, seen.SessionID)
	require.Equal(t, "42", seen.Params.ByName("id"))

	apitest.Handler(router).Get("/login").Cookie(DefaultCookieName, cookie).Expect(t).Status(http.StatusSeeOther).Header("Location", HomePath).End()
	apitest.Handler(router).Get("/deny").Cookie(DefaultCookieName, cookie).Expect(t).Status(http.StatusTeapot).End()
	apitest.Handler(router).Get("/deny").Expect(t).Status(http.StatusSeeOther).End()

	if count != 2 {
		t.Fatalf("handler should have been called twice, got %v", count)
	}
}

func TestLoginLogout(t *testing.T) {
	gate, svc, p := newTestGate(t, memSessions(t))
	sid, err := svc.EstablishSession(context.Background(), p)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, gate.Login(rec, sid))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	require.NotContains(t, cookies[0].Value, "ana@example.com")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	require.NoError(t, gate.Logout(rec, req, Request{Principal: p, SessionID: sid}))
	require.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)

	resolved, err := svc.ResolvePrincipal(context.Background(), sid)
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestResolveFailureIsInternal(t *testing.T) {
	gate, _, _ := newTestGate(t, brokenSessions{Store: memSessions(t)})
	cookie, err := gate.cookies.Encode("whatever")
	require.NoError(t, err)
	var called bool
	h := gate.Handle(func(http.ResponseWriter, *http.Request, Request) { called = true })
	apitest.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { h(w, r, nil) })).
		Get("/").Cookie(DefaultCookieName, cookie).
		Expect(t).Status(http.StatusInternalServerError).End()
	require.False(t, called, "a failing session store must not fall through as anonymous")
}
