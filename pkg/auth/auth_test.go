package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/kagent-dev/a2agw/pkg/auth"
)

func TestOpenProviderAlwaysAuthenticates(t *testing.T) {
	p := auth.OpenProvider{}
	session, err := p.Authenticate(nil, http.Header{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session == nil {
		t.Fatal("expected a non-nil session")
	}
	if session.Principal().Subject != "anonymous" {
		t.Errorf("expected anonymous subject, got %q", session.Principal().Subject)
	}
}

func TestOpenProviderUpstreamAuthNoop(t *testing.T) {
	p := auth.OpenProvider{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := p.UpstreamAuth(req, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type denyingProvider struct{}

func (denyingProvider) Authenticate(context.Context, http.Header, url.Values) (auth.Session, error) {
	return nil, errors.New("denied")
}

func (denyingProvider) UpstreamAuth(*http.Request, auth.Session) error {
	return nil
}

func TestAuthnMiddlewareRejectsFailedAuthentication(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("downstream handler must not be reached when authentication fails")
	})

	mw := auth.AuthnMiddleware(denyingProvider{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthnMiddlewarePassesOpenRequestsThrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.SessionFrom(r.Context()); !ok {
			t.Error("expected a session to be attached to the request context")
		}
		w.WriteHeader(http.StatusOK)
	})

	mw := auth.AuthnMiddleware(auth.OpenProvider{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected downstream handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSessionFromMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := auth.SessionFrom(req.Context()); ok {
		t.Fatal("expected no session on a bare request context")
	}
}
