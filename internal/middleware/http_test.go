package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"webring/internal/models"
)

func TestClientIPTrustProxy(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:12345"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.5")

	if got := ClientIP(r, false); got != "10.0.0.5" {
		t.Fatalf("unexpected direct IP: %s", got)
	}
	if got := ClientIP(r, true); got != "1.2.3.4" {
		t.Fatalf("unexpected proxied IP: %s", got)
	}
}

func TestCSRFFromCookie(t *testing.T) {
	h := CSRFFromCookie("csrf")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		method string
		cookie string
		header string
		want   int
	}{
		{name: "safe method", method: http.MethodGet, want: http.StatusNoContent},
		{name: "missing", method: http.MethodPost, cookie: "abc", want: http.StatusForbidden},
		{name: "mismatch", method: http.MethodPost, cookie: "abc", header: "abd", want: http.StatusForbidden},
		{name: "match", method: http.MethodPost, cookie: "abc", header: "abc", want: http.StatusNoContent},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, "/", nil)
		if tc.cookie != "" {
			r.AddCookie(&http.Cookie{Name: "csrf", Value: tc.cookie})
		}
		if tc.header != "" {
			r.Header.Set("X-CSRF-Token", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != tc.want {
			t.Fatalf("%s: status=%d want=%d", tc.name, rec.Code, tc.want)
		}
	}
}

type stubValidator struct {
	token string
}

func (s stubValidator) ValidateSession(ctx context.Context, raw string) (models.Admin, models.Session, error) {
	if raw != s.token {
		return models.Admin{}, models.Session{}, errors.New("unknown session")
	}
	return models.Admin{ID: 7, Username: "mod"}, models.Session{ID: "s1", AdminID: 7}, nil
}

func TestAuthnPutsAdminInContext(t *testing.T) {
	h := Authn(stubValidator{token: "good"}, "sess")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := Admin(r.Context())
		if !ok || a.ID != 7 {
			t.Errorf("admin missing from context: %+v", a)
		}
		if s, ok := Session(r.Context()); !ok || s.ID != "s1" {
			t.Errorf("session missing from context: %+v", s)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie: status=%d", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sess", Value: "bad"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad cookie: status=%d", rec.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sess", Value: "good"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("good cookie: status=%d", rec.Code)
	}
}
