package api

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"webring/internal/middleware"
	"webring/internal/util"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, admin, err := h.svc.Login(r.Context(), req.Username, req.Password, middleware.ClientIP(r, h.cfg.HTTP.TrustProxy), r.UserAgent())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	csrfToken := randomToken()
	h.setAuthCookies(w, r, token, csrfToken)
	util.WriteJSON(w, 200, map[string]any{"admin": admin, "csrf_token": csrfToken})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var err error
	if c, _ := r.Cookie(h.cfg.Session.CookieName); c != nil && c.Value != "" {
		err = h.svc.Logout(r.Context(), c.Value)
	}
	h.clearAuthCookies(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "ok"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	a, _ := middleware.Admin(r.Context())
	util.WriteJSON(w, 200, a)
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.Admin(r.Context())
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	// every session, this one included, was revoked
	h.clearAuthCookies(w, r)
	util.WriteJSON(w, 200, map[string]string{"status": "updated"})
}

func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.Admin(r.Context())
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if !req.Confirm {
		util.WriteError(w, http.StatusBadRequest, "confirmation_required", "set confirm to true to delete this account", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.DeleteAdmin(r.Context(), admin.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.clearAuthCookies(w, r)
	util.WriteJSON(w, 200, map[string]string{"status": "deleted"})
}

func randomToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// cookieSecure marks cookies Secure when configured to, or when the
// request arrived over TLS directly or through a trusted proxy.
func (h *Handlers) cookieSecure(r *http.Request) bool {
	if h.cfg.Session.CookieSecure || r.TLS != nil {
		return true
	}
	return h.cfg.HTTP.TrustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *Handlers) setAuthCookies(w http.ResponseWriter, r *http.Request, sessionToken, csrfToken string) {
	secure := h.cookieSecure(r)
	maxAge := int(h.cfg.Session.AbsoluteTimeout.Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Session.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (h *Handlers) clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	secure := h.cookieSecure(r)
	expiredAt := time.Unix(1, 0).UTC()
	for _, c := range []struct {
		name     string
		httpOnly bool
	}{
		{h.cfg.Session.CookieName, true},
		{h.cfg.Session.CSRFCookieName, false},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     "/",
			HttpOnly: c.httpOnly,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
			Expires:  expiredAt,
		})
	}
}
