package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"webring/internal/config"
	"webring/internal/metrics"
	"webring/internal/middleware"
	"webring/internal/service"
	"webring/internal/util"
	"webring/internal/web"
)

type Handlers struct {
	cfg   config.Config
	svc   *service.Service
	pages *web.Pages
}

func NewRouter(cfg config.Config, svc *service.Service, pages *web.Pages) http.Handler {
	h := &Handlers{cfg: cfg, svc: svc, pages: pages}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(cfg.HTTP.TrustProxy))
	r.Use(middleware.SecurityHeaders)
	if len(cfg.HTTP.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/static/*", web.Static())

	r.Get("/", h.Index)
	r.Get("/list", h.List)
	r.Get("/next", h.Next)
	r.Get("/prev", h.Prev)
	r.Get("/random", h.Random)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", h.Version)
		r.Get("/sites", h.ListApproved)
		r.Get("/join/token", h.JoinToken)
		r.Post("/join", h.Join)
		r.Post("/leave", h.Leave)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authn(h.svc, h.cfg.Session.CookieName))
			r.Get("/me", h.Me)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/sites", h.AdminListSites)
				r.Get("/admins", h.AdminListAdmins)
				r.Group(func(r chi.Router) {
					r.Use(middleware.CSRFFromCookie(h.cfg.Session.CSRFCookieName))
					r.Post("/sites/approve", h.AdminApproveSite)
					r.Post("/sites/deny", h.AdminDenySite)
					r.Post("/sites/remove", h.AdminRemoveSite)
					r.Post("/admins", h.AdminAddAdmin)
					r.Post("/account/password", h.ChangePassword)
					r.Post("/account/delete", h.DeleteAccount)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			util.WriteError(w, http.StatusNotFound, "not_found", "no such endpoint", middleware.RequestID(r.Context()))
			return
		}
		h.pages.Render(w, http.StatusNotFound, "notice", web.Page{Title: "Not found", Message: "There is nothing at this address."})
	})

	return r
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ready := map[string]any{"checked_at": time.Now().UTC().Format(time.RFC3339)}
	if err := h.svc.Ready(r.Context()); err != nil {
		ready["status"] = "degraded"
		ready["components"] = map[string]any{"database": map[string]any{"ok": false}}
		util.WriteJSON(w, 503, ready)
		return
	}
	ready["status"] = "ready"
	ready["components"] = map[string]any{"database": map[string]any{"ok": true}}
	util.WriteJSON(w, 200, ready)
}
