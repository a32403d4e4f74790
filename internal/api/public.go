package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"webring/internal/middleware"
	"webring/internal/store"
	"webring/internal/web"
)

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "index", web.Page{Path: h.cfg.Join.VerifyPath})
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	urls, err := h.svc.ApprovedURLs(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.pages.Render(w, http.StatusOK, "list", web.Page{Title: "Members", Sites: urls})
}

func (h *Handlers) Next(w http.ResponseWriter, r *http.Request) {
	dest, err := h.svc.Next(r.Context(), r.URL.Query().Get("current"))
	h.navigate(w, r, dest, err)
}

func (h *Handlers) Prev(w http.ResponseWriter, r *http.Request) {
	dest, err := h.svc.Prev(r.Context(), r.URL.Query().Get("current"))
	h.navigate(w, r, dest, err)
}

// navigate redirects to dest. Walking off either end of the ring goes back
// to the home page.
func (h *Handlers) navigate(w http.ResponseWriter, r *http.Request, dest string, err error) {
	switch {
	case err == nil:
		http.Redirect(w, r, dest, http.StatusSeeOther)
	case errors.Is(err, store.ErrNotFound):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, store.ErrNotApproved):
		h.pages.Render(w, http.StatusUnauthorized, "notice", web.Page{
			Title:   "Not a member",
			Message: "The site you came from is not an approved member of this ring.",
		})
	default:
		h.pageError(w, r, err)
	}
}

func (h *Handlers) Random(w http.ResponseWriter, r *http.Request) {
	dest, err := h.svc.Random(r.Context())
	switch {
	case err == nil:
		http.Redirect(w, r, dest, http.StatusSeeOther)
	case errors.Is(err, store.ErrNotFound):
		h.pages.Render(w, http.StatusOK, "notice", web.Page{
			Title:   "The ring is empty",
			Message: "No sites have been approved yet, so there is nowhere to send you.",
		})
	default:
		h.pageError(w, r, err)
	}
}

func (h *Handlers) pageError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("page failed",
		zap.String("request_id", middleware.RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.pages.Render(w, http.StatusInternalServerError, "notice", web.Page{
		Title:   "Something went wrong",
		Message: "The ring could not be read right now. Please try again later.",
	})
}
