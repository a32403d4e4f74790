package api

import (
	"net/http"

	"webring/internal/models"
	"webring/internal/util"
	"webring/internal/version"
)

type joinRequest struct {
	URL   string `json:"url"`
	Email string `json:"email"`
}

type siteRequest struct {
	URL    string `json:"url"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, 200, version.Current())
}

func (h *Handlers) ListApproved(w http.ResponseWriter, r *http.Request) {
	urls, err := h.svc.ApprovedURLs(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"ring": h.cfg.Ring.Name, "sites": urls})
}

func (h *Handlers) JoinToken(w http.ResponseWriter, r *http.Request) {
	u, token, err := h.svc.OwnershipToken(r.URL.Query().Get("url"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"url": u, "token": token, "path": h.cfg.Join.VerifyPath})
}

func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	site, err := h.svc.Join(r.Context(), req.URL, req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, site)
}

func (h *Handlers) Leave(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Leave(r.Context(), req.URL); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "removed"})
}

func (h *Handlers) AdminListSites(w http.ResponseWriter, r *http.Request) {
	status := models.SiteStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.SitePending
	}
	items, err := h.svc.ListSites(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"status": status, "items": items})
}
