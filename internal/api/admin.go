package api

import (
	"net/http"

	"webring/internal/middleware"
	"webring/internal/util"
)

func (h *Handlers) AdminApproveSite(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.Admin(r.Context())
	var req siteRequest
	if !h.decode(w, r, &req) {
		return
	}
	site, err := h.svc.ApproveSite(r.Context(), admin, req.URL)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, site)
}

func (h *Handlers) AdminDenySite(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.Admin(r.Context())
	var req siteRequest
	if !h.decode(w, r, &req) {
		return
	}
	site, err := h.svc.DenySite(r.Context(), admin, req.URL, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, site)
}

func (h *Handlers) AdminRemoveSite(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.Admin(r.Context())
	var req siteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.RemoveSite(r.Context(), admin, req.URL); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "removed"})
}

func (h *Handlers) AdminListAdmins(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAdmins(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) AdminAddAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.svc.AddAdmin(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, a)
}
