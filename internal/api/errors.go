package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"webring/internal/middleware"
	"webring/internal/service"
	"webring/internal/store"
	"webring/internal/util"
	"webring/internal/verify"
)

// writeServiceError maps a service error onto the JSON error envelope.
// Storage and hashing details are logged, never returned.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rid := middleware.RequestID(r.Context())
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		util.WriteError(w, http.StatusBadRequest, "bad_request", service.InputMessage(err), rid)
	case errors.Is(err, verify.ErrOwnershipMissing):
		util.WriteError(w, http.StatusUnprocessableEntity, "ownership_token_missing", service.DescribeOwnershipError(err, h.cfg.Join.VerifyPath), rid)
	case errors.Is(err, verify.ErrOwnershipMismatch):
		util.WriteError(w, http.StatusUnprocessableEntity, "ownership_token_mismatch", service.DescribeOwnershipError(err, h.cfg.Join.VerifyPath), rid)
	case errors.Is(err, verify.ErrOwnershipUnavailable):
		util.WriteError(w, http.StatusBadGateway, "ownership_check_unavailable", service.DescribeOwnershipError(err, h.cfg.Join.VerifyPath), rid)
	case errors.Is(err, store.ErrAlreadyRegistered):
		util.WriteError(w, http.StatusConflict, "already_registered", "already registered", rid)
	case errors.Is(err, store.ErrAlreadyDecided):
		util.WriteError(w, http.StatusConflict, "already_decided", "site has already been decided", rid)
	case errors.Is(err, store.ErrNotFound):
		util.WriteError(w, http.StatusNotFound, "not_found", "not found", rid)
	case errors.Is(err, store.ErrNotApproved):
		util.WriteError(w, http.StatusForbidden, "not_approved", "site is not an approved member", rid)
	case errors.Is(err, store.ErrUnauthorized):
		util.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", rid)
	default:
		zap.L().Error("request failed",
			zap.String("request_id", rid),
			zap.String("path", r.URL.Path),
			zap.Stringer("kind", store.KindOf(err)),
			zap.Error(err),
		)
		util.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", rid)
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := util.ReadJSON(w, r, dst); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), middleware.RequestID(r.Context()))
		return false
	}
	return true
}
