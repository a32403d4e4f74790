package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"webring/internal/models"
)

func TestAddAdminCollisions(t *testing.T) {
	st := newTestStore(t)
	addAdmin(t, st, "root")

	if _, err := st.AddAdmin(t.Context(), "root", "other@example.com", "h"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for username, got %v", err)
	}
	if _, err := st.AddAdmin(t.Context(), "other", "root@example.com", "h"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for email, got %v", err)
	}
	n, err := st.CountAdmins(t.Context())
	if err != nil || n != 1 {
		t.Fatalf("expected one admin, got %d err=%v", n, err)
	}
}

func TestDeleteAdminRemovesSessionsKeepsDecisions(t *testing.T) {
	st := newTestStore(t)
	admin := addAdmin(t, st, "root")
	mustAddSite(t, st, "https://a.example")
	mustApprove(t, st, "https://a.example", admin.ID)

	now := time.Now().UTC()
	if err := st.CreateSession(t.Context(), models.Session{
		ID:            uuid.NewString(),
		AdminID:       admin.ID,
		TokenHash:     "tokenhash",
		ExpiresAt:     now.Add(time.Hour),
		IdleExpiresAt: now.Add(time.Hour),
		CreatedAt:     now,
		LastSeenAt:    now,
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := st.DeleteAdmin(t.Context(), admin.ID); err != nil {
		t.Fatalf("delete admin: %v", err)
	}
	if err := st.DeleteAdmin(t.Context(), admin.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := st.GetSessionByTokenHash(t.Context(), "tokenhash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session should be gone, got %v", err)
	}

	site, err := st.GetSite(t.Context(), "https://a.example")
	if err != nil {
		t.Fatalf("get site: %v", err)
	}
	if site.Status != models.SiteApproved || site.Decision.AdminID != nil {
		t.Fatalf("approval should survive with cleared admin, got %+v", site.Decision)
	}
}

func TestSetAdminPasswordHashRevokesSessions(t *testing.T) {
	st := newTestStore(t)
	admin := addAdmin(t, st, "root")
	now := time.Now().UTC()
	sess := models.Session{ID: uuid.NewString(), AdminID: admin.ID, TokenHash: "before",
		ExpiresAt: now.Add(time.Hour), IdleExpiresAt: now.Add(time.Hour), CreatedAt: now, LastSeenAt: now}
	if err := st.CreateSession(t.Context(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := st.SetAdminPasswordHash(t.Context(), admin.ID, "new-hash"); err != nil {
		t.Fatalf("set hash: %v", err)
	}
	got, err := st.GetAdminByID(t.Context(), admin.ID)
	if err != nil || got.PasswordHash != "new-hash" {
		t.Fatalf("hash not updated: %+v err=%v", got, err)
	}
	stored, err := st.GetSessionByTokenHash(t.Context(), "before")
	if err != nil || stored.RevokedAt == nil {
		t.Fatalf("session should be revoked with the password change: %+v err=%v", stored, err)
	}
	if err := st.SetAdminPasswordHash(t.Context(), admin.ID+100, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	st := newTestStore(t)
	admin := addAdmin(t, st, "root")
	now := time.Now().UTC()

	live := models.Session{ID: uuid.NewString(), AdminID: admin.ID, TokenHash: "live",
		ExpiresAt: now.Add(time.Hour), IdleExpiresAt: now.Add(time.Hour), CreatedAt: now, LastSeenAt: now}
	stale := models.Session{ID: uuid.NewString(), AdminID: admin.ID, TokenHash: "stale",
		ExpiresAt: now.Add(-time.Minute), IdleExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour), LastSeenAt: now.Add(-time.Hour)}
	for _, s := range []models.Session{live, stale} {
		if err := st.CreateSession(t.Context(), s); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	n, err := st.PurgeExpiredSessions(t.Context(), now)
	if err != nil || n != 1 {
		t.Fatalf("expected one purged session, got %d err=%v", n, err)
	}

	if err := st.RevokeSession(t.Context(), live.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err := st.GetSessionByTokenHash(t.Context(), "live")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.RevokedAt == nil {
		t.Fatalf("expected session to be revoked")
	}
}
