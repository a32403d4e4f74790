package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"webring/internal/db"
	"webring/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqdb, err := db.Open(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "ring.db"), db.PoolOptions{
		MinConns: 1,
		MaxConns: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplySchema(t.Context(), sqdb); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return New(sqdb, WithAcquireTimeout(5*time.Second))
}

func addAdmin(t *testing.T, st *Store, username string) models.Admin {
	t.Helper()
	a, err := st.AddAdmin(t.Context(), username, username+"@example.com", "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA")
	if err != nil {
		t.Fatalf("add admin %s: %v", username, err)
	}
	return a
}

func mustAddSite(t *testing.T, st *Store, url string) models.Site {
	t.Helper()
	site, err := st.AddSite(t.Context(), url, "owner@example.com")
	if err != nil {
		t.Fatalf("add site %s: %v", url, err)
	}
	return site
}

func mustApprove(t *testing.T, st *Store, url string, adminID int64) {
	t.Helper()
	if _, err := st.ApproveSite(t.Context(), url, adminID); err != nil {
		t.Fatalf("approve %s: %v", url, err)
	}
}

func TestErrorKindsMatchSentinels(t *testing.T) {
	err := newError(KindNotApproved, "next site", nil)
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("NotApproved must not match NotFound")
	}
	if KindOf(err) != KindNotApproved {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnrecoverable {
		t.Fatalf("foreign errors should be unrecoverable")
	}
	if got := err.Error(); got != "next site: not approved" {
		t.Fatalf("unexpected message %q", got)
	}
}
