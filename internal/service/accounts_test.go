package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"webring/internal/store"
)

func TestAddAdminValidation(t *testing.T) {
	env := newTestService(t)

	if _, err := env.svc.AddAdmin(t.Context(), "x", "x@example.com", "correct horse battery"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short username to fail, got %v", err)
	}
	if _, err := env.svc.AddAdmin(t.Context(), "root", "nope", "correct horse battery"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected bad email to fail, got %v", err)
	}
	if _, err := env.svc.AddAdmin(t.Context(), "root", "root@example.com", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected weak password to fail, got %v", err)
	}

	a, err := env.svc.AddAdmin(t.Context(), " Root ", "Root@Example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if a.Username != "root" || a.Email != "root@example.com" || a.PasswordHash == "correct horse battery" {
		t.Fatalf("unexpected admin %+v", a)
	}
	if _, err := env.svc.AddAdmin(t.Context(), "root", "other@example.com", "correct horse battery"); !errors.Is(err, store.ErrAlreadyRegistered) {
		t.Fatalf("expected AlreadyRegistered, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestService(t)
	mustAdmin(t, env)

	if _, err := env.svc.Authenticate(t.Context(), "moderator", "correct horse battery"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := env.svc.Authenticate(t.Context(), "moderator", "wrong password!"); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for wrong password, got %v", err)
	}
	if _, err := env.svc.Authenticate(t.Context(), "nobody", "correct horse battery"); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for unknown admin, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestService(t)
	a := mustAdmin(t, env)

	raw, _, err := env.svc.Login(t.Context(), "moderator", "correct horse battery", "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	err = env.svc.ChangePassword(t.Context(), a.ID, "not the password", "a brand new secret")
	if !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	unchanged, err := env.st.GetAdminByID(t.Context(), a.ID)
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if unchanged.PasswordHash != a.PasswordHash {
		t.Fatalf("hash must not change after a failed re-authentication")
	}
	if _, _, err := env.svc.ValidateSession(t.Context(), raw); err != nil {
		t.Fatalf("session must survive a failed change: %v", err)
	}

	if err := env.svc.ChangePassword(t.Context(), a.ID, "correct horse battery", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected policy failure, got %v", err)
	}

	if err := env.svc.ChangePassword(t.Context(), a.ID, "correct horse battery", "a brand new secret"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := env.svc.ValidateSession(t.Context(), raw); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("sessions must be revoked after a change, got %v", err)
	}
	if _, err := env.svc.Authenticate(t.Context(), "moderator", "a brand new secret"); err != nil {
		t.Fatalf("new password must work: %v", err)
	}
	if _, err := env.svc.Authenticate(t.Context(), "moderator", "correct horse battery"); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("old password must stop working, got %v", err)
	}
}

func TestDeleteAdmin(t *testing.T) {
	env := newTestService(t)
	a := mustAdmin(t, env)
	raw, _, err := env.svc.Login(t.Context(), "moderator", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := env.svc.DeleteAdmin(t.Context(), a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := env.svc.ValidateSession(t.Context(), raw); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized after delete, got %v", err)
	}
	if err := env.svc.DeleteAdmin(t.Context(), a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	env := newTestService(t)

	created, err := env.svc.EnsureBootstrapAdmin(t.Context())
	if err != nil || created {
		t.Fatalf("no bootstrap configured: created=%v err=%v", created, err)
	}

	env.svc.cfg.Bootstrap.Username = "owner"
	env.svc.cfg.Bootstrap.Email = "owner@example.com"
	env.svc.cfg.Bootstrap.Password = "bootstrap password"
	created, err = env.svc.EnsureBootstrapAdmin(t.Context())
	if err != nil || !created {
		t.Fatalf("expected bootstrap admin: created=%v err=%v", created, err)
	}
	created, err = env.svc.EnsureBootstrapAdmin(t.Context())
	if err != nil || created {
		t.Fatalf("bootstrap must run once: created=%v err=%v", created, err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestService(t)
	mustAdmin(t, env)

	if _, _, err := env.svc.Login(t.Context(), "moderator", "nope nope nope", "", ""); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	raw, a, err := env.svc.Login(t.Context(), "MODERATOR", "correct horse battery", "10.0.0.1", "firefox")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	got, sess, err := env.svc.ValidateSession(t.Context(), raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ID != a.ID || sess.IPHint != "10.0.0.1" || sess.UserAgentHash != hashUA("firefox") {
		t.Fatalf("unexpected session %+v for %+v", sess, got)
	}
	if _, _, err := env.svc.ValidateSession(t.Context(), "garbage"); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for unknown token, got %v", err)
	}

	if err := env.svc.Logout(t.Context(), raw); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := env.svc.ValidateSession(t.Context(), raw); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized after logout, got %v", err)
	}
	if err := env.svc.Logout(t.Context(), "garbage"); err != nil {
		t.Fatalf("logout of unknown token must be a no-op: %v", err)
	}
}

func TestLogoutReportsStorageFailure(t *testing.T) {
	env := newTestService(t)
	mustAdmin(t, env)
	raw, _, err := env.svc.Login(t.Context(), "moderator", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_ = env.db.Close()
	if err := env.svc.Logout(t.Context(), raw); !errors.Is(err, store.ErrUnrecoverable) {
		t.Fatalf("a session that could not be revoked must be reported, got %v", err)
	}
	if err := env.svc.Logout(t.Context(), ""); err != nil {
		t.Fatalf("logout without a token must be a no-op: %v", err)
	}
}

func TestSessionWritesFailing(t *testing.T) {
	env := newTestService(t)
	mustAdmin(t, env)
	raw, _, err := env.svc.Login(t.Context(), "moderator", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	env.svc.log = zap.New(core)
	if _, err := env.db.ExecContext(t.Context(),
		`CREATE TRIGGER sessions_read_only BEFORE UPDATE ON sessions BEGIN SELECT RAISE(ABORT, 'sessions are read only'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, _, err := env.svc.ValidateSession(t.Context(), raw); err != nil {
		t.Fatalf("a failed idle refresh must not reject a valid session: %v", err)
	}
	if logs.FilterMessage("session idle expiry not extended").Len() != 1 {
		t.Fatalf("expected the failed refresh to be logged, got %v", logs.All())
	}

	if err := env.svc.Logout(t.Context(), raw); !errors.Is(err, store.ErrUnrecoverable) {
		t.Fatalf("expected the failed revoke to be returned, got %v", err)
	}
	if _, _, err := env.svc.ValidateSession(t.Context(), raw); err != nil {
		t.Fatalf("session stays live when its revoke failed: %v", err)
	}
}
