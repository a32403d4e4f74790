package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"webring/internal/auth"
	"webring/internal/config"
	"webring/internal/db"
	"webring/internal/notify"
	"webring/internal/store"
)

type fakeVerifier struct {
	err  error
	seen []string
}

func (f *fakeVerifier) Verify(ctx context.Context, siteURL string) error {
	f.seen = append(f.seen, siteURL)
	return f.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Decision
	err  error
}

func (r *recordingNotifier) SiteDecided(ctx context.Context, d notify.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, d)
	return r.err
}

type testEnv struct {
	svc      *Service
	db       *sqlx.DB
	st       *store.Store
	verifier *fakeVerifier
	notifier *recordingNotifier
}

func newTestService(t *testing.T) testEnv {
	t.Helper()
	sqdb, err := db.Open(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "ring.db"), db.PoolOptions{MinConns: 1, MaxConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplySchema(t.Context(), sqdb); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	cfg := config.Default()
	cfg.Auth.HashWorkers = 2
	cfg.Ring.Name = "test ring"

	hasher := auth.NewHasher(cfg.Auth.HashWorkers)
	t.Cleanup(hasher.Close)

	env := testEnv{
		db:       sqdb,
		st:       store.New(sqdb, store.WithAcquireTimeout(5*time.Second)),
		verifier: &fakeVerifier{},
		notifier: &recordingNotifier{},
	}
	env.svc = New(cfg, env.st, hasher, env.verifier, env.notifier)
	return env
}

func TestValidatePasswordPolicy(t *testing.T) {
	svc := &Service{cfg: config.Config{Auth: config.Auth{PasswordMinLength: 12, PasswordMaxLength: 20}}}
	if err := svc.ValidatePassword("short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short password to fail, got %v", err)
	}
	if err := svc.ValidatePassword("this one is far too long"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected long password to fail, got %v", err)
	}
	if err := svc.ValidatePassword("            "); err == nil {
		t.Fatalf("expected blank password to fail")
	}
	if err := svc.ValidatePassword("long enough pw"); err != nil {
		t.Fatalf("expected password to pass: %v", err)
	}
}

func TestInputMessage(t *testing.T) {
	if got := InputMessage(invalid("url %q is bad", "x")); got != `url "x" is bad` {
		t.Fatalf("InputMessage=%q", got)
	}
}
