package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"webring/internal/auth"
	"webring/internal/config"
	"webring/internal/notify"
	"webring/internal/store"
	"webring/internal/verify"
)

// ErrInvalidInput wraps every validation failure; the message after the
// prefix is safe to show to the caller.
var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	cfg      config.Config
	st       *store.Store
	hasher   *auth.Hasher
	verifier verify.Verifier
	notifier notify.Notifier
	log      *zap.Logger
}

func New(cfg config.Config, st *store.Store, hasher *auth.Hasher, verifier verify.Verifier, notifier notify.Notifier) *Service {
	if verifier == nil {
		verifier = verify.NoopVerifier{}
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{
		cfg:      cfg,
		st:       st,
		hasher:   hasher,
		verifier: verifier,
		notifier: notifier,
		log:      zap.L().Named("service"),
	}
}

func (s *Service) Config() config.Config { return s.cfg }

func (s *Service) Ready(ctx context.Context) error {
	return s.st.Ping(ctx)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InputMessage strips the ErrInvalidInput prefix for display.
func InputMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}

func (s *Service) ValidatePassword(pw string) error {
	if strings.TrimSpace(pw) == "" {
		return invalid("password is required")
	}
	if len(pw) < s.cfg.Auth.PasswordMinLength {
		return invalid("password must be at least %d characters", s.cfg.Auth.PasswordMinLength)
	}
	if len(pw) > s.cfg.Auth.PasswordMaxLength {
		return invalid("password must be at most %d characters", s.cfg.Auth.PasswordMaxLength)
	}
	return nil
}

func (s *Service) hash(ctx context.Context, op, pw string) (string, error) {
	h, err := s.hasher.Hash(ctx, pw)
	if err != nil {
		return "", &store.Error{Kind: store.KindHashing, Op: op, Err: err}
	}
	return h, nil
}

// checkPassword verifies pw against the admin's stored hash. A mismatch is
// Unauthorized; a broken hash or a stopped pool is a hashing failure.
func (s *Service) checkPassword(ctx context.Context, op, encoded, pw string) error {
	ok, err := s.hasher.Verify(ctx, encoded, pw)
	if err != nil {
		return &store.Error{Kind: store.KindHashing, Op: op, Err: err}
	}
	if !ok {
		return &store.Error{Kind: store.KindUnauthorized, Op: op}
	}
	return nil
}
