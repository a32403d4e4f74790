package service

import (
	"context"
	"errors"
	netmail "net/mail"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"webring/internal/models"
	"webring/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{1,31}$`)

func normalizeUsername(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func (s *Service) AddAdmin(ctx context.Context, username, email, password string) (models.Admin, error) {
	username = normalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return models.Admin{}, invalid("username must be 2-32 characters of a-z, 0-9, '.', '_' or '-'")
	}
	addr, err := netmail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return models.Admin{}, invalid("email is not valid")
	}
	if err := s.ValidatePassword(password); err != nil {
		return models.Admin{}, err
	}
	h, err := s.hash(ctx, "add admin", password)
	if err != nil {
		return models.Admin{}, err
	}
	a, err := s.st.AddAdmin(ctx, username, strings.ToLower(addr.Address), h)
	if err != nil {
		return models.Admin{}, err
	}
	s.log.Info("admin added", zap.Object("admin", a))
	return a, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return s.st.ListAdmins(ctx)
}

// DeleteAdmin removes the account and every session it holds. Decisions
// the admin made stay on record without an author.
func (s *Service) DeleteAdmin(ctx context.Context, id int64) error {
	if err := s.st.DeleteAdmin(ctx, id); err != nil {
		return err
	}
	s.log.Info("admin deleted", zap.Int64("admin_id", id))
	return nil
}

// Authenticate returns Unauthorized for an unknown username and for a wrong
// password alike.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.Admin, error) {
	const op = "authenticate"
	a, err := s.st.GetAdminByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, store.ErrNotFound) {
		return models.Admin{}, &store.Error{Kind: store.KindUnauthorized, Op: op}
	}
	if err != nil {
		return models.Admin{}, err
	}
	if err := s.checkPassword(ctx, op, a.PasswordHash, password); err != nil {
		return models.Admin{}, err
	}
	return a, nil
}

// ChangePassword re-authenticates with current before storing a hash of
// next. On success every session of the admin is revoked.
func (s *Service) ChangePassword(ctx context.Context, adminID int64, current, next string) error {
	const op = "change password"
	a, err := s.st.GetAdminByID(ctx, adminID)
	if err != nil {
		return err
	}
	if err := s.checkPassword(ctx, op, a.PasswordHash, current); err != nil {
		return err
	}
	if err := s.ValidatePassword(next); err != nil {
		return err
	}
	h, err := s.hash(ctx, op, next)
	if err != nil {
		return err
	}
	if err := s.st.SetAdminPasswordHash(ctx, a.ID, h); err != nil {
		return err
	}
	s.log.Info("admin password changed", zap.Object("admin", a))
	return nil
}

// EnsureBootstrapAdmin creates the configured admin when the ring has none.
// It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context) (bool, error) {
	b := s.cfg.Bootstrap
	if strings.TrimSpace(b.Username) == "" {
		return false, nil
	}
	n, err := s.st.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.AddAdmin(ctx, b.Username, b.Email, b.Password); err != nil {
		return false, err
	}
	return true, nil
}
