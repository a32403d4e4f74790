package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webring/internal/auth"
	"webring/internal/models"
	"webring/internal/store"
)

func hashUA(ua string) string {
	s := sha256.Sum256([]byte(ua))
	return hex.EncodeToString(s[:])
}

func (s *Service) Login(ctx context.Context, username, password, ip, userAgent string) (rawToken string, admin models.Admin, err error) {
	a, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", models.Admin{}, err
	}

	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", models.Admin{}, &store.Error{Kind: store.KindUnrecoverable, Op: "login", Err: err}
	}
	now := time.Now().UTC()
	sess := models.Session{
		ID:            uuid.NewString(),
		AdminID:       a.ID,
		TokenHash:     tokenHash,
		IPHint:        ip,
		UserAgentHash: hashUA(userAgent),
		ExpiresAt:     now.Add(s.cfg.Session.AbsoluteTimeout),
		IdleExpiresAt: now.Add(s.cfg.Session.IdleTimeout),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.st.CreateSession(ctx, sess); err != nil {
		return "", models.Admin{}, err
	}
	s.log.Info("admin logged in", zap.Object("admin", a), zap.String("ip", ip))
	return raw, a, nil
}

// ValidateSession resolves a cookie token to its admin and slides the idle
// expiry. Anything unusable is Unauthorized.
func (s *Service) ValidateSession(ctx context.Context, rawToken string) (models.Admin, models.Session, error) {
	const op = "validate session"
	unauthorized := &store.Error{Kind: store.KindUnauthorized, Op: op}
	if rawToken == "" {
		return models.Admin{}, models.Session{}, unauthorized
	}
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if err != nil {
		if store.KindOf(err) == store.KindNotFound {
			return models.Admin{}, models.Session{}, unauthorized
		}
		return models.Admin{}, models.Session{}, err
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) || now.After(sess.IdleExpiresAt) {
		return models.Admin{}, models.Session{}, unauthorized
	}
	if err := s.st.TouchSession(ctx, sess.ID, now.Add(s.cfg.Session.IdleTimeout)); err != nil {
		// the session is still valid, it just keeps its old idle expiry
		s.log.Warn("session idle expiry not extended", zap.String("session", sess.ID), zap.Error(err))
	}

	a, err := s.st.GetAdminByID(ctx, sess.AdminID)
	if err != nil {
		if store.KindOf(err) == store.KindNotFound {
			return models.Admin{}, models.Session{}, unauthorized
		}
		return models.Admin{}, models.Session{}, err
	}
	return a, sess, nil
}

// Logout revokes the session behind rawToken. Unknown tokens are ignored;
// storage failures are returned since the session would stay live.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if store.KindOf(err) == store.KindNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.st.RevokeSession(ctx, sess.ID); err != nil {
		return err
	}
	s.log.Debug("admin logged out", zap.Int64("admin_id", sess.AdminID))
	return nil
}

// PurgeSessions drops sessions that ended before now.
func (s *Service) PurgeSessions(ctx context.Context) (int64, error) {
	return s.st.PurgeExpiredSessions(ctx, time.Now().UTC())
}
