package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"webring/internal/models"
)

type sessionRow struct {
	ID            string       `db:"id"`
	AdminID       int64        `db:"admin_id"`
	TokenHash     string       `db:"token_hash"`
	IPHint        string       `db:"ip_hint"`
	UserAgentHash string       `db:"user_agent_hash"`
	ExpiresAt     time.Time    `db:"expires_at"`
	IdleExpiresAt time.Time    `db:"idle_expires_at"`
	CreatedAt     time.Time    `db:"created_at"`
	LastSeenAt    time.Time    `db:"last_seen_at"`
	RevokedAt     sql.NullTime `db:"revoked_at"`
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO sessions(id,admin_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at) VALUES(?,?,?,?,?,?,?,?,?)`),
		sess.ID, sess.AdminID, sess.TokenHash, sess.IPHint, sess.UserAgentHash, sess.ExpiresAt, sess.IdleExpiresAt, sess.CreatedAt, sess.LastSeenAt,
	)
	return classify("create session", err)
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	const op = "get session"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		s.q(`SELECT id,admin_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at,revoked_at FROM sessions WHERE token_hash=?`),
		tokenHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, newError(KindNotFound, op, err)
	}
	if err != nil {
		return models.Session{}, classify(op, err)
	}
	sess := models.Session{
		ID:            row.ID,
		AdminID:       row.AdminID,
		TokenHash:     row.TokenHash,
		IPHint:        row.IPHint,
		UserAgentHash: row.UserAgentHash,
		ExpiresAt:     row.ExpiresAt,
		IdleExpiresAt: row.IdleExpiresAt,
		CreatedAt:     row.CreatedAt,
		LastSeenAt:    row.LastSeenAt,
	}
	if row.RevokedAt.Valid {
		t := row.RevokedAt.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, idleExpiry time.Time) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.q(`UPDATE sessions SET last_seen_at=?, idle_expires_at=? WHERE id=?`), now(), idleExpiry, id)
	return classify("touch session", err)
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.q(`UPDATE sessions SET revoked_at=? WHERE id=?`), now(), id)
	return classify("revoke session", err)
}

// PurgeExpiredSessions deletes sessions that expired or were revoked
// before cutoff and reports how many went.
func (s *Store) PurgeExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "purge sessions"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM sessions WHERE expires_at < ? OR idle_expires_at < ? OR revoked_at < ?`),
		cutoff, cutoff, cutoff,
	)
	if err != nil {
		return 0, classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}
