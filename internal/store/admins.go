package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"webring/internal/models"
)

type adminRow struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r adminRow) model() models.Admin {
	return models.Admin(r)
}

const adminColumns = `SELECT id,username,email,password_hash,created_at FROM admins`

// AddAdmin stores an admin with an already computed password hash.
// Username or email collisions are AlreadyRegistered.
func (s *Store) AddAdmin(ctx context.Context, username, email, passwordHash string) (models.Admin, error) {
	const op = "add admin"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.q(`INSERT INTO admins(username,email,password_hash,created_at) VALUES(?,?,?,?)`),
		username, email, passwordHash, now()); err != nil {
		return models.Admin{}, classify(op, err)
	}
	return s.getAdmin(ctx, op, `username=?`, username)
}

func (s *Store) GetAdminByUsername(ctx context.Context, username string) (models.Admin, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.getAdmin(ctx, "get admin", `username=?`, username)
}

func (s *Store) GetAdminByID(ctx context.Context, id int64) (models.Admin, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.getAdmin(ctx, "get admin", `id=?`, id)
}

func (s *Store) getAdmin(ctx context.Context, op, where string, arg any) (models.Admin, error) {
	var row adminRow
	err := s.db.GetContext(ctx, &row, s.q(adminColumns+` WHERE `+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Admin{}, newError(KindNotFound, op, err)
	}
	if err != nil {
		return models.Admin{}, classify(op, err)
	}
	return row.model(), nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var rows []adminRow
	if err := s.db.SelectContext(ctx, &rows, adminColumns+` ORDER BY id ASC`); err != nil {
		return nil, classify("list admins", err)
	}
	out := make([]models.Admin, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM admins`); err != nil {
		return 0, classify("count admins", err)
	}
	return count, nil
}

// SetAdminPasswordHash stores a new password hash and revokes every live
// session of the admin in one transaction.
func (s *Store) SetAdminPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	const op = "set admin password"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.q(`UPDATE admins SET password_hash=? WHERE id=?`), passwordHash, id)
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return newError(KindNotFound, op, nil)
	}
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE sessions SET revoked_at=? WHERE admin_id=? AND revoked_at IS NULL`), now(), id); err != nil {
		return classify(op, err)
	}
	return classify(op, tx.Commit())
}

// DeleteAdmin removes the admin and their sessions. Approvals and denials
// they made stay, with the admin reference cleared.
func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	const op = "delete admin"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM sessions WHERE admin_id=?`,
		`UPDATE approvals SET admin_id=NULL WHERE admin_id=?`,
		`UPDATE denials SET admin_id=NULL WHERE admin_id=?`,
	} {
		if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
			return classify(op, err)
		}
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM admins WHERE id=?`), id)
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return newError(KindNotFound, op, nil)
	}
	return classify(op, tx.Commit())
}
