package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"webring/internal/models"
)

const siteColumns = `SELECT s.id, s.root_url, s.email, s.created_at,
	s.approval_id, a.admin_id AS approved_by, a.approved_at,
	s.denial_id, d.admin_id AS denied_by, d.denied_at, d.reason
FROM sites s
LEFT JOIN approvals a ON a.id = s.approval_id
LEFT JOIN denials d ON d.id = s.denial_id`

type siteRow struct {
	ID         int64          `db:"id"`
	URL        string         `db:"root_url"`
	Email      string         `db:"email"`
	CreatedAt  time.Time      `db:"created_at"`
	ApprovalID sql.NullString `db:"approval_id"`
	ApprovedBy sql.NullInt64  `db:"approved_by"`
	ApprovedAt sql.NullTime   `db:"approved_at"`
	DenialID   sql.NullString `db:"denial_id"`
	DeniedBy   sql.NullInt64  `db:"denied_by"`
	DeniedAt   sql.NullTime   `db:"denied_at"`
	Reason     sql.NullString `db:"reason"`
}

func (r siteRow) model() models.Site {
	site := models.Site{ID: r.ID, URL: r.URL, Email: r.Email, CreatedAt: r.CreatedAt, Status: models.SitePending}
	switch {
	case r.ApprovalID.Valid:
		site.Status = models.SiteApproved
		site.Decision = &models.Decision{ID: r.ApprovalID.String, AdminID: nullInt64(r.ApprovedBy), At: r.ApprovedAt.Time}
	case r.DenialID.Valid:
		site.Status = models.SiteDenied
		site.Decision = &models.Decision{ID: r.DenialID.String, AdminID: nullInt64(r.DeniedBy), At: r.DeniedAt.Time, Reason: r.Reason.String}
	}
	return site
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// AddSite registers url as a pending site.
func (s *Store) AddSite(ctx context.Context, url, email string) (models.Site, error) {
	const op = "add site"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.q(`INSERT INTO sites(root_url,email,created_at) VALUES(?,?,?)`), url, email, now()); err != nil {
		return models.Site{}, classify(op, err)
	}
	return s.getSite(ctx, op, url)
}

func (s *Store) GetSite(ctx context.Context, url string) (models.Site, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.getSite(ctx, "get site", url)
}

func (s *Store) getSite(ctx context.Context, op, url string) (models.Site, error) {
	var row siteRow
	err := s.db.GetContext(ctx, &row, s.q(siteColumns+` WHERE s.root_url=?`), url)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Site{}, newError(KindNotFound, op, err)
	}
	if err != nil {
		return models.Site{}, classify(op, err)
	}
	return row.model(), nil
}

// RemoveSite deletes url whatever its status. The approval or denial row
// it pointed at is kept as audit history.
func (s *Store) RemoveSite(ctx context.Context, url string) error {
	const op = "remove site"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM sites WHERE root_url=?`), url)
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
	return nil
}

// ApproveSite records an approval by adminID and links it to the pending
// site url in one transaction.
func (s *Store) ApproveSite(ctx context.Context, url string, adminID int64) (models.Site, error) {
	id := uuid.NewString()
	return s.decide(ctx, "approve site", url,
		`INSERT INTO approvals(id,admin_id,approved_at) VALUES(?,?,?)`, []any{id, adminID, now()},
		`UPDATE sites SET approval_id=? WHERE root_url=? AND approval_id IS NULL AND denial_id IS NULL`, id)
}

// DenySite records a denial with reason by adminID and links it to the
// pending site url in one transaction.
func (s *Store) DenySite(ctx context.Context, url, reason string, adminID int64) (models.Site, error) {
	id := uuid.NewString()
	return s.decide(ctx, "deny site", url,
		`INSERT INTO denials(id,admin_id,reason,denied_at) VALUES(?,?,?,?)`, []any{id, adminID, reason, now()},
		`UPDATE sites SET denial_id=? WHERE root_url=? AND approval_id IS NULL AND denial_id IS NULL`, id)
}

// decide inserts the audit row and links it. Only pending sites can be
// decided; a missing site is NotFound and a decided one AlreadyDecided,
// and in both cases the audit insert is rolled back.
func (s *Store) decide(ctx context.Context, op, url, insertSQL string, insertArgs []any, linkSQL, recordID string) (models.Site, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Site{}, classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(insertSQL), insertArgs...); err != nil {
		return models.Site{}, classify(op, err)
	}
	res, err := tx.ExecContext(ctx, s.q(linkSQL), recordID, url)
	if err != nil {
		return models.Site{}, classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Site{}, classify(op, err)
	}
	if n == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists, s.q(`SELECT COUNT(1) FROM sites WHERE root_url=?`), url); err != nil {
			return models.Site{}, classify(op, err)
		}
		if exists == 0 {
			return models.Site{}, newError(KindNotFound, op, nil)
		}
		return models.Site{}, newError(KindAlreadyDecided, op, nil)
	}
	if err := tx.Commit(); err != nil {
		return models.Site{}, classify(op, err)
	}
	return s.getSite(ctx, op, url)
}

func (s *Store) ListApproved(ctx context.Context) ([]models.Site, error) {
	return s.listSites(ctx, "list approved", `s.approval_id IS NOT NULL`)
}

func (s *Store) ListDenied(ctx context.Context) ([]models.Site, error) {
	return s.listSites(ctx, "list denied", `s.denial_id IS NOT NULL`)
}

func (s *Store) ListPending(ctx context.Context) ([]models.Site, error) {
	return s.listSites(ctx, "list pending", `s.approval_id IS NULL AND s.denial_id IS NULL`)
}

// ListSites dispatches on status.
func (s *Store) ListSites(ctx context.Context, status models.SiteStatus) ([]models.Site, error) {
	switch status {
	case models.SiteApproved:
		return s.ListApproved(ctx)
	case models.SiteDenied:
		return s.ListDenied(ctx)
	default:
		return s.ListPending(ctx)
	}
}

func (s *Store) listSites(ctx context.Context, op, where string) ([]models.Site, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var rows []siteRow
	if err := s.db.SelectContext(ctx, &rows, siteColumns+` WHERE `+where+` ORDER BY s.id ASC`); err != nil {
		return nil, classify(op, err)
	}
	out := make([]models.Site, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}
