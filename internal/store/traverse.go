package store

import (
	"context"
	"database/sql"
	"errors"
)

// Approved sites form a line ordered by id. There is no wraparound: the
// neighbour past either end is NotFound. A current url that is not an
// approved site is NotApproved.

func (s *Store) Next(ctx context.Context, currentURL string) (string, error) {
	return s.neighbour(ctx, "next site", currentURL,
		`SELECT root_url FROM sites WHERE approval_id IS NOT NULL AND id > ? ORDER BY id ASC LIMIT 1`)
}

func (s *Store) Prev(ctx context.Context, currentURL string) (string, error) {
	return s.neighbour(ctx, "previous site", currentURL,
		`SELECT root_url FROM sites WHERE approval_id IS NOT NULL AND id < ? ORDER BY id DESC LIMIT 1`)
}

func (s *Store) neighbour(ctx context.Context, op, currentURL, query string) (string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var current int64
	err := s.db.GetContext(ctx, &current, s.q(`SELECT id FROM sites WHERE root_url=? AND approval_id IS NOT NULL`), currentURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", newError(KindNotApproved, op, nil)
	}
	if err != nil {
		return "", classify(op, err)
	}

	var url string
	err = s.db.GetContext(ctx, &url, s.q(query), current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", newError(KindNotFound, op, nil)
	}
	if err != nil {
		return "", classify(op, err)
	}
	return url, nil
}

// Random returns a uniformly chosen approved site.
func (s *Store) Random(ctx context.Context) (string, error) {
	const op = "random site"
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var url string
	err := s.db.GetContext(ctx, &url, `SELECT root_url FROM sites WHERE approval_id IS NOT NULL ORDER BY `+s.randomFunc+` LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", newError(KindNotFound, op, nil)
	}
	if err != nil {
		return "", classify(op, err)
	}
	return url, nil
}
