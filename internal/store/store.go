package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"webring/internal/db"
)

// Store is the only component that reads or writes ring rows. It is safe
// for concurrent use; the pool behind it is shared by every request.
type Store struct {
	db             *sqlx.DB
	acquireTimeout time.Duration
	randomFunc     string
}

type Option func(*Store)

// WithAcquireTimeout bounds operations whose context carries no deadline.
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Store) { s.acquireTimeout = d }
}

func New(conn *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: conn, randomFunc: "random()"}
	if db.DialectOf(conn.DriverName()) == db.MySQL {
		s.randomFunc = "RAND()"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.acquireTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.acquireTimeout)
}

func (s *Store) q(query string) string { return s.db.Rebind(query) }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return classify("ping", s.db.PingContext(ctx))
}

func now() time.Time { return time.Now().UTC() }
