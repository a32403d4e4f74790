package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Kind int

const (
	KindUnrecoverable Kind = iota
	KindAlreadyRegistered
	KindNotFound
	KindNotApproved
	KindUnauthorized
	KindAlreadyDecided
	KindHashing
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyRegistered:
		return "already registered"
	case KindNotFound:
		return "not found"
	case KindNotApproved:
		return "not approved"
	case KindUnauthorized:
		return "unauthorized"
	case KindAlreadyDecided:
		return "already decided"
	case KindHashing:
		return "hashing failed"
	default:
		return "unrecoverable"
	}
}

// Error is the only error type returned across the store boundary. Err
// holds the driver error for logging; Error() never needs to be shown to
// end users, callers switch on Kind instead.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work
// with errors.Is regardless of Op and Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnrecoverable     = &Error{Kind: KindUnrecoverable}
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrNotApproved       = &Error{Kind: KindNotApproved}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrAlreadyDecided    = &Error{Kind: KindAlreadyDecided}
	ErrHashing           = &Error{Kind: KindHashing}
)

// KindOf reports the kind of err. Errors that never passed through the
// store are unrecoverable.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnrecoverable
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify turns a driver error into a tagged store error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if isUniqueViolation(err) {
		return newError(KindAlreadyRegistered, op, err)
	}
	return newError(KindUnrecoverable, op, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
