package drafts

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a draft does not exist or belongs to someone else.
	ErrNotFound = errors.New("draft not found")

	// ErrConflict is returned when the edited post already has another draft.
	ErrConflict = errors.New("post already has a draft")
)

// isUniqueViolation reports whether err is a unique constraint violation of
// PostgreSQL (code 23505) or sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}
