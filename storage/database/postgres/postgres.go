// Package postgres implements the domain repositories on PostgreSQL via
// sqlx. Each repository converts between its domain model and a local row
// struct carrying the column mapping.
package postgres

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "unique_violation"

// trapErr maps sql.ErrNoRows to notFound and unique-constraint violations to
// conflict; anything else is wrapped with msg.
func trapErr(err error, msg string, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return notFound
	}
	if conflict != nil && isUniqueViolation(err) {
		return conflict
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == uniqueViolation
	}
	return false
}
