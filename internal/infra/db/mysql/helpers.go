package mysql

import (
	"database/sql"
	"errors"
)

// mapNoRows swaps sql.ErrNoRows for the domain's not-found error.
func mapNoRows(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
