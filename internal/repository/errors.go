package repository

import (
	"errors"

	"lingoquest/internal/database"
)

// ErrDuplicate is returned when an insert hits a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// pick returns q when set, the repository's own connection otherwise
func pick(q database.DBTX, db *database.DB) database.DBTX {
	if q != nil {
		return q
	}
	return db
}
