package internal

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes Postgres raises when a concurrent writer wins a
// check-then-write race: a serialization failure under SERIALIZABLE, or a
// unique/exclusion constraint rejecting the insert.
const (
	pgSerializationFailure = "40001"
	pgUniqueViolation      = "23505"
	pgExclusionViolation   = "23P01"
)

// MapConflict translates storage-level conflict signals into the domain
// conflict error. Any other error, including an already-typed AppError,
// passes through unchanged.
func MapConflict(err, conflict error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgUniqueViolation, pgExclusionViolation:
			return conflict
		}
	}
	return err
}
