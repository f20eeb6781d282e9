package response

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrClass is the coarse failure category surfaced to forms when a
// mutation is rejected by the database.
type ErrClass string

const (
	ErrClassPermission ErrClass = "permission"
	ErrClassSchema     ErrClass = "schema"
	ErrClassGeneric    ErrClass = "generic"
)

// Message returns the user-facing text for the class.
func (e ErrClass) Message() string {
	switch e {
	case ErrClassPermission:
		return "permission denied: your role does not allow this operation"
	case ErrClassSchema:
		return "schema mismatch: the request does not match the current database schema"
	default:
		return "operation failed, please try again"
	}
}

// Classify maps a database error onto a failure category. Postgres error
// codes are authoritative; string matching covers errors that arrive
// already flattened.
func Classify(err error) ErrClass {
	if err == nil {
		return ErrClassGeneric
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501": // insufficient_privilege
			return ErrClassPermission
		case "42703", "42P01", "42804": // undefined_column, undefined_table, datatype_mismatch
			return ErrClassSchema
		}
		if strings.HasPrefix(pgErr.Code, "23") { // integrity_constraint_violation
			return ErrClassGeneric
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "row-level security"):
		return ErrClassPermission
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "column"):
		return ErrClassSchema
	}
	return ErrClassGeneric
}
