package errors

// Maps postgres failures onto ErrorCode and retry semantics.

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the pipeline distinguishes
const (
	sqlstateUniqueViolation      = "23505"
	sqlstateForeignKeyViolation  = "23503"
	sqlstateNotNullViolation     = "23502"
	sqlstateCheckViolation       = "23514"
	sqlstateStringTruncation     = "22001"
	sqlstateInvalidText          = "22P02"
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlock             = "40P01"
	sqlstateLockNotAvailable     = "55P03"
	sqlstateReadOnlyTx           = "25006"
	sqlstateCannotConnectNow     = "57P03"
)

// FromPostgres wraps err with the ErrorCode its SQLSTATE maps to.
// Non-postgres errors become plain DB errors. Nil stays nil.
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, codeForPG(err), msg)
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, codeForPG(err), fmt.Sprintf(format, a...))
}

func codeForPG(err error) ErrorCode {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeDB
	}
	switch pgErr.Code {
	case sqlstateUniqueViolation:
		return ErrorCodeDuplicateKey
	case sqlstateForeignKeyViolation, sqlstateStringTruncation, sqlstateInvalidText:
		return ErrorCodeInvalidArgument
	case sqlstateNotNullViolation, sqlstateCheckViolation:
		return ErrorCodeValidation
	case sqlstateReadOnlyTx, sqlstateCannotConnectNow:
		return ErrorCodeUnavailable
	default:
		return ErrorCodeDB
	}
}

// retryText covers transient failures pgx reports as bare strings rather
// than PgError, mostly around commit and connection teardown
var retryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"serialization failure",
	"canceling statement due to statement timeout",
	"canceling statement due to lock timeout",
	"could not obtain lock on row",
	"terminating connection due to administrator command",
}

// IsRetryable reports whether err is server-side contention worth retrying.
// Local cancellation is never retryable; the caller owns its deadline.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	root := Root(err)
	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlock, sqlstateLockNotAvailable:
			return true
		}
		return false
	}

	s := strings.ToLower(root.Error())
	for _, pat := range retryText {
		if strings.Contains(s, pat) {
			return true
		}
	}
	return false
}
