package persistence

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"tracker_server/pkg/apperr"
)

// Postgres error codes that warrant a retry rather than a failure report.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// translate maps a driver error onto the application error taxonomy.
// Transient failures (timeouts, dropped connections, serialization
// conflicts) are marked retryable; the caller may re-run the whole
// invocation because every write shares one transaction.
func translate(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout(operation)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperr.StoreTransient(operation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return apperr.StoreTransient(operation, err)
		case pgUniqueViolation:
			return apperr.AlreadyExists(operation).WithError(err)
		}
	}
	return apperr.DatabaseError(operation, err)
}
