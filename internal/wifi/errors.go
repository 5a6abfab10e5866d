package wifi

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError reports malformed query input. The operation is not attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Extensions is picked up by the GraphQL layer.
func (e *ValidationError) Extensions() map[string]any {
	return map[string]any{"code": "BAD_USER_INPUT", "field": e.Field}
}

// StoreError wraps a failed store round-trip. Retryable errors are transient
// (connectivity, timeouts, serialization) and every query here is safe to retry.
type StoreError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Extensions() map[string]any {
	code := "STORE_ERROR"
	if e.Retryable {
		code = "STORE_UNAVAILABLE"
	}
	return map[string]any{"code": code, "retryable": e.Retryable}
}

// IsRetryable reports whether err is a StoreError marked retryable.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Retryable
}

// Postgres SQLSTATE classes that indicate a transient condition.
var retryableClasses = map[string]struct{}{
	"08": {}, // connection exception
	"40": {}, // transaction rollback (serialization, deadlock)
	"53": {}, // insufficient resources
	"57": {}, // operator intervention (includes query_canceled)
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Retryable: retryable(err), Err: err}
}

func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		_, ok := retryableClasses[pgErr.Code[:2]]
		return ok
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
