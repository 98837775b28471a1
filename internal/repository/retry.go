package repository

import (
    "context"
    "database/sql/driver"
    "errors"
    "fmt"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/encorehq/encore/internal/queue"
)

// storeAttempts bounds how often a transient failure is retried before
// it is surfaced as queue.ErrStoreUnavailable.
const storeAttempts = 3

// retryBackoff is the delay before the first retry; it doubles on each
// further attempt.
var retryBackoff = 50 * time.Millisecond

// withRetry runs op, retrying transient store failures with backoff.
// Each op invocation is one complete transaction, so a retry never
// observes partial state. Non-transient errors and context cancellation
// pass through unchanged; exhausting the attempts wraps the last error
// in queue.ErrStoreUnavailable.
func withRetry(ctx context.Context, op func() error) error {
    delay := retryBackoff
    var err error
    for attempt := 0; attempt < storeAttempts; attempt++ {
        if attempt > 0 {
            select {
            case <-ctx.Done():
                return ctx.Err()
            case <-time.After(delay):
            }
            delay *= 2
        }
        err = op()
        if err == nil || !isTransient(err) {
            return err
        }
    }
    return fmt.Errorf("%w: %v", queue.ErrStoreUnavailable, err)
}

// isTransient reports whether an error is worth retrying: a connection
// the pool should discard, a lock wait timeout or a deadlock victim.
// Everything else (constraint violations, bad SQL, context errors) is
// permanent for the statement that produced it.
func isTransient(err error) bool {
    if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
        return true
    }
    var my *mysql.MySQLError
    if errors.As(err, &my) {
        switch my.Number {
        case 1205, 1213: // lock wait timeout, deadlock victim
            return true
        }
    }
    return false
}
