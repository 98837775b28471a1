package repository

import (
    "context"
    "database/sql/driver"
    "errors"
    "testing"
    "time"

    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/encorehq/encore/internal/queue"
)

func fastRetries(t *testing.T) {
    t.Helper()
    old := retryBackoff
    retryBackoff = time.Millisecond
    t.Cleanup(func() { retryBackoff = old })
}

var errDeadlock = &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}

func TestWithRetrySuccessPassesThrough(t *testing.T) {
    calls := 0
    err := withRetry(context.Background(), func() error {
        calls++
        return nil
    })
    require.NoError(t, err)
    assert.Equal(t, 1, calls)
}

func TestWithRetryPermanentErrorNotRetried(t *testing.T) {
    boom := errors.New("duplicate entry")
    calls := 0
    err := withRetry(context.Background(), func() error {
        calls++
        return boom
    })
    assert.Equal(t, boom, err)
    assert.Equal(t, 1, calls)
    assert.NotErrorIs(t, err, queue.ErrStoreUnavailable)
}

func TestWithRetryTransientThenSuccess(t *testing.T) {
    fastRetries(t)
    calls := 0
    err := withRetry(context.Background(), func() error {
        calls++
        if calls == 1 {
            return errDeadlock
        }
        return nil
    })
    require.NoError(t, err)
    assert.Equal(t, 2, calls)
}

func TestWithRetryExhaustionWrapsStoreUnavailable(t *testing.T) {
    fastRetries(t)
    calls := 0
    err := withRetry(context.Background(), func() error {
        calls++
        return driver.ErrBadConn
    })
    assert.Equal(t, storeAttempts, calls)
    assert.ErrorIs(t, err, queue.ErrStoreUnavailable)
    assert.Contains(t, err.Error(), driver.ErrBadConn.Error())
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
    fastRetries(t)
    ctx, cancel := context.WithCancel(context.Background())
    calls := 0
    err := withRetry(ctx, func() error {
        calls++
        cancel()
        return errDeadlock
    })
    assert.ErrorIs(t, err, context.Canceled)
    assert.Equal(t, 1, calls)
}

func TestIsTransientClassification(t *testing.T) {
    cases := []struct {
        name      string
        err       error
        transient bool
    }{
        {"bad conn", driver.ErrBadConn, true},
        {"invalid conn", mysql.ErrInvalidConn, true},
        {"deadlock 1213", errDeadlock, true},
        {"lock wait timeout 1205", &mysql.MySQLError{Number: 1205}, true},
        {"duplicate key 1062", &mysql.MySQLError{Number: 1062}, false},
        {"plain error", errors.New("syntax error"), false},
        {"context deadline", context.DeadlineExceeded, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.transient, isTransient(tc.err))
        })
    }
}
