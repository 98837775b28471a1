package repository

import (
    "context"
    "database/sql"

    "github.com/encorehq/encore/internal/model"
)

// EventRepo provides access to event rows: the admission limits the
// queue engine reads on every submission, the join/operator codes used
// at the identity boundary, and the display configuration consumed by
// the public screen.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, name, event_type, join_code, operator_code_hash,
       cooldown_seconds, max_active_per_guest, display_mode, display_layout, is_active, created_at`

func scanEvent(scan func(dest ...interface{}) error) (*model.Event, error) {
    var ev model.Event
    err := scan(
        &ev.ID, &ev.Name, &ev.EventType, &ev.JoinCode, &ev.OperatorCodeHash,
        &ev.CooldownSeconds, &ev.MaxActivePerGuest, &ev.DisplayMode, &ev.DisplayLayout,
        &ev.IsActive, &ev.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &ev, nil
}

// GetByID loads one event or returns ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
    ev, err := scanEvent(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrEventNotFound
    }
    return ev, err
}

// GetByJoinCode resolves the short code guests enter when joining.
// Inactive events do not resolve.
func (r *EventRepo) GetByJoinCode(ctx context.Context, code string) (*model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE join_code = ? AND is_active = 1`
    ev, err := scanEvent(r.db.QueryRowContext(ctx, q, code).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrEventNotFound
    }
    return ev, err
}

// UpdateDisplay stores the operator-selected display mode and layout.
// The queue engine never reads these fields.
func (r *EventRepo) UpdateDisplay(ctx context.Context, id uint64, mode, layout string) error {
    const q = `UPDATE events SET display_mode = ?, display_layout = ? WHERE id = ?`
    result, err := r.db.ExecContext(ctx, q, mode, layout, id)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // RowsAffected is also 0 when the values did not change, so
        // confirm the event actually exists before reporting not found.
        var exists int
        if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
            return ErrEventNotFound
        } else if err != nil {
            return err
        }
    }
    return nil
}

// EventType returns the category of an event for the suggestion ranker.
func (r *EventRepo) EventType(ctx context.Context, id uint64) (string, error) {
    const q = `SELECT event_type FROM events WHERE id = ?`
    var t string
    err := r.db.QueryRowContext(ctx, q, id).Scan(&t)
    if err == sql.ErrNoRows {
        return "", ErrEventNotFound
    }
    return t, err
}
