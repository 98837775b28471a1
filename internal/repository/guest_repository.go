package repository

import (
    "context"
    "database/sql"

    "github.com/google/uuid"

    "github.com/encorehq/encore/internal/model"
)

// GuestRepo provides access to guest rows. Guests come from two places:
// a pre-event import keyed by their badge UUID, or ad-hoc creation when
// somebody joins with the event code and a display name.
type GuestRepo struct {
    db *sql.DB
}

// NewGuestRepo returns a GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

const guestColumns = `id, event_id, public_id, name, created_at`

func scanGuest(scan func(dest ...interface{}) error) (*model.Guest, error) {
    var g model.Guest
    if err := scan(&g.ID, &g.EventID, &g.PublicID, &g.Name, &g.CreatedAt); err != nil {
        return nil, err
    }
    return &g, nil
}

// GetByID loads one guest or returns ErrGuestNotFound.
func (r *GuestRepo) GetByID(ctx context.Context, id uint64) (*model.Guest, error) {
    const q = `SELECT ` + guestColumns + ` FROM guests WHERE id = ?`
    g, err := scanGuest(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrGuestNotFound
    }
    return g, err
}

// GetByPublicID resolves a badge UUID within an event.
func (r *GuestRepo) GetByPublicID(ctx context.Context, eventID uint64, publicID string) (*model.Guest, error) {
    const q = `SELECT ` + guestColumns + ` FROM guests WHERE event_id = ? AND public_id = ?`
    g, err := scanGuest(r.db.QueryRowContext(ctx, q, eventID, publicID).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrGuestNotFound
    }
    return g, err
}

// Create inserts a new guest with a fresh badge UUID and returns the
// stored row.
func (r *GuestRepo) Create(ctx context.Context, eventID uint64, name string) (*model.Guest, error) {
    publicID := uuid.NewString()
    const q = `INSERT INTO guests (event_id, public_id, name) VALUES (?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, eventID, publicID, name)
    if err != nil {
        return nil, err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.GetByID(ctx, uint64(id))
}
