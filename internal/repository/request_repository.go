package repository

import (
    "context"
    "database/sql"

    "github.com/encorehq/encore/internal/model"
    "github.com/encorehq/encore/internal/queue"
)

// RequestRepo is the MySQL implementation of queue.Store. Every method
// is one transaction, so the multi-row mutations the engine performs
// (insert with allocation, transition with recompaction, reorder) commit
// or fail as a whole. All timestamps are stored in UTC.
type RequestRepo struct {
    db *sql.DB
}

// NewRequestRepo returns a RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

// DB exposes the underlying handle for callers that need to compose
// transactions across repositories.
func (r *RequestRepo) DB() *sql.DB { return r.db }

const requestColumns = `id, event_id, guest_id, catalog_song_id, video_id, title, artist,
       status, turn_number, queue_position, created_at, called_at`

// scanRequest reads one requests row from any row scanner.
func scanRequest(scan func(dest ...interface{}) error) (*model.Request, error) {
    var req model.Request
    var songID sql.NullInt64
    var videoID, artist sql.NullString
    var calledAt sql.NullTime
    err := scan(
        &req.ID, &req.EventID, &req.GuestID, &songID, &videoID, &req.Title, &artist,
        &req.Status, &req.TurnNumber, &req.QueuePosition, &req.CreatedAt, &calledAt,
    )
    if err != nil {
        return nil, err
    }
    if songID.Valid {
        v := uint64(songID.Int64)
        req.CatalogSongID = &v
    }
    if videoID.Valid {
        v := videoID.String
        req.VideoID = &v
    }
    if artist.Valid {
        v := artist.String
        req.Artist = &v
    }
    if calledAt.Valid {
        t := calledAt.Time.UTC()
        req.CalledAt = &t
    }
    return &req, nil
}

// CreateRequest inserts a new request, allocating the next turn number
// and the position at the end of the active set inside one transaction.
// The allocation query locks the event's rows so concurrent admissions
// from other processes cannot collide on a turn number. Transient
// failures (deadlock victim, dropped connection) are retried a bounded
// number of times; each attempt is a fresh transaction.
func (r *RequestRepo) CreateRequest(ctx context.Context, req *model.Request) error {
    return withRetry(ctx, func() error { return r.createRequest(ctx, req) })
}

func (r *RequestRepo) createRequest(ctx context.Context, req *model.Request) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const allocQ = `SELECT COALESCE(MAX(turn_number), 0),
                           COALESCE(SUM(status IN ('QUEUED','CALLED')), 0)
                    FROM requests WHERE event_id = ? FOR UPDATE`
    var maxTurn, activeCount int
    if err := tx.QueryRowContext(ctx, allocQ, req.EventID).Scan(&maxTurn, &activeCount); err != nil {
        return err
    }
    req.TurnNumber = maxTurn + 1
    req.QueuePosition = activeCount + 1
    req.Status = model.StatusQueued

    const insQ = `INSERT INTO requests
                  (event_id, guest_id, catalog_song_id, video_id, title, artist, status, turn_number, queue_position)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, insQ,
        req.EventID, req.GuestID, req.CatalogSongID, req.VideoID, req.Title, req.Artist,
        req.Status, req.TurnNumber, req.QueuePosition,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    req.ID = uint64(id)

    // Read back created_at so the caller sees the DB default.
    const sel = `SELECT created_at FROM requests WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, req.ID).Scan(&req.CreatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// RequestByID loads one request. queue.ErrNotFound is returned when no
// row exists.
func (r *RequestRepo) RequestByID(ctx context.Context, id uint64) (*model.Request, error) {
    const q = `SELECT ` + requestColumns + ` FROM requests WHERE id = ?`
    req, err := scanRequest(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, queue.ErrNotFound
    }
    return req, err
}

// ActiveSet returns the event's QUEUED and CALLED requests ordered by
// queue position.
func (r *RequestRepo) ActiveSet(ctx context.Context, eventID uint64) ([]model.Request, error) {
    const q = `SELECT ` + requestColumns + ` FROM requests
               WHERE event_id = ? AND status IN ('QUEUED','CALLED')
               ORDER BY queue_position`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Request, 0)
    for rows.Next() {
        req, err := scanRequest(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *req)
    }
    return out, rows.Err()
}

// OnStage returns the event's ON_STAGE request, or nil when nobody is
// performing.
func (r *RequestRepo) OnStage(ctx context.Context, eventID uint64) (*model.Request, error) {
    const q = `SELECT ` + requestColumns + ` FROM requests
               WHERE event_id = ? AND status = 'ON_STAGE'
               ORDER BY called_at DESC LIMIT 1`
    req, err := scanRequest(r.db.QueryRowContext(ctx, q, eventID).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return req, err
}

// GuestStats returns the admission inputs for one guest: how many of
// their requests are in QUEUED/CALLED/ON_STAGE and when their newest
// request was admitted.
func (r *RequestRepo) GuestStats(ctx context.Context, eventID, guestID uint64) (queue.GuestStats, error) {
    const q = `SELECT COALESCE(SUM(status IN ('QUEUED','CALLED','ON_STAGE')), 0), MAX(created_at)
               FROM requests WHERE event_id = ? AND guest_id = ?`
    var stats queue.GuestStats
    var last sql.NullTime
    if err := r.db.QueryRowContext(ctx, q, eventID, guestID).Scan(&stats.ActiveCount, &last); err != nil {
        return queue.GuestStats{}, err
    }
    if last.Valid {
        t := last.Time.UTC()
        stats.LastAdmittedAt = &t
    }
    return stats, nil
}

// RequestsByGuest returns every request a guest submitted at an event,
// newest first, history included.
func (r *RequestRepo) RequestsByGuest(ctx context.Context, eventID, guestID uint64) ([]model.Request, error) {
    const q = `SELECT ` + requestColumns + ` FROM requests
               WHERE event_id = ? AND guest_id = ?
               ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, eventID, guestID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Request, 0)
    for rows.Next() {
        req, err := scanRequest(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *req)
    }
    return out, rows.Err()
}

// SaveTransition writes the post-transition row and the recompacted
// positions of the remaining active set in one transaction, retrying
// transient failures.
func (r *RequestRepo) SaveTransition(ctx context.Context, req *model.Request, positions map[uint64]int) error {
    return withRetry(ctx, func() error { return r.saveTransition(ctx, req, positions) })
}

func (r *RequestRepo) saveTransition(ctx context.Context, req *model.Request, positions map[uint64]int) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var calledAt interface{}
    if req.CalledAt != nil {
        calledAt = req.CalledAt.UTC().Format("2006-01-02 15:04:05")
    }
    const upQ = `UPDATE requests SET status = ?, called_at = ?, queue_position = ? WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upQ, req.Status, calledAt, req.QueuePosition, req.ID); err != nil {
        return err
    }
    if err := applyPositionsTx(ctx, tx, req.EventID, positions); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// SavePositions applies a full reordering of the active set in one
// transaction, retrying transient failures.
func (r *RequestRepo) SavePositions(ctx context.Context, eventID uint64, positions map[uint64]int) error {
    return withRetry(ctx, func() error { return r.savePositions(ctx, eventID, positions) })
}

func (r *RequestRepo) savePositions(ctx context.Context, eventID uint64, positions map[uint64]int) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := applyPositionsTx(ctx, tx, eventID, positions); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// applyPositionsTx writes the new queue positions inside an open
// transaction. The event scope on the WHERE clause keeps a stray ID from
// touching another event's queue.
func applyPositionsTx(ctx context.Context, tx *sql.Tx, eventID uint64, positions map[uint64]int) error {
    const q = `UPDATE requests SET queue_position = ? WHERE id = ? AND event_id = ?`
    for id, pos := range positions {
        if _, err := tx.ExecContext(ctx, q, pos, id, eventID); err != nil {
            return err
        }
    }
    return nil
}

// statically assert the queue.Store contract.
var _ queue.Store = (*RequestRepo)(nil)
