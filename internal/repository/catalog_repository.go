package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/encorehq/encore/internal/model"
    "github.com/encorehq/encore/internal/suggest"
)

// CatalogRepo provides access to the song catalog: browse/search for
// guests, the idempotent like toggle, the popularity counters fed by the
// catalog-activity consumer, and the tier queries behind the suggestion
// ranker.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const catalogColumns = `id, title, artist, times_requested, times_completed, likes_count,
       difficulty, ranking, is_active, created_at`

func scanSong(scan func(dest ...interface{}) error) (*model.CatalogSong, error) {
    var s model.CatalogSong
    err := scan(
        &s.ID, &s.Title, &s.Artist, &s.TimesRequested, &s.TimesCompleted, &s.LikesCount,
        &s.Difficulty, &s.Ranking, &s.IsActive, &s.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// GetByID loads one active catalog song or returns ErrSongNotFound.
func (r *CatalogRepo) GetByID(ctx context.Context, id uint64) (*model.CatalogSong, error) {
    const q = `SELECT ` + catalogColumns + ` FROM catalog_songs WHERE id = ? AND is_active = 1`
    s, err := scanSong(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, ErrSongNotFound
    }
    return s, err
}

// Search returns active songs whose title or artist matches the term,
// best-ranked first. An empty term lists the catalog.
func (r *CatalogRepo) Search(ctx context.Context, term string, limit int) ([]model.CatalogSong, error) {
    const q = `SELECT ` + catalogColumns + ` FROM catalog_songs
               WHERE is_active = 1 AND (title LIKE ? OR artist LIKE ?)
               ORDER BY ranking DESC, likes_count DESC, title
               LIMIT ?`
    pattern := "%" + strings.TrimSpace(term) + "%"
    rows, err := r.db.QueryContext(ctx, q, pattern, pattern, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.CatalogSong, 0)
    for rows.Next() {
        s, err := scanSong(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    return out, rows.Err()
}

// ToggleLike flips a guest's like for a song. The (guest, song) pair is
// unique, so repeating the call flips the state back; the song row is
// locked first to keep the counter consistent with the pair table. It
// returns whether the song is liked after the call and the new count.
func (r *CatalogRepo) ToggleLike(ctx context.Context, guestID, songID uint64) (bool, uint32, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return false, 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var likes uint32
    err = tx.QueryRowContext(ctx, `SELECT likes_count FROM catalog_songs WHERE id = ? AND is_active = 1 FOR UPDATE`, songID).Scan(&likes)
    if err == sql.ErrNoRows {
        return false, 0, ErrSongNotFound
    }
    if err != nil {
        return false, 0, err
    }

    var likeID uint64
    err = tx.QueryRowContext(ctx, `SELECT id FROM song_likes WHERE guest_id = ? AND catalog_song_id = ?`, guestID, songID).Scan(&likeID)
    liked := false
    switch {
    case err == sql.ErrNoRows:
        if _, err := tx.ExecContext(ctx, `INSERT INTO song_likes (guest_id, catalog_song_id) VALUES (?, ?)`, guestID, songID); err != nil {
            return false, 0, err
        }
        likes++
        liked = true
    case err != nil:
        return false, 0, err
    default:
        if _, err := tx.ExecContext(ctx, `DELETE FROM song_likes WHERE id = ?`, likeID); err != nil {
            return false, 0, err
        }
        if likes > 0 {
            likes--
        }
    }
    if _, err := tx.ExecContext(ctx, `UPDATE catalog_songs SET likes_count = ? WHERE id = ?`, likes, songID); err != nil {
        return false, 0, err
    }
    if err := tx.Commit(); err != nil {
        return false, 0, err
    }
    committed = true
    return liked, likes, nil
}

// RecordActivity appends one catalog-activity row and bumps the matching
// popularity counter in the same transaction. kind is "requested" or
// "completed". Called from the activity consumer, never from the queue
// engine's critical section.
func (r *CatalogRepo) RecordActivity(ctx context.Context, songID uint64, kind string, occurredAt time.Time) error {
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

    const insQ = `INSERT INTO catalog_activity (catalog_song_id, kind, occurred_at) VALUES (?, ?, ?)`
    if _, err := tx.ExecContext(ctx, insQ, songID, kind, occurredAt.UTC().Format("2006-01-02 15:04:05")); err != nil {
        return err
    }
    var counterQ string
    switch kind {
    case "requested":
        counterQ = `UPDATE catalog_songs SET times_requested = times_requested + 1 WHERE id = ?`
    case "completed":
        counterQ = `UPDATE catalog_songs SET times_completed = times_completed + 1 WHERE id = ?`
    default:
        return ErrConflict
    }
    if _, err := tx.ExecContext(ctx, counterQ, songID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ---- suggest.Source ----

// EventType returns the category of an event.
func (r *CatalogRepo) EventType(ctx context.Context, eventID uint64) (string, error) {
    var t string
    err := r.db.QueryRowContext(ctx, `SELECT event_type FROM events WHERE id = ?`, eventID).Scan(&t)
    if err == sql.ErrNoRows {
        return "", ErrEventNotFound
    }
    return t, err
}

// GuestArtists lists the artists of the guest's own picks at the event,
// excluding withdrawn and missed ones.
func (r *CatalogRepo) GuestArtists(ctx context.Context, eventID, guestID uint64) ([]string, error) {
    const q = `SELECT DISTINCT artist FROM requests
               WHERE event_id = ? AND guest_id = ?
                 AND artist IS NOT NULL AND artist <> ''
                 AND status IN ('QUEUED','CALLED','ON_STAGE','COMPLETED')`
    rows, err := r.db.QueryContext(ctx, q, eventID, guestID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]string, 0)
    for rows.Next() {
        var a string
        if err := rows.Scan(&a); err != nil {
            return nil, err
        }
        out = append(out, a)
    }
    return out, rows.Err()
}

// SongsByArtists returns active songs by any of the given artists.
func (r *CatalogRepo) SongsByArtists(ctx context.Context, artists []string, limit int) ([]suggest.Candidate, error) {
    if len(artists) == 0 {
        return nil, nil
    }
    placeholders := make([]string, 0, len(artists))
    args := make([]interface{}, 0, len(artists)+1)
    for _, a := range artists {
        placeholders = append(placeholders, "?")
        args = append(args, a)
    }
    args = append(args, limit)
    q := `SELECT ` + catalogColumns + ` FROM catalog_songs
          WHERE is_active = 1 AND artist IN (` + strings.Join(placeholders, ",") + `)
          ORDER BY ranking DESC, likes_count DESC, title
          LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]suggest.Candidate, 0)
    for rows.Next() {
        s, err := scanSong(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, suggest.Candidate{Song: *s})
    }
    return out, rows.Err()
}

// Tier queries select the tier score as the last column and must order
// by it before limiting: the ranker only sees the rows a query returns,
// so an unordered LIMIT would silently drop the strongest candidates.
const (
    popularInEventQuery = `SELECT ` + prefixedCatalogColumns + `, COUNT(r.id) AS score
          FROM catalog_songs c
          JOIN requests r ON r.catalog_song_id = c.id AND r.event_id = ?
          WHERE c.is_active = 1
          GROUP BY c.id
          ORDER BY score DESC, c.ranking DESC, c.likes_count DESC, c.title
          LIMIT ?`

    popularInEventTypeQuery = `SELECT ` + prefixedCatalogColumns + `, COUNT(r.id) AS score
          FROM catalog_songs c
          JOIN requests r ON r.catalog_song_id = c.id
          JOIN events e ON e.id = r.event_id AND e.event_type = ? AND e.id <> ?
          WHERE c.is_active = 1
          GROUP BY c.id
          ORDER BY score DESC, c.ranking DESC, c.likes_count DESC, c.title
          LIMIT ?`

    trendingSinceQuery = `SELECT ` + prefixedCatalogColumns + `, COUNT(a.id) AS score
          FROM catalog_songs c
          JOIN catalog_activity a ON a.catalog_song_id = c.id AND a.kind = 'completed' AND a.occurred_at >= ?
          WHERE c.is_active = 1
          GROUP BY c.id
          ORDER BY score DESC, c.ranking DESC, c.likes_count DESC, c.title
          LIMIT ?`
)

// PopularInEvent ranks active songs by how often they were requested at
// the event.
func (r *CatalogRepo) PopularInEvent(ctx context.Context, eventID uint64, limit int) ([]suggest.Candidate, error) {
    return r.queryCandidates(ctx, popularInEventQuery, eventID, limit)
}

// PopularInEventType ranks active songs by aggregate request count
// across past events of the same type, excluding the current event.
func (r *CatalogRepo) PopularInEventType(ctx context.Context, eventType string, excludeEventID uint64, limit int) ([]suggest.Candidate, error) {
    return r.queryCandidates(ctx, popularInEventTypeQuery, eventType, excludeEventID, limit)
}

// TrendingSince ranks active songs by completions recorded in the
// activity feed since the given time, across all events.
func (r *CatalogRepo) TrendingSince(ctx context.Context, since time.Time, limit int) ([]suggest.Candidate, error) {
    return r.queryCandidates(ctx, trendingSinceQuery, since.UTC().Format("2006-01-02 15:04:05"), limit)
}

const prefixedCatalogColumns = `c.id, c.title, c.artist, c.times_requested, c.times_completed, c.likes_count,
       c.difficulty, c.ranking, c.is_active, c.created_at`

// queryCandidates runs a tier query whose final selected column is the
// tier score.
func (r *CatalogRepo) queryCandidates(ctx context.Context, q string, args ...interface{}) ([]suggest.Candidate, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]suggest.Candidate, 0)
    for rows.Next() {
        var c suggest.Candidate
        err := rows.Scan(
            &c.Song.ID, &c.Song.Title, &c.Song.Artist, &c.Song.TimesRequested, &c.Song.TimesCompleted,
            &c.Song.LikesCount, &c.Song.Difficulty, &c.Song.Ranking, &c.Song.IsActive, &c.Song.CreatedAt,
            &c.Score,
        )
        if err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// statically assert the suggest.Source contract.
var _ suggest.Source = (*CatalogRepo)(nil)
