package queue

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/encorehq/encore/internal/model"
)

// MemoryStore is an in-process Store used by the test suite and by the
// "memory" store driver for local development without MySQL. Every
// method takes the store mutex, so each call is atomic exactly like a
// committed transaction in the SQL implementation.
type MemoryStore struct {
    mu       sync.Mutex
    seq      uint64
    requests map[uint64]*model.Request
    now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{
        requests: make(map[uint64]*model.Request),
        now:      time.Now,
    }
}

func clone(r *model.Request) *model.Request {
    c := *r
    return &c
}

// CreateRequest allocates the next ID, the next per-event turn number
// and the position at the end of the active set, then stores the row.
func (s *MemoryStore) CreateRequest(_ context.Context, r *model.Request) error {
    s.mu.Lock()
    defer s.mu.Unlock()

    maxTurn := 0
    activeCount := 0
    for _, existing := range s.requests {
        if existing.EventID != r.EventID {
            continue
        }
        if existing.TurnNumber > maxTurn {
            maxTurn = existing.TurnNumber
        }
        if existing.IsActive() {
            activeCount++
        }
    }

    s.seq++
    r.ID = s.seq
    r.TurnNumber = maxTurn + 1
    r.QueuePosition = activeCount + 1
    r.CreatedAt = s.now().UTC()
    s.requests[r.ID] = clone(r)
    return nil
}

// RequestByID returns a copy of the stored row or ErrNotFound.
func (s *MemoryStore) RequestByID(_ context.Context, id uint64) (*model.Request, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.requests[id]
    if !ok {
        return nil, ErrNotFound
    }
    return clone(r), nil
}

// ActiveSet returns the event's QUEUED and CALLED requests ordered by
// queue position.
func (s *MemoryStore) ActiveSet(_ context.Context, eventID uint64) ([]model.Request, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Request, 0)
    for _, r := range s.requests {
        if r.EventID == eventID && r.IsActive() {
            out = append(out, *clone(r))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].QueuePosition < out[j].QueuePosition })
    return out, nil
}

// OnStage returns the event's ON_STAGE request, nil when there is none.
func (s *MemoryStore) OnStage(_ context.Context, eventID uint64) (*model.Request, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, r := range s.requests {
        if r.EventID == eventID && r.Status == model.StatusOnStage {
            return clone(r), nil
        }
    }
    return nil, nil
}

// GuestStats counts the guest's QUEUED/CALLED/ON_STAGE requests and
// finds their most recent admission time.
func (s *MemoryStore) GuestStats(_ context.Context, eventID, guestID uint64) (GuestStats, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var stats GuestStats
    for _, r := range s.requests {
        if r.EventID != eventID || r.GuestID != guestID {
            continue
        }
        if r.IsActive() || r.Status == model.StatusOnStage {
            stats.ActiveCount++
        }
        if stats.LastAdmittedAt == nil || r.CreatedAt.After(*stats.LastAdmittedAt) {
            t := r.CreatedAt
            stats.LastAdmittedAt = &t
        }
    }
    return stats, nil
}

// RequestsByGuest returns the guest's submissions, newest first.
func (s *MemoryStore) RequestsByGuest(_ context.Context, eventID, guestID uint64) ([]model.Request, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Request, 0)
    for _, r := range s.requests {
        if r.EventID == eventID && r.GuestID == guestID {
            out = append(out, *clone(r))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].ID > out[j].ID
        }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
    return out, nil
}

// SaveTransition stores the post-transition row and the recompacted
// positions in one step.
func (s *MemoryStore) SaveTransition(_ context.Context, r *model.Request, positions map[uint64]int) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.requests[r.ID]; !ok {
        return ErrNotFound
    }
    s.requests[r.ID] = clone(r)
    s.applyPositions(positions)
    return nil
}

// SavePositions applies a full reordering of the active set.
func (s *MemoryStore) SavePositions(_ context.Context, _ uint64, positions map[uint64]int) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.applyPositions(positions)
    return nil
}

// applyPositions must be called with the store mutex held.
func (s *MemoryStore) applyPositions(positions map[uint64]int) {
    for id, pos := range positions {
        if r, ok := s.requests[id]; ok {
            r.QueuePosition = pos
        }
    }
}
