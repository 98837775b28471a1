package queue

import (
    "context"
    "strings"
    "sync"
    "time"

    "github.com/encorehq/encore/internal/model"
)

// Engine is the single logical owner of every event's queue. All
// mutating calls for one event pass through the same lock, which is held
// only for the duration of the atomic mutation, never for guest
// think-time. Operations on different events run in parallel.
type Engine struct {
    store Store
    pub   Publisher
    feed  CatalogFeed // optional, may be nil

    mu    sync.Mutex
    locks map[uint64]*sync.Mutex

    now func() time.Time // overridable in tests
}

// New constructs an Engine. The store and publisher are required; the
// catalog feed may be nil when popularity tracking is disabled.
func New(store Store, pub Publisher, feed CatalogFeed) *Engine {
    if store == nil || pub == nil {
        panic("nil dependency passed to queue.New")
    }
    return &Engine{
        store: store,
        pub:   pub,
        feed:  feed,
        locks: make(map[uint64]*sync.Mutex),
        now:   time.Now,
    }
}

// eventLock returns the mutex serializing mutations of one event.
// Entries are never evicted: a safe eviction would need to know no
// goroutine still holds a reference, and at one mutex per event served
// over the process lifetime the retained memory stays in the kilobytes.
// TODO: add eviction keyed on event close if long-lived multi-tenant
// deployments ever make this map large.
func (e *Engine) eventLock(eventID uint64) *sync.Mutex {
    e.mu.Lock()
    defer e.mu.Unlock()
    l, ok := e.locks[eventID]
    if !ok {
        l = &sync.Mutex{}
        e.locks[eventID] = l
    }
    return l
}

// Admit runs the admission checks for a guest submission and, when they
// pass, creates the request with the next turn number at the end of the
// line and fans out a created message. Rejections are side-effect free:
// nothing is persisted and no message is sent.
func (e *Engine) Admit(ctx context.Context, eventID, guestID uint64, ref SongRef, pol Policy) (*model.Request, error) {
    title := strings.TrimSpace(ref.Title)
    if title == "" {
        return nil, ErrInvalidSongRef
    }

    l := e.eventLock(eventID)
    l.Lock()
    defer l.Unlock()

    stats, err := e.store.GuestStats(ctx, eventID, guestID)
    if err != nil {
        return nil, err
    }
    if pol.MaxActivePerGuest > 0 && stats.ActiveCount >= pol.MaxActivePerGuest {
        return nil, &AdmissionError{Reason: ReasonLimitReached}
    }
    if pol.CooldownSeconds > 0 && stats.LastAdmittedAt != nil {
        cooldown := time.Duration(pol.CooldownSeconds) * time.Second
        remaining := cooldown - e.now().Sub(*stats.LastAdmittedAt)
        if remaining > 0 {
            return nil, &AdmissionError{Reason: ReasonCooldownActive, RetryAfter: remaining}
        }
    }

    r := &model.Request{
        EventID:       eventID,
        GuestID:       guestID,
        CatalogSongID: ref.CatalogSongID,
        VideoID:       ref.VideoID,
        Title:         title,
        Artist:        ref.Artist,
        Status:        model.StatusQueued,
    }
    if err := e.store.CreateRequest(ctx, r); err != nil {
        return nil, err
    }

    payload := NewRequestPayload(r)
    e.pub.Publish(eventID, Message{Type: MessageCreated, EventID: eventID, Request: &payload})
    if e.feed != nil && r.CatalogSongID != nil {
        e.feed.SongRequested(*r.CatalogSongID)
    }
    return r, nil
}

// Transition moves a request along one edge of the lifecycle table on
// behalf of an operator. Entering CALLED for the first time stamps
// calledAt; entering or leaving the active set recompacts the remaining
// positions in the same atomic unit. Exactly one updated message is
// fanned out per successful transition.
func (e *Engine) Transition(ctx context.Context, requestID uint64, target string) (*model.Request, error) {
    return e.transition(ctx, requestID, target, MessageUpdated, 0)
}

// CancelByGuest lets a guest withdraw their own request. It is the same
// CANCELLED transition operators use, but it verifies ownership and fans
// out a deleted message so every client role drops the entry; the row
// itself is kept for history.
func (e *Engine) CancelByGuest(ctx context.Context, requestID, guestID uint64) (*model.Request, error) {
    return e.transition(ctx, requestID, model.StatusCancelled, MessageDeleted, guestID)
}

// transition implements both operator transitions and guest
// cancellation. When ownerGuestID is non-zero the request must belong to
// that guest.
func (e *Engine) transition(ctx context.Context, requestID uint64, target, msgType string, ownerGuestID uint64) (*model.Request, error) {
    // First load outside the lock to learn which event to serialize on.
    probe, err := e.store.RequestByID(ctx, requestID)
    if err != nil {
        return nil, err
    }
    eventID := probe.EventID

    l := e.eventLock(eventID)
    l.Lock()
    defer l.Unlock()

    // Reload under the lock; the request may have moved since the probe.
    r, err := e.store.RequestByID(ctx, requestID)
    if err != nil {
        return nil, err
    }
    if ownerGuestID != 0 && r.GuestID != ownerGuestID {
        return nil, ErrForbidden
    }
    if !CanTransition(r.Status, target) {
        return nil, &TransitionError{From: r.Status, To: target}
    }

    wasActive := r.IsActive()
    active, err := e.store.ActiveSet(ctx, eventID)
    if err != nil {
        return nil, err
    }

    r.Status = target
    if target == model.StatusCalled && r.CalledAt == nil {
        t := e.now().UTC()
        r.CalledAt = &t
    }
    nowActive := r.IsActive()

    // Rebuild the dense ordering of the active set. Leavers drop out,
    // (re)joiners append to the end of the line, everyone else keeps
    // their relative order.
    order := make([]uint64, 0, len(active)+1)
    for _, a := range active {
        if a.ID == r.ID && !nowActive {
            continue
        }
        order = append(order, a.ID)
    }
    if nowActive && !wasActive {
        order = append(order, r.ID)
    }
    positions := make(map[uint64]int, len(order))
    for i, id := range order {
        positions[id] = i + 1
    }
    if nowActive {
        r.QueuePosition = positions[r.ID]
    }

    if err := e.store.SaveTransition(ctx, r, positions); err != nil {
        return nil, err
    }

    payload := NewRequestPayload(r)
    e.pub.Publish(eventID, Message{Type: msgType, EventID: eventID, Request: &payload})
    if e.feed != nil && target == model.StatusCompleted && r.CatalogSongID != nil {
        e.feed.SongCompleted(*r.CatalogSongID)
    }
    return r, nil
}

// Reorder applies an operator's full ordering of the active set. The
// submitted IDs must be a permutation of exactly the active set known to
// the store at the moment of application; any drift (a new admission, a
// cancellation, a status change) rejects the call with
// ErrReorderConflict instead of guessing a merge. On success the new
// positions are written atomically and a single reordered message is
// fanned out, even when the submitted order matches the current one.
func (e *Engine) Reorder(ctx context.Context, eventID uint64, orderedIDs []uint64) ([]model.Request, error) {
    l := e.eventLock(eventID)
    l.Lock()
    defer l.Unlock()

    active, err := e.store.ActiveSet(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if len(orderedIDs) != len(active) {
        return nil, ErrReorderConflict
    }
    byID := make(map[uint64]*model.Request, len(active))
    for i := range active {
        byID[active[i].ID] = &active[i]
    }
    seen := make(map[uint64]bool, len(orderedIDs))
    positions := make(map[uint64]int, len(orderedIDs))
    for i, id := range orderedIDs {
        if seen[id] || byID[id] == nil {
            return nil, ErrReorderConflict
        }
        seen[id] = true
        positions[id] = i + 1
    }

    if err := e.store.SavePositions(ctx, eventID, positions); err != nil {
        return nil, err
    }

    result := make([]model.Request, 0, len(orderedIDs))
    for i, id := range orderedIDs {
        req := *byID[id]
        req.QueuePosition = i + 1
        result = append(result, req)
    }
    e.pub.Publish(eventID, Message{Type: MessageReordered, EventID: eventID, Order: append([]uint64(nil), orderedIDs...)})
    return result, nil
}

// Snapshot returns the state a client loads before subscribing to the
// event channel: the performer on stage, the guest currently called up,
// and the upcoming line in position order. History never appears here.
// The event lock is taken so the snapshot is never torn across a
// concurrent mutation.
func (e *Engine) Snapshot(ctx context.Context, eventID uint64) (*Snapshot, error) {
    l := e.eventLock(eventID)
    l.Lock()
    defer l.Unlock()

    active, err := e.store.ActiveSet(ctx, eventID)
    if err != nil {
        return nil, err
    }
    onStage, err := e.store.OnStage(ctx, eventID)
    if err != nil {
        return nil, err
    }

    snap := &Snapshot{OnStage: onStage, Total: len(active)}
    for i := range active {
        if snap.Called == nil && active[i].Status == model.StatusCalled {
            called := active[i]
            snap.Called = &called
            continue
        }
        snap.Upcoming = append(snap.Upcoming, active[i])
    }
    return snap, nil
}

// RequestsByGuest returns a guest's own submissions at an event, history
// included, newest first.
func (e *Engine) RequestsByGuest(ctx context.Context, eventID, guestID uint64) ([]model.Request, error) {
    return e.store.RequestsByGuest(ctx, eventID, guestID)
}

// RequestByID loads a single request.
func (e *Engine) RequestByID(ctx context.Context, requestID uint64) (*model.Request, error) {
    return e.store.RequestByID(ctx, requestID)
}
