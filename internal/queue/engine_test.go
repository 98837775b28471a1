package queue

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/encorehq/encore/internal/model"
)

// recorder captures fanout messages so tests can assert on exactly what
// subscribers would have observed, in order.
type recorder struct {
    mu   sync.Mutex
    msgs []Message
}

func (r *recorder) Publish(_ uint64, m Message) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.msgs = append(r.msgs, m)
}

func (r *recorder) all() []Message {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]Message(nil), r.msgs...)
}

func (r *recorder) reset() {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.msgs = nil
}

type fakeFeed struct {
    mu        sync.Mutex
    requested []uint64
    completed []uint64
}

func (f *fakeFeed) SongRequested(id uint64) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.requested = append(f.requested, id)
}

func (f *fakeFeed) SongCompleted(id uint64) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.completed = append(f.completed, id)
}

func newTestEngine(t *testing.T) (*Engine, *MemoryStore, *recorder, *fakeFeed, *time.Time) {
    t.Helper()
    store := NewMemoryStore()
    rec := &recorder{}
    feed := &fakeFeed{}
    eng := New(store, rec, feed)
    cur := time.Date(2026, 8, 27, 20, 0, 0, 0, time.UTC)
    eng.now = func() time.Time { return cur }
    store.now = func() time.Time { return cur }
    return eng, store, rec, feed, &cur
}

func ref(title string) SongRef { return SongRef{Title: title} }

// assertDense verifies the core invariant: active positions form 1..N
// with no duplicates or gaps, in the order reported by the store.
func assertDense(t *testing.T, store Store, eventID uint64) {
    t.Helper()
    active, err := store.ActiveSet(context.Background(), eventID)
    require.NoError(t, err)
    for i, r := range active {
        assert.Equal(t, i+1, r.QueuePosition, "position of request %d", r.ID)
    }
}

func TestAdmitAllocatesTurnAndPosition(t *testing.T) {
    eng, store, rec, _, _ := newTestEngine(t)
    ctx := context.Background()

    for i := uint64(1); i <= 3; i++ {
        r, err := eng.Admit(ctx, 1, i, ref("song"), Policy{})
        require.NoError(t, err)
        assert.Equal(t, int(i), r.TurnNumber)
        assert.Equal(t, int(i), r.QueuePosition)
        assert.Equal(t, model.StatusQueued, r.Status)
    }
    assertDense(t, store, 1)

    msgs := rec.all()
    require.Len(t, msgs, 3)
    for _, m := range msgs {
        assert.Equal(t, MessageCreated, m.Type)
        require.NotNil(t, m.Request)
    }
}

func TestAdmitRejectsEmptyTitle(t *testing.T) {
    eng, _, rec, _, _ := newTestEngine(t)
    _, err := eng.Admit(context.Background(), 1, 1, SongRef{Title: "   "}, Policy{})
    assert.ErrorIs(t, err, ErrInvalidSongRef)
    assert.Empty(t, rec.all())
}

func TestAdmitLimitReached(t *testing.T) {
    eng, _, rec, _, _ := newTestEngine(t)
    ctx := context.Background()
    pol := Policy{MaxActivePerGuest: 2}

    _, err := eng.Admit(ctx, 1, 7, ref("first"), pol)
    require.NoError(t, err)
    _, err = eng.Admit(ctx, 1, 7, ref("second"), pol)
    require.NoError(t, err)

    rec.reset()
    _, err = eng.Admit(ctx, 1, 7, ref("third"), pol)
    var admErr *AdmissionError
    require.ErrorAs(t, err, &admErr)
    assert.Equal(t, ReasonLimitReached, admErr.Reason)
    assert.Empty(t, rec.all(), "rejection must not fan out")
}

func TestAdmitCooldown(t *testing.T) {
    eng, _, _, _, cur := newTestEngine(t)
    ctx := context.Background()
    pol := Policy{CooldownSeconds: 60}

    first, err := eng.Admit(ctx, 1, 7, ref("first"), pol)
    require.NoError(t, err)
    assert.Equal(t, 1, first.TurnNumber)

    *cur = cur.Add(10 * time.Second)
    _, err = eng.Admit(ctx, 1, 7, ref("second"), pol)
    var admErr *AdmissionError
    require.ErrorAs(t, err, &admErr)
    assert.Equal(t, ReasonCooldownActive, admErr.Reason)
    assert.Equal(t, 50*time.Second, admErr.RetryAfter)

    *cur = cur.Add(51 * time.Second) // 61s after the first admission
    second, err := eng.Admit(ctx, 1, 7, ref("second"), pol)
    require.NoError(t, err)
    assert.Equal(t, 2, second.TurnNumber)
}

func TestConcurrentAdmissionsKeepTurnsUnique(t *testing.T) {
    eng, store, _, _, _ := newTestEngine(t)
    ctx := context.Background()

    const n = 24
    var wg sync.WaitGroup
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(guest uint64) {
            defer wg.Done()
            _, err := eng.Admit(ctx, 1, guest, ref("song"), Policy{})
            assert.NoError(t, err)
        }(uint64(i + 1))
    }
    wg.Wait()

    active, err := store.ActiveSet(ctx, 1)
    require.NoError(t, err)
    require.Len(t, active, n)
    turns := make(map[int]bool, n)
    for _, r := range active {
        assert.False(t, turns[r.TurnNumber], "turn %d issued twice", r.TurnNumber)
        turns[r.TurnNumber] = true
        assert.GreaterOrEqual(t, r.TurnNumber, 1)
        assert.LessOrEqual(t, r.TurnNumber, n)
    }
    assertDense(t, store, 1)
}

func TestIllegalTransitionLeavesRequestUnchanged(t *testing.T) {
    eng, store, rec, _, _ := newTestEngine(t)
    ctx := context.Background()

    r, err := eng.Admit(ctx, 1, 1, ref("song"), Policy{})
    require.NoError(t, err)
    rec.reset()

    _, err = eng.Transition(ctx, r.ID, model.StatusOnStage)
    var trErr *TransitionError
    require.ErrorAs(t, err, &trErr)
    assert.Equal(t, model.StatusQueued, trErr.From)
    assert.Equal(t, model.StatusOnStage, trErr.To)

    reloaded, err := store.RequestByID(ctx, r.ID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusQueued, reloaded.Status)
    assert.Equal(t, 1, reloaded.QueuePosition)
    assert.Empty(t, rec.all())
}

func TestTransitionToUnknownRequest(t *testing.T) {
    eng, _, _, _, _ := newTestEngine(t)
    _, err := eng.Transition(context.Background(), 999, model.StatusCalled)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalledAtStampedOnceAndNoShowReappends(t *testing.T) {
    eng, store, rec, _, cur := newTestEngine(t)
    ctx := context.Background()

    a, err := eng.Admit(ctx, 1, 1, ref("a"), Policy{})
    require.NoError(t, err)
    _, err = eng.Admit(ctx, 1, 2, ref("b"), Policy{})
    require.NoError(t, err)
    _, err = eng.Admit(ctx, 1, 3, ref("c"), Policy{})
    require.NoError(t, err)
    rec.reset()

    calledTime := *cur
    called, err := eng.Transition(ctx, a.ID, model.StatusCalled)
    require.NoError(t, err)
    require.NotNil(t, called.CalledAt)
    assert.Equal(t, calledTime, *called.CalledAt)
    assert.Equal(t, 1, called.QueuePosition, "staying active keeps the position")

    *cur = cur.Add(2 * time.Minute)
    _, err = eng.Transition(ctx, a.ID, model.StatusNoShow)
    require.NoError(t, err)
    assertDense(t, store, 1)

    requeued, err := eng.Transition(ctx, a.ID, model.StatusQueued)
    require.NoError(t, err)
    assert.Equal(t, 3, requeued.QueuePosition, "reactivation appends to the end")
    assert.Equal(t, 1, requeued.TurnNumber, "turn number is never reissued")
    require.NotNil(t, requeued.CalledAt)
    assert.Equal(t, calledTime, *requeued.CalledAt, "calledAt keeps its original stamp")

    msgs := rec.all()
    require.Len(t, msgs, 3)
    for _, m := range msgs {
        assert.Equal(t, MessageUpdated, m.Type)
    }
}

func TestCancellationRecompactsInOneStep(t *testing.T) {
    eng, store, rec, _, _ := newTestEngine(t)
    ctx := context.Background()

    a, err := eng.Admit(ctx, 1, 1, ref("a"), Policy{})
    require.NoError(t, err)
    b, err := eng.Admit(ctx, 1, 2, ref("b"), Policy{})
    require.NoError(t, err)
    c, err := eng.Admit(ctx, 1, 3, ref("c"), Policy{})
    require.NoError(t, err)
    rec.reset()

    _, err = eng.Transition(ctx, b.ID, model.StatusCancelled)
    require.NoError(t, err)

    active, err := store.ActiveSet(ctx, 1)
    require.NoError(t, err)
    require.Len(t, active, 2)
    assert.Equal(t, a.ID, active[0].ID)
    assert.Equal(t, 1, active[0].QueuePosition)
    assert.Equal(t, c.ID, active[1].ID)
    assert.Equal(t, 2, active[1].QueuePosition, "no gap may remain at position 2")

    msgs := rec.all()
    require.Len(t, msgs, 1, "exactly one updated message, recompaction is implicit")
    assert.Equal(t, MessageUpdated, msgs[0].Type)
    assert.Equal(t, b.ID, msgs[0].Request.ID)
    assert.Equal(t, model.StatusCancelled, msgs[0].Request.Status)
}

func TestGuestCancelEmitsDeletedAndChecksOwnership(t *testing.T) {
    eng, store, rec, _, _ := newTestEngine(t)
    ctx := context.Background()

    r, err := eng.Admit(ctx, 1, 5, ref("song"), Policy{})
    require.NoError(t, err)
    rec.reset()

    _, err = eng.CancelByGuest(ctx, r.ID, 6)
    assert.ErrorIs(t, err, ErrForbidden)
    assert.Empty(t, rec.all())

    cancelled, err := eng.CancelByGuest(ctx, r.ID, 5)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, cancelled.Status)

    reloaded, err := store.RequestByID(ctx, r.ID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, reloaded.Status, "the row is kept for history")

    msgs := rec.all()
    require.Len(t, msgs, 1)
    assert.Equal(t, MessageDeleted, msgs[0].Type)
}

func TestReorderAppliesPermutation(t *testing.T) {
    eng, store, rec, _, _ := newTestEngine(t)
    ctx := context.Background()

    a, _ := eng.Admit(ctx, 1, 1, ref("a"), Policy{})
    b, _ := eng.Admit(ctx, 1, 2, ref("b"), Policy{})
    c, _ := eng.Admit(ctx, 1, 3, ref("c"), Policy{})
    rec.reset()

    result, err := eng.Reorder(ctx, 1, []uint64{c.ID, a.ID, b.ID})
    require.NoError(t, err)
    require.Len(t, result, 3)
    assert.Equal(t, c.ID, result[0].ID)
    assert.Equal(t, 1, result[0].QueuePosition)
    assertDense(t, store, 1)

    msgs := rec.all()
    require.Len(t, msgs, 1, "a reorder is one message, not N updates")
    assert.Equal(t, MessageReordered, msgs[0].Type)
    assert.Equal(t, []uint64{c.ID, a.ID, b.ID}, msgs[0].Order)
}

func TestReorderConflictWhenActiveSetDrifts(t *testing.T) {
    eng, _, _, _, _ := newTestEngine(t)
    ctx := context.Background()

    a, _ := eng.Admit(ctx, 1, 1, ref("a"), Policy{})
    b, _ := eng.Admit(ctx, 1, 2, ref("b"), Policy{})
    c, _ := eng.Admit(ctx, 1, 3, ref("c"), Policy{})

    // The operator read [a,b,c]; d is admitted before they submit.
    _, err := eng.Admit(ctx, 1, 4, ref("d"), Policy{})
    require.NoError(t, err)

    _, err = eng.Reorder(ctx, 1, []uint64{c.ID, b.ID, a.ID})
    assert.ErrorIs(t, err, ErrReorderConflict)

    // A status change moving an item out of the active set conflicts too.
    _, err = eng.Transition(ctx, a.ID, model.StatusCancelled)
    require.NoError(t, err)
    _, err = eng.Reorder(ctx, 1, []uint64{a.ID, b.ID, c.ID})
    assert.ErrorIs(t, err, ErrReorderConflict)

    // So do duplicated IDs of the right length.
    _, err = eng.Reorder(ctx, 1, []uint64{b.ID, b.ID, c.ID})
    assert.ErrorIs(t, err, ErrReorderConflict)
}

func TestReorderIdenticalOrderStillEmitsOneMessage(t *testing.T) {
    eng, _, rec, _, _ := newTestEngine(t)
    ctx := context.Background()

    a, _ := eng.Admit(ctx, 1, 1, ref("a"), Policy{})
    b, _ := eng.Admit(ctx, 1, 2, ref("b"), Policy{})
    rec.reset()

    result, err := eng.Reorder(ctx, 1, []uint64{a.ID, b.ID})
    require.NoError(t, err)
    assert.Equal(t, 1, result[0].QueuePosition)
    assert.Equal(t, 2, result[1].QueuePosition)

    msgs := rec.all()
    require.Len(t, msgs, 1)
    assert.Equal(t, MessageReordered, msgs[0].Type)
    assert.Equal(t, []uint64{a.ID, b.ID}, msgs[0].Order)
}

func TestSnapshotShape(t *testing.T) {
    eng, _, _, _, _ := newTestEngine(t)
    ctx := context.Background()

    a, _ := eng.Admit(ctx, 1, 1, ref("a"), Policy{})
    b, _ := eng.Admit(ctx, 1, 2, ref("b"), Policy{})
    _, _ = eng.Admit(ctx, 1, 3, ref("c"), Policy{})
    d, _ := eng.Admit(ctx, 1, 4, ref("d"), Policy{})

    // a goes on stage, b is called up next, d cancels.
    _, err := eng.Transition(ctx, a.ID, model.StatusCalled)
    require.NoError(t, err)
    _, err = eng.Transition(ctx, a.ID, model.StatusOnStage)
    require.NoError(t, err)
    _, err = eng.Transition(ctx, b.ID, model.StatusCalled)
    require.NoError(t, err)
    _, err = eng.Transition(ctx, d.ID, model.StatusCancelled)
    require.NoError(t, err)

    snap, err := eng.Snapshot(ctx, 1)
    require.NoError(t, err)
    require.NotNil(t, snap.OnStage)
    assert.Equal(t, a.ID, snap.OnStage.ID)
    require.NotNil(t, snap.Called)
    assert.Equal(t, b.ID, snap.Called.ID)
    require.Len(t, snap.Upcoming, 1)
    assert.Equal(t, 2, snap.Total)
}

func TestCompletionFeedsCatalogCounters(t *testing.T) {
    eng, _, _, feed, _ := newTestEngine(t)
    ctx := context.Background()

    songID := uint64(42)
    r, err := eng.Admit(ctx, 1, 1, SongRef{Title: "song", CatalogSongID: &songID}, Policy{})
    require.NoError(t, err)
    assert.Equal(t, []uint64{songID}, feed.requested)

    _, err = eng.Transition(ctx, r.ID, model.StatusCalled)
    require.NoError(t, err)
    _, err = eng.Transition(ctx, r.ID, model.StatusOnStage)
    require.NoError(t, err)
    assert.Empty(t, feed.completed)

    _, err = eng.Transition(ctx, r.ID, model.StatusCompleted)
    require.NoError(t, err)
    assert.Equal(t, []uint64{songID}, feed.completed)
}

func TestDensePositionsSurviveMixedOperations(t *testing.T) {
    eng, store, _, _, _ := newTestEngine(t)
    ctx := context.Background()

    ids := make([]uint64, 0, 6)
    for g := uint64(1); g <= 6; g++ {
        r, err := eng.Admit(ctx, 1, g, ref("song"), Policy{})
        require.NoError(t, err)
        ids = append(ids, r.ID)
    }

    _, err := eng.Transition(ctx, ids[0], model.StatusCalled)
    require.NoError(t, err)
    assertDense(t, store, 1)
    _, err = eng.Transition(ctx, ids[0], model.StatusOnStage)
    require.NoError(t, err)
    assertDense(t, store, 1)
    _, err = eng.Transition(ctx, ids[3], model.StatusCancelled)
    require.NoError(t, err)
    assertDense(t, store, 1)
    _, err = eng.Reorder(ctx, 1, []uint64{ids[4], ids[1], ids[2], ids[5]})
    require.NoError(t, err)
    assertDense(t, store, 1)
    _, err = eng.Transition(ctx, ids[0], model.StatusCompleted)
    require.NoError(t, err)
    assertDense(t, store, 1)
    _, err = eng.Transition(ctx, ids[3], model.StatusQueued)
    require.NoError(t, err)
    assertDense(t, store, 1)

    active, err := store.ActiveSet(ctx, 1)
    require.NoError(t, err)
    assert.Equal(t, ids[3], active[len(active)-1].ID, "reactivated request joins the back of the line")
}

func TestGuestCancelRejectedOnceCalled(t *testing.T) {
    eng, store, rec, _, _ := newTestEngine(t)
    ctx := context.Background()

    r, err := eng.Admit(ctx, 1, 5, ref("song"), Policy{})
    require.NoError(t, err)
    _, err = eng.Transition(ctx, r.ID, model.StatusCalled)
    require.NoError(t, err)
    rec.reset()

    // From CALLED onward only the operator moves the request; the
    // guest's pull-out path exists solely for QUEUED.
    _, err = eng.CancelByGuest(ctx, r.ID, 5)
    var te *TransitionError
    require.ErrorAs(t, err, &te)
    assert.Equal(t, model.StatusCalled, te.From)
    assert.Equal(t, model.StatusCancelled, te.To)

    got, err := store.RequestByID(ctx, r.ID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCalled, got.Status)
    assert.Empty(t, rec.all(), "rejected cancel must not fan out")
}
