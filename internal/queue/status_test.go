package queue

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/encorehq/encore/internal/model"
)

func TestTransitionTable(t *testing.T) {
    all := []string{
        model.StatusQueued, model.StatusCalled, model.StatusOnStage,
        model.StatusCompleted, model.StatusNoShow, model.StatusCancelled,
    }
    legal := map[string]map[string]bool{
        model.StatusQueued:    {model.StatusCalled: true, model.StatusCancelled: true},
        model.StatusCalled:    {model.StatusOnStage: true, model.StatusNoShow: true, model.StatusQueued: true},
        model.StatusOnStage:   {model.StatusCompleted: true, model.StatusCalled: true},
        model.StatusCompleted: {model.StatusQueued: true},
        model.StatusNoShow:    {model.StatusQueued: true, model.StatusCalled: true},
        model.StatusCancelled: {model.StatusQueued: true},
    }
    for _, from := range all {
        for _, to := range all {
            assert.Equal(t, legal[from][to], CanTransition(from, to), "%s -> %s", from, to)
        }
    }
}

func TestCanTransitionRejectsUnknownStatuses(t *testing.T) {
    assert.False(t, CanTransition(model.StatusQueued, "PAUSED"))
    assert.False(t, CanTransition("PAUSED", model.StatusQueued))
    assert.False(t, CanTransition(model.StatusQueued, model.StatusQueued))
}

func TestKnownStatus(t *testing.T) {
    assert.True(t, KnownStatus(model.StatusNoShow))
    assert.False(t, KnownStatus("SINGING"))
    assert.False(t, KnownStatus(""))
}
