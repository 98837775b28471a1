package queue

import "github.com/encorehq/encore/internal/model"

// transitions is the full lifecycle table. Any edge not listed here is
// illegal and rejected with a TransitionError. COMPLETED, NO_SHOW and
// CANCELLED are re-openable so operators can correct mistakes; the turn
// number is never reissued on reactivation.
var transitions = map[string][]string{
    model.StatusQueued:    {model.StatusCalled, model.StatusCancelled},
    model.StatusCalled:    {model.StatusOnStage, model.StatusNoShow, model.StatusQueued},
    model.StatusOnStage:   {model.StatusCompleted, model.StatusCalled},
    model.StatusCompleted: {model.StatusQueued},
    model.StatusNoShow:    {model.StatusQueued, model.StatusCalled},
    model.StatusCancelled: {model.StatusQueued},
}

// CanTransition reports whether the edge from -> to is in the lifecycle
// table.
func CanTransition(from, to string) bool {
    for _, t := range transitions[from] {
        if t == to {
            return true
        }
    }
    return false
}

// KnownStatus reports whether s is one of the defined request statuses.
func KnownStatus(s string) bool {
    if _, ok := transitions[s]; ok {
        return true
    }
    return false
}
