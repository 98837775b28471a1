// Package mq defines message payloads exchanged over the message broker.
package mq

// CatalogActivityQueue is the durable queue carrying popularity signals
// from the queue engine to the catalog counters.
const CatalogActivityQueue = "catalog.activity"

// Activity kinds.
const (
    KindRequested = "requested"
    KindCompleted = "completed"
)

// CatalogActivityEvent is published when a catalog song is admitted to a
// queue or a performance of it completes. The consumer folds these into
// the timesRequested/timesCompleted counters and the activity log behind
// the trending tier; counters are eventually consistent by design.
type CatalogActivityEvent struct {
    SongID     uint64 `json:"song_id"`
    Kind       string `json:"kind"` // requested | completed
    OccurredAt string `json:"occurred_at"`
}
