package queue

import (
    "time"

    "github.com/encorehq/encore/internal/model"
)

// Fanout message kinds. A late joiner must first load a snapshot and
// then apply messages; no message is durable.
const (
    MessageCreated   = "created"
    MessageUpdated   = "updated"
    MessageDeleted   = "deleted"
    MessageReordered = "reordered"
)

// RequestPayload is the wire form of a request used in fanout messages
// and HTTP responses.
type RequestPayload struct {
    ID            uint64  `json:"id"`
    EventID       uint64  `json:"event_id"`
    GuestID       uint64  `json:"guest_id"`
    CatalogSongID *uint64 `json:"catalog_song_id,omitempty"`
    VideoID       *string `json:"video_id,omitempty"`
    Title         string  `json:"title"`
    Artist        *string `json:"artist,omitempty"`
    Status        string  `json:"status"`
    TurnNumber    int     `json:"turn_number"`
    QueuePosition int     `json:"queue_position,omitempty"`
    CreatedAt     string  `json:"created_at"`
    CalledAt      *string `json:"called_at,omitempty"`
}

// NewRequestPayload converts a request into its wire form. The queue
// position is omitted for requests outside the active set because the
// stored value is stale there.
func NewRequestPayload(r *model.Request) RequestPayload {
    p := RequestPayload{
        ID:            r.ID,
        EventID:       r.EventID,
        GuestID:       r.GuestID,
        CatalogSongID: r.CatalogSongID,
        VideoID:       r.VideoID,
        Title:         r.Title,
        Artist:        r.Artist,
        Status:        r.Status,
        TurnNumber:    r.TurnNumber,
        CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
    }
    if r.IsActive() {
        p.QueuePosition = r.QueuePosition
    }
    if r.CalledAt != nil {
        iso := r.CalledAt.UTC().Format(time.RFC3339)
        p.CalledAt = &iso
    }
    return p
}

// Message is one fanout event delivered to every subscriber of an
// event's channel, in commit order. Request is set for created, updated
// and deleted messages; Order carries the full ordered active-set IDs
// for reordered messages so clients replace their local ordering
// wholesale.
type Message struct {
    Type    string          `json:"type"`
    EventID uint64          `json:"event_id"`
    Request *RequestPayload `json:"request,omitempty"`
    Order   []uint64        `json:"order,omitempty"`
}

// Publisher delivers fanout messages to the subscribers of one event's
// channel. Implementations must preserve the order in which Publish is
// called for a single event; the engine calls it while still holding the
// event lock so commit order and publish order agree.
type Publisher interface {
    Publish(eventID uint64, msg Message)
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(eventID uint64, msg Message)

// Publish calls f.
func (f PublisherFunc) Publish(eventID uint64, msg Message) { f(eventID, msg) }

// CatalogFeed receives catalog popularity activity derived from queue
// mutations. Implementations are expected to be asynchronous and lossy;
// the queue invariants never depend on these counters.
type CatalogFeed interface {
    SongRequested(songID uint64)
    SongCompleted(songID uint64)
}
