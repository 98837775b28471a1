package model

import "time"

// Display modes selected by operators for the public screen. The queue
// engine itself is agnostic to them; they are stored with the event and
// consumed by the display client only.
const (
    DisplayModeQueue = "QUEUE"
    DisplayModeBreak = "BREAK"
    DisplayModeStart = "START"
    DisplayModePromo = "PROMO"
)

// Event is a single karaoke night. Admission limits are configurable per
// event and read by the queue engine on every submission.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – human-facing event name.
//  EventType         – category used by the suggestion ranker
//                      (e.g. "wedding", "corporate", "bar").
//  JoinCode          – short code guests enter to join the event.
//  OperatorCodeHash  – bcrypt hash of the operator access code.
//  CooldownSeconds   – minimum seconds between admitted requests from
//                      the same guest.
//  MaxActivePerGuest – cap on a guest's requests in QUEUED/CALLED/ON_STAGE.
//  DisplayMode       – current public display mode (see constants).
//  DisplayLayout     – layout flag for the display client.
//  IsActive          – whether the event currently accepts submissions.
//  CreatedAt         – creation timestamp.
type Event struct {
    ID                uint64    // events.id
    Name              string    // events.name
    EventType         string    // events.event_type
    JoinCode          string    // events.join_code
    OperatorCodeHash  string    // events.operator_code_hash
    CooldownSeconds   int       // events.cooldown_seconds
    MaxActivePerGuest int       // events.max_active_per_guest
    DisplayMode       string    // events.display_mode
    DisplayLayout     string    // events.display_layout
    IsActive          bool      // events.is_active
    CreatedAt         time.Time // events.created_at
}

// Guest is one attendee of an event. Guests are created on join (or
// imported ahead of time) and identified afterwards by their JWT subject.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event the guest belongs to.
//  PublicID  – opaque UUID printed on badges/QR codes.
//  Name      – display name shown on the queue.
//  CreatedAt – creation timestamp.
type Guest struct {
    ID        uint64    // guests.id
    EventID   uint64    // guests.event_id
    PublicID  string    // guests.public_id
    Name      string    // guests.name
    CreatedAt time.Time // guests.created_at
}
