// Package ws implements the real-time fanout transport. Clients
// subscribe to exactly one event channel and receive the queue mutation
// messages for that event in commit order; they never see another
// event's traffic. Messages are not durable: a late joiner loads the
// REST snapshot first and then applies the stream.
package ws

import (
    "encoding/json"
    "log"
    "net/http"
    "sync"
    "time"

    "github.com/gorilla/websocket"

    "github.com/encorehq/encore/internal/queue"
)

const (
    writeWait  = 10 * time.Second
    pongWait   = 60 * time.Second
    pingPeriod = 20 * time.Second

    // sendBuffer bounds the per-client outbox. A client that cannot
    // keep up is disconnected rather than skipped, because a skipped
    // message would break the "never missed" turn-detection contract;
    // after reconnecting it resnapshots and is consistent again.
    sendBuffer = 64
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type client struct {
    conn *websocket.Conn
    send chan []byte
}

// Hub tracks the subscribers of every event channel.
type Hub struct {
    mu    sync.Mutex
    rooms map[uint64]map[*client]bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
    return &Hub{rooms: make(map[uint64]map[*client]bool)}
}

// Publish implements queue.Publisher by broadcasting the message to the
// event's channel.
func (h *Hub) Publish(eventID uint64, msg queue.Message) {
    h.Broadcast(eventID, msg)
}

// Broadcast marshals v once and enqueues it to every subscriber of the
// event. Each client has a single writer goroutine draining a FIFO
// buffer, so per-client delivery order matches broadcast order. Returns
// the number of clients reached.
func (h *Hub) Broadcast(eventID uint64, v interface{}) int {
    b, err := json.Marshal(v)
    if err != nil {
        log.Printf("ws: marshal broadcast: %v", err)
        return 0
    }
    h.mu.Lock()
    defer h.mu.Unlock()
    n := 0
    for c := range h.rooms[eventID] {
        select {
        case c.send <- b:
            n++
        default:
            // Slow consumer: drop the connection, not the message.
            close(c.send)
            delete(h.rooms[eventID], c)
        }
    }
    return n
}

// Subscribers returns how many clients are on an event's channel.
func (h *Hub) Subscribers(eventID uint64) int {
    h.mu.Lock()
    defer h.mu.Unlock()
    return len(h.rooms[eventID])
}

// Serve upgrades the HTTP request and pumps the event's messages until
// the client disconnects. It blocks for the lifetime of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, eventID uint64) {
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        log.Printf("ws: upgrade: %v", err)
        return
    }
    c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

    h.mu.Lock()
    if h.rooms[eventID] == nil {
        h.rooms[eventID] = make(map[*client]bool)
    }
    h.rooms[eventID][c] = true
    total := len(h.rooms[eventID])
    h.mu.Unlock()
    log.Printf("ws: event %d subscriber connected (%d total)", eventID, total)

    go c.writePump()
    c.readPump()

    h.mu.Lock()
    if room, ok := h.rooms[eventID]; ok {
        if room[c] {
            delete(room, c)
            close(c.send)
        }
        if len(room) == 0 {
            delete(h.rooms, eventID)
        }
        total = len(room)
    }
    h.mu.Unlock()
    log.Printf("ws: event %d subscriber disconnected (%d total)", eventID, total)
}

// writePump drains the outbox and keeps the connection alive with
// periodic pings.
func (c *client) writePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        _ = c.conn.Close()
    }()
    for {
        select {
        case b, ok := <-c.send:
            _ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                _ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }
            if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
                return
            }
        case <-ticker.C:
            _ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
                return
            }
        }
    }
}

// readPump discards inbound frames (the stream is one-way) and refreshes
// the read deadline on pongs. It returns when the peer goes away.
func (c *client) readPump() {
    c.conn.SetReadLimit(1024)
    _ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
    c.conn.SetPongHandler(func(string) error {
        _ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
        return nil
    })
    for {
        if _, _, err := c.conn.ReadMessage(); err != nil {
            return
        }
    }
}
