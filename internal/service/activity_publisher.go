// Package activity_publisher publishes catalog-activity events to
// RabbitMQ. Errors are logged and swallowed: popularity counters are
// eventually consistent and a lost increment must never fail or delay a
// queue mutation.
package activity_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/encorehq/encore/internal/mq"
    "github.com/encorehq/encore/internal/queue"
)

// Feed implements queue.CatalogFeed. Each signal is published from its
// own goroutine so the engine's per-event critical section never blocks
// on the broker.
type Feed struct{}

// NewFeed returns a Feed.
func NewFeed() Feed { return Feed{} }

// SongRequested publishes a "requested" activity event.
func (Feed) SongRequested(songID uint64) {
    go publish(mq.CatalogActivityEvent{
        SongID:     songID,
        Kind:       mq.KindRequested,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    })
}

// SongCompleted publishes a "completed" activity event.
func (Feed) SongCompleted(songID uint64) {
    go publish(mq.CatalogActivityEvent{
        SongID:     songID,
        Kind:       mq.KindCompleted,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    })
}

// statically assert the queue.CatalogFeed contract.
var _ queue.CatalogFeed = Feed{}

// publish dials the broker, declares the durable queue (idempotent) and
// sends one persistent message. It never panics; any error is logged and
// the event is dropped.
func publish(event mq.CatalogActivityEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()

    conn, err := amqp.Dial(mq.BrokerURL())
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists. Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        mq.CatalogActivityQueue, // name
        true,                    // durable
        false,                   // autoDelete
        false,                   // exclusive
        false,                   // noWait
        nil,                     // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                      // default exchange
        mq.CatalogActivityQueue, // routing key = queue name
        false,                   // mandatory
        false,                   // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
    }
}
