// Package queue_publisher provides functions to publish domain events to
// RabbitMQ.  Errors are logged and swallowed so that a broker outage never
// interrupts the main request flow; the audit trail is best-effort.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/doorlist/event-admission/internal/queue"
)

// AuditPublisher satisfies the ledgers' audit sink by publishing each
// transition to the checkin.audit queue.
type AuditPublisher struct{}

// New returns an AuditPublisher.
func New() *AuditPublisher { return &AuditPublisher{} }

// Record publishes an AuditEvent.  Failures are logged only.
func (p *AuditPublisher) Record(ctx context.Context, ev q.AuditEvent) {
	_ = PublishAudit(ctx, ev)
}

// PublishAudit publishes an AuditEvent to the checkin.audit queue.  The
// function attempts to be robust and to never panic; any error is logged
// and returned so the caller can choose to ignore it.  Messages are marked
// as persistent.
func PublishAudit(ctx context.Context, event q.AuditEvent) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.AuditQueueName, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",               // default exchange
		q.AuditQueueName, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
