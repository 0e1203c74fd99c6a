// Package service publishes scheduling events to RabbitMQ.  Publishing is
// best effort: errors are logged and returned so callers may ignore them
// without failing the request that produced the event.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/section-scheduler/internal/config"
	q "github.com/iliyamo/section-scheduler/internal/queue"
)

// Publisher sends events to durable queues on the default exchange.
type Publisher struct {
	cfg config.EventsConfig
	log *zap.Logger
}

// NewPublisher builds a Publisher.  With cfg.Enabled false every publish
// is a no-op.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{cfg: cfg, log: log.Named("event-publisher")}
}

// SectionScheduled publishes ev to the section.scheduled queue.
func (p *Publisher) SectionScheduled(ctx context.Context, ev q.SectionScheduledEvent) error {
	return p.publish(ctx, q.SectionScheduledQueue, ev)
}

// EnrollmentChanged publishes ev to the enrollment.changed queue.
func (p *Publisher) EnrollmentChanged(ctx context.Context, ev q.EnrollmentChangedEvent) error {
	return p.publish(ctx, q.EnrollmentChangedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	if !p.cfg.Enabled {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("queue", queue), zap.Error(err))
		return err
	}

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		p.log.Warn("dial failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed", zap.String("queue", queue), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	return nil
}
