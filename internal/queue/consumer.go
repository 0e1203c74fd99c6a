package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/section-scheduler/internal/config"
)

// LogFileName is the file under EventsConfig.LogDir that events are appended to.
const LogFileName = "schedule.log"

// Consumer drains both scheduling queues into LogDir/schedule.log.
type Consumer struct {
	cfg config.EventsConfig
	log *zap.Logger
}

// NewConsumer builds a Consumer.  A nil logger disables logging.
func NewConsumer(cfg config.EventsConfig, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{cfg: cfg, log: log.Named("event-consumer")}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff (capped at 30s) whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}

	sections, err := declareAndConsume(ch, SectionScheduledQueue)
	if err != nil {
		return err
	}
	enrollments, err := declareAndConsume(ch, EnrollmentChangedQueue)
	if err != nil {
		return err
	}

	for {
		var d amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-sections:
		case d, ok = <-enrollments:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handle(d.RoutingKey, d.Body); err != nil {
			c.log.Error("handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
			_ = d.Nack(false, false) // do not requeue a message that cannot be parsed
			continue
		}
		_ = d.Ack(false)
	}
}

func declareAndConsume(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", name, err)
	}
	msgs, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", name, err)
	}
	return msgs, nil
}

func (c *Consumer) handle(queue string, body []byte) error {
	line, err := FormatLine(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.cfg.LogDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.cfg.LogDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders one event body as a single newline-terminated line.
func FormatLine(queue string, body []byte) (string, error) {
	switch queue {
	case SectionScheduledQueue:
		var ev SectionScheduledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queue, err)
		}
		verb := "updated"
		if ev.Created {
			verb = "created"
		}
		return fmt.Sprintf("[%s] Section %s | section_id=%s | code=%q | room_id=%s | faculty_id=%s | %s %s-%s\n",
			ev.ScheduledAt, verb, ev.SectionID, ev.Code, ev.RoomID, ev.FacultyID, ev.Day, ev.StartTime, ev.EndTime), nil
	case EnrollmentChangedQueue:
		var ev EnrollmentChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queue, err)
		}
		return fmt.Sprintf("[%s] Enrollment %s | schedule_id=%s | student_id=%s | section_id=%s\n",
			ev.ChangedAt, ev.Action, ev.ScheduleID, ev.StudentID, ev.SectionID), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
