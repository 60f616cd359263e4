// Package notify delivers transactional email and publishes structured
// user events for downstream consumers. Both paths are fire-and-forget
// from the caller's point of view but surface failures distinctly so
// callers can decide which ones are fatal.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrDelivery marks a failed email send. Callers generally treat this
// as non-fatal.
var ErrDelivery = errors.New("email delivery failed")

// ErrPublish marks a failed event publication. The account service
// treats this as a dependency failure and rolls back creation.
var ErrPublish = errors.New("event publish failed")

// Publisher is the broker-facing half of the dispatcher, satisfied by
// the mq package brokers.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Dispatcher fans notifications out to mail and the event topic.
type Dispatcher struct {
	mailer    Mailer
	publisher Publisher
	topic     string
	testMode  bool
	log       *logrus.Entry
}

// NewDispatcher constructs a Dispatcher. With testMode set, publishes
// are skipped entirely and report success.
func NewDispatcher(mailer Mailer, publisher Publisher, topic string, testMode bool, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:    mailer,
		publisher: publisher,
		topic:     topic,
		testMode:  testMode,
		log:       logger.WithField("component", "dispatcher"),
	}
}

// SendEmail delivers a plain-text email. Failures are logged and
// returned as ErrDelivery; the caller decides whether to proceed.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := d.mailer.Send(ctx, to, subject, body); err != nil {
		d.log.WithError(err).WithField("to", to).Error("email delivery failed")
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	d.log.WithField("to", to).WithField("subject", subject).Info("email sent")
	return nil
}

// PublishEvent JSON-encodes the payload and publishes it to the event
// topic with the subject carried as a message attribute.
func (d *Dispatcher) PublishEvent(ctx context.Context, subject string, payload any) error {
	if d.testMode {
		d.log.WithField("subject", subject).Info("test mode, skipping event publish")
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	id, err := d.publisher.Publish(ctx, d.topic, data, map[string]string{"subject": subject})
	if err != nil {
		d.log.WithError(err).WithField("subject", subject).Error("event publish failed")
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	d.log.WithField("subject", subject).WithField("message_id", id).Info("event published")
	return nil
}
