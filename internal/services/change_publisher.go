package services

import (
	"context"
	"time"

	"h2olog/internal/amqp"
	"h2olog/internal/log"
)

// MessagePublisher is the outbound side of the message broker.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *amqp.ChangeMessage) error
}

const (
	publishQueueSize = 64
	publishTimeout   = 5 * time.Second
)

// ChangePublisher forwards store changes to the broker from its own
// goroutine so that store listeners never wait on the network.
type ChangePublisher struct {
	pub    MessagePublisher
	queue  chan *amqp.ChangeMessage
	logger *log.Logger
}

func NewChangePublisher(pub MessagePublisher, logger *log.Logger) *ChangePublisher {
	if logger == nil {
		logger = log.Discard()
	}
	return &ChangePublisher{
		pub:    pub,
		queue:  make(chan *amqp.ChangeMessage, publishQueueSize),
		logger: logger.WithComponent(log.ComponentAMQP),
	}
}

// Listener adapts the publisher to store subscriptions.
func (p *ChangePublisher) Listener() Listener {
	return func(c Change) {
		p.Enqueue(MessageFromChange(c))
	}
}

// Enqueue schedules msg for publishing. When the queue is full the
// message is dropped with a warning.
func (p *ChangePublisher) Enqueue(msg *amqp.ChangeMessage) {
	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("Publish queue full, dropping change message", "kind", msg.Kind)
	}
}

// Run publishes queued messages until ctx is cancelled, then flushes
// what is left with a short deadline.
func (p *ChangePublisher) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-p.queue:
			p.publish(ctx, msg)
		case <-ctx.Done():
			p.Flush()
			return nil
		}
	}
}

// Flush publishes whatever is queued, giving up after a short deadline.
func (p *ChangePublisher) Flush() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.publish(ctx, msg)
		default:
			return
		}
	}
}

func (p *ChangePublisher) publish(ctx context.Context, msg *amqp.ChangeMessage) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.pub.Publish(ctx, msg); err != nil {
		// The local write already succeeded; the event is best effort.
		p.logger.ErrorContext(ctx, "Failed to publish change message",
			"kind", msg.Kind, log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
}

// MessageFromChange converts a store change to its wire form.
func MessageFromChange(c Change) *amqp.ChangeMessage {
	msg := amqp.NewChangeMessage(string(c.Kind))
	if !c.At.IsZero() {
		msg.Timestamp = c.At
	}
	msg.EntryID = c.EntryID
	msg.Entry = c.Entry
	msg.Settings = c.Settings
	return msg
}
