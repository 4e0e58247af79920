// Package consumer reads the events published by the outbox dispatcher and
// hands them to handlers.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const fetchRetryDelay = 500 * time.Millisecond

// Reader is the subset of *kafka.Reader the processor uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// ErrAlreadyProcessed marks a message that was handled before. The processor
// commits it without counting a handler error.
var ErrAlreadyProcessed = errors.New("message already processed")

// Message is a decoded outbox record.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	UserID        string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger log.FieldLogger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor pulls records from a Reader, decodes them and dispatches them to
// a Handler, committing offsets as it goes.
type Processor struct {
	reader  Reader
	handler Handler
	logger  log.FieldLogger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.WithField("component", "consumer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled or the reader reports
// cancellation. A record whose handler fails stays uncommitted, so the group
// redelivers it after a restart or rebalance.
func (p *Processor) Run(ctx context.Context) error {
	for {
		record, err := p.reader.FetchMessage(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			p.logger.WithError(err).Warn("fetch failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		if !p.process(ctx, record) {
			continue
		}
		if err := p.reader.CommitMessages(ctx, record); err != nil {
			p.logger.WithError(err).WithField("offset", record.Offset).Warn("commit failed")
		}
	}
}

// process handles one record and reports whether its offset may be committed.
func (p *Processor) process(ctx context.Context, record kafka.Message) bool {
	logger := p.logger.WithFields(log.Fields{
		"topic":     record.Topic,
		"partition": record.Partition,
		"offset":    record.Offset,
	})

	msg, err := decode(record)
	if err != nil {
		// Malformed records can never succeed; committing keeps the partition moving.
		logger.WithError(err).Error("decode error")
		observe(outcomeDecodeError, record.Topic, "")
		return true
	}

	err = p.handler.Handle(ctx, msg)
	switch {
	case err == nil:
		observe(outcomeProcessed, msg.Topic, msg.EventType)
		markLastProcessed(msg)
		return true
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Debug("duplicate delivery skipped")
		observe(outcomeDuplicate, msg.Topic, msg.EventType)
		return true
	default:
		logger.WithFields(log.Fields{"event_type": msg.EventType, "user_id": msg.UserID}).WithError(err).Error("handler error")
		observe(outcomeHandlerError, msg.Topic, msg.EventType)
		return false
	}
}
