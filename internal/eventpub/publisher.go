// Package eventpub publishes committed ledger changes to downstream consumers.
package eventpub

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher emits ledger events after the ledger change is committed.
//
//go:generate mockgen -source publisher.go -destination publisher_mock.go -package eventpub
type Publisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// KafkaPublisher writes ledger events as JSON messages keyed by account id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func message(event domain.LedgerEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(strconv.FormatInt(int64(event.AccountID), 10)),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}

// Publish writes the event to Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	msg, err := message(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, domain.LedgerEvent) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// New returns a Kafka publisher, or Nop when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}

	return NewKafkaPublisher(brokers, topic)
}

// Emit stamps and publishes the event. A failed publish is logged and never undoes the
// committed ledger change.
func Emit(ctx context.Context, p Publisher, event domain.LedgerEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := p.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("event", event.Type).Msg("cannot publish ledger event")
	}
}
