package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// BookingEvent is the lifecycle message published after every successful
// create or transition. Delivery is at-most-once.
type BookingEvent struct {
	Type        string    `json:"type"`
	RefID       string    `json:"ref_id"`
	Status      string    `json:"status"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Location    string    `json:"location"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBookingEvent describes the latest event recorded on b.
func NewBookingEvent(b *domain.Booking) BookingEvent {
	event := BookingEvent{
		Type:        string(b.Status),
		RefID:       b.RefID,
		Status:      string(b.Status),
		Origin:      b.Origin,
		Destination: b.Destination,
		OccurredAt:  b.UpdatedAt,
	}
	if n := len(b.Events); n > 0 {
		last := b.Events[n-1]
		event.Type = string(last.Type)
		event.Location = last.Location
		event.OccurredAt = last.Timestamp
	}
	return event
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: 5 * time.Second,
	}

	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	log.Debug().Str("topic", topic).Str("key", key).Msg("published to kafka")
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
