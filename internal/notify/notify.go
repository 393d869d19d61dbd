package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/cargobooking/internal/kafka"
	"github.com/Domenick1991/cargobooking/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sender turns booking lifecycle events into shipper notifications. The
// delivery channel is the log for now.
type Sender struct {
	logger zerolog.Logger
}

func NewSender() *Sender {
	return &Sender{logger: log.With().Str("component", "notify").Logger()}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logger.Info().
		Str("ref_id", event.RefID).
		Str("type", event.Type).
		Str("location", event.Location).
		Time("occurred_at", event.OccurredAt).
		Msg(Message(event))
	metrics.RecordNotificationSent(event.Type)
	return nil
}

// Message is the human-readable notification text for event.
func Message(event kafka.BookingEvent) string {
	switch event.Type {
	case "BOOKED":
		return fmt.Sprintf("Shipment %s booked from %s to %s", event.RefID, event.Origin, event.Destination)
	case "DEPARTED":
		return fmt.Sprintf("Shipment %s departed %s", event.RefID, event.Location)
	case "ARRIVED":
		return fmt.Sprintf("Shipment %s arrived at %s", event.RefID, event.Location)
	case "DELIVERED":
		return fmt.Sprintf("Shipment %s delivered at %s", event.RefID, event.Location)
	case "CANCELLED":
		return fmt.Sprintf("Shipment %s was cancelled", event.RefID)
	default:
		return fmt.Sprintf("Shipment %s status changed to %s", event.RefID, event.Status)
	}
}
