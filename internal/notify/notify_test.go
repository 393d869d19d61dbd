package notify

import (
	"context"
	"testing"

	"github.com/Domenick1991/cargobooking/internal/kafka"
	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	testCases := []struct {
		event kafka.BookingEvent
		want  string
	}{
		{kafka.BookingEvent{Type: "BOOKED", RefID: "BK-1", Origin: "DEL", Destination: "BLR"}, "Shipment BK-1 booked from DEL to BLR"},
		{kafka.BookingEvent{Type: "DEPARTED", RefID: "BK-1", Location: "DEL"}, "Shipment BK-1 departed DEL"},
		{kafka.BookingEvent{Type: "ARRIVED", RefID: "BK-1", Location: "BLR"}, "Shipment BK-1 arrived at BLR"},
		{kafka.BookingEvent{Type: "DELIVERED", RefID: "BK-1", Location: "BLR"}, "Shipment BK-1 delivered at BLR"},
		{kafka.BookingEvent{Type: "CANCELLED", RefID: "BK-1"}, "Shipment BK-1 was cancelled"},
		{kafka.BookingEvent{Type: "X", RefID: "BK-1", Status: "X"}, "Shipment BK-1 status changed to X"},
	}

	for _, tc := range testCases {
		t.Run(tc.event.Type, func(t *testing.T) {
			assert.Equal(t, tc.want, Message(tc.event))
		})
	}
}

func TestSender_Send(t *testing.T) {
	s := NewSender()
	assert.NoError(t, s.Send(context.Background(), kafka.BookingEvent{Type: "BOOKED", RefID: "BK-1"}))
}
