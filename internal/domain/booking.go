package domain

import (
	"sort"
	"time"
)

type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusDeparted  BookingStatus = "DEPARTED"
	BookingStatusArrived   BookingStatus = "ARRIVED"
	BookingStatusDelivered BookingStatus = "DELIVERED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// CancelLocation is recorded on every CANCELLED event.
const CancelLocation = "SYSTEM"

type Event struct {
	Type       BookingStatus  `json:"type" bson:"type"`
	Location   string         `json:"location" bson:"location"`
	FlightInfo map[string]any `json:"flightInfo,omitempty" bson:"flightInfo,omitempty"`
	Timestamp  time.Time      `json:"timestamp" bson:"timestamp"`
}

type Booking struct {
	RefID       string        `json:"ref_id" bson:"ref_id"`
	Origin      string        `json:"origin" bson:"origin"`
	Destination string        `json:"destination" bson:"destination"`
	Pieces      int           `json:"pieces" bson:"pieces"`
	WeightKg    int           `json:"weight_kg" bson:"weight_kg"`
	Status      BookingStatus `json:"status" bson:"status"`
	FlightIDs   []string      `json:"flightIds" bson:"flightIds"`
	Events      []Event       `json:"events" bson:"events"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// BookingView is the history projection served by GET /bookings/:ref_id and
// stored in the cache. Events are always ordered by timestamp.
type BookingView struct {
	RefID       string        `json:"ref_id"`
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	Pieces      int           `json:"pieces"`
	WeightKg    int           `json:"weight_kg"`
	Status      BookingStatus `json:"status"`
	FlightIDs   []string      `json:"flightIds"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Events      []Event       `json:"events"`
}

// BookingSummary is one row of the admin listing.
type BookingSummary struct {
	RefID       string        `json:"ref_id"`
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	Status      BookingStatus `json:"status"`
	Pieces      int           `json:"pieces"`
	WeightKg    int           `json:"weight_kg"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type BookingPage struct {
	Total    int64            `json:"total"`
	Count    int              `json:"count"`
	Bookings []BookingSummary `json:"bookings"`
}

// NewEventTime returns the timestamp stamped on new events. Millisecond
// precision keeps every store and the cache byte-for-byte comparable.
func NewEventTime() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// View builds the history projection. The booking itself is not modified.
func (b *Booking) View() BookingView {
	events := make([]Event, len(b.Events))
	copy(events, b.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	flightIDs := b.FlightIDs
	if flightIDs == nil {
		flightIDs = []string{}
	}

	return BookingView{
		RefID:       b.RefID,
		Origin:      b.Origin,
		Destination: b.Destination,
		Pieces:      b.Pieces,
		WeightKg:    b.WeightKg,
		Status:      b.Status,
		FlightIDs:   flightIDs,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		Events:      events,
	}
}

func (b *Booking) Summary() BookingSummary {
	return BookingSummary{
		RefID:       b.RefID,
		Origin:      b.Origin,
		Destination: b.Destination,
		Status:      b.Status,
		Pieces:      b.Pieces,
		WeightKg:    b.WeightKg,
		CreatedAt:   b.CreatedAt,
	}
}

// Record appends a transition result to the booking.
func (b *Booking) Record(status BookingStatus, event Event) {
	b.Status = status
	b.Events = append(b.Events, event)
}
