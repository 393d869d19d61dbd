package domain

type Action string

const (
	ActionDepart  Action = "depart"
	ActionArrive  Action = "arrive"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
)

var Actions = []Action{ActionDepart, ActionArrive, ActionDeliver, ActionCancel}

var Statuses = []BookingStatus{
	BookingStatusBooked,
	BookingStatusDeparted,
	BookingStatusArrived,
	BookingStatusDelivered,
	BookingStatusCancelled,
}

// TransitionPayload carries the client-supplied part of the appended event.
type TransitionPayload struct {
	Location   string
	FlightInfo map[string]any
}

var transitions = map[BookingStatus]map[Action]BookingStatus{
	BookingStatusBooked: {
		ActionDepart: BookingStatusDeparted,
		ActionCancel: BookingStatusCancelled,
	},
	BookingStatusDeparted: {
		ActionArrive: BookingStatusArrived,
		ActionCancel: BookingStatusCancelled,
	},
	BookingStatusArrived: {
		ActionDeliver: BookingStatusDelivered,
	},
	BookingStatusDelivered: {},
	BookingStatusCancelled: {},
}

func (a Action) IsValid() bool {
	switch a {
	case ActionDepart, ActionArrive, ActionDeliver, ActionCancel:
		return true
	}
	return false
}

func (s BookingStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no action is allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func CanTransition(current BookingStatus, action Action) bool {
	_, ok := transitions[current][action]
	return ok
}

// Apply decides the outcome of action against the booking's current state.
// It has no side effects: the caller records the returned status and event.
func Apply(b *Booking, action Action, payload TransitionPayload) (BookingStatus, Event, error) {
	next, ok := transitions[b.Status][action]
	if !ok {
		return b.Status, Event{}, rejection(b, action)
	}

	event := Event{
		Type:      next,
		Location:  payload.Location,
		Timestamp: NewEventTime(),
	}
	switch action {
	case ActionDepart:
		event.FlightInfo = payload.FlightInfo
	case ActionDeliver:
		if event.Location == "" {
			event.Location = b.Destination
		}
	case ActionCancel:
		event.Location = CancelLocation
	}
	return next, event, nil
}

func rejection(b *Booking, action Action) error {
	switch {
	case action == ActionCancel && (b.Status == BookingStatusArrived || b.Status == BookingStatusDelivered):
		return NewError(KindAlreadyArrived, "Cannot cancel a booking that has already arrived or been delivered")
	case action != ActionCancel && b.Status == BookingStatusCancelled:
		return NewError(KindCancelledBooking, cancelledMessage(action))
	case !action.IsValid():
		return NewError(KindInvalidTransition, "unknown action "+string(action))
	default:
		return NewError(KindInvalidTransition, "cannot "+string(action)+" a booking in status "+string(b.Status))
	}
}

func cancelledMessage(action Action) string {
	switch action {
	case ActionDepart:
		return "Cancelled booking cannot be departed"
	case ActionArrive:
		return "Cancelled booking cannot arrive"
	case ActionDeliver:
		return "Cancelled booking cannot be delivered"
	}
	return "Cancelled booking cannot be changed"
}
