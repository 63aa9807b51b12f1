package types

// BookingEvent names both audit-trail entries and the events streamed to
// tracking channel subscribers.
type BookingEvent string

func (e BookingEvent) String() string {
	return string(e)
}

const (
	EventBookingCreated      BookingEvent = "booking_created"
	EventCandidatesNotified  BookingEvent = "candidates_notified"
	EventStatusChanged       BookingEvent = "status_changed"
	EventLocationUpdated     BookingEvent = "location_updated"
	EventProfessionalArrived BookingEvent = "professional_arrived"
	EventTrackingEnded       BookingEvent = "tracking_session_ended"
	EventRescheduled         BookingEvent = "booking_rescheduled"
)
