package events

// Event types carried in the event-type header of the ticket stream.
const (
	TicketBooked        = "ticket.booked"
	TicketStatusChanged = "ticket.status_changed"
	TicketCheckedIn     = "ticket.checked_in"
)
