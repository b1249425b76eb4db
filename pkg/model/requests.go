package model

import "time"

type BookTicketRequest struct {
	HospitalID          string     `json:"hospital_id" validate:"required,mongodb"`
	CounterID           string     `json:"counter_id" validate:"required"`
	AppointmentDateTime time.Time  `json:"appointment_date_time" validate:"required"`
	ReasonForVisit      string     `json:"reason_for_visit,omitempty" validate:"omitempty,max=500"`
	Symptoms            []string   `json:"symptoms,omitempty" validate:"omitempty,max=20,dive,max=200"`
	PatientType         string     `json:"patient_type,omitempty" validate:"omitempty,oneof=new follow_up"`
	Priority            string     `json:"priority,omitempty" validate:"omitempty,oneof=normal urgent emergency"`
	Insurance           *Insurance `json:"insurance,omitempty"`
}

type StatusUpdateRequest struct {
	Status             TicketStatus `json:"status" validate:"required"`
	CancellationReason string       `json:"cancellation_reason,omitempty" validate:"omitempty,max=500"`
	Notes              Notes        `json:"notes,omitempty"`
}

type RatingRequest struct {
	Score   int    `json:"score" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"omitempty,max=500"`
}

// BookingRecommendations are derived, non-persisted guidance returned
// with a fresh booking.
type BookingRecommendations struct {
	SuggestedArrivalTime time.Time `json:"suggested_arrival_time"`
	RequiredDocuments    []string  `json:"required_documents"`
}

type BookingResult struct {
	Ticket          *Ticket                `json:"ticket"`
	Counter         *Counter               `json:"counter"`
	Recommendations BookingRecommendations `json:"recommendations"`
}

// TicketDetails decorates a ticket with derived fields for the detail
// endpoint. QRPayload is an opaque sealed token gate scanners verify.
type TicketDetails struct {
	Ticket         *Ticket      `json:"ticket"`
	DisplayStatus  TicketStatus `json:"display_status"`
	CanBeCancelled bool         `json:"can_be_cancelled"`
	CanCheckIn     bool         `json:"can_check_in"`
	QRPayload      string       `json:"qr_payload,omitempty"`
}
