package model

import (
	"fmt"
	"time"
)

type TicketStatus string

const (
	StatusBooked     TicketStatus = "booked"
	StatusConfirmed  TicketStatus = "confirmed"
	StatusInProgress TicketStatus = "in_progress"
	StatusCompleted  TicketStatus = "completed"
	StatusCancelled  TicketStatus = "cancelled"
	StatusNoShow     TicketStatus = "no_show"

	// StatusOverdue is display-only; it is never persisted.
	StatusOverdue TicketStatus = "overdue"
)

const (
	PatientTypeNew      = "new"
	PatientTypeFollowUp = "follow_up"

	PriorityNormal    = "normal"
	PriorityUrgent    = "urgent"
	PriorityEmergency = "emergency"
)

const (
	// CancellationCutoff mirrors the booking lead time: a ticket whose
	// appointment starts inside this window can no longer be cancelled.
	CancellationCutoff = 30 * time.Minute

	// Check-in opens this long before the appointment...
	CheckInEarlyWindow = 30 * time.Minute
	// ...and closes this long after it.
	CheckInLateWindow = 15 * time.Minute

	// OverlapWindow is the per-user guard: no two active tickets may sit
	// within this distance of each other.
	OverlapWindow = 30 * time.Minute

	// ArrivalLeadTime is how early patients are advised to arrive.
	ArrivalLeadTime = 15 * time.Minute
)

var statusTransitions = map[TicketStatus][]TicketStatus{
	StatusBooked:     {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// Valid reports whether s is a persistable status.
func (s TicketStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s TicketStatus) IsTerminal() bool {
	targets, ok := statusTransitions[s]
	return ok && len(targets) == 0
}

func (s TicketStatus) CanTransitionTo(to TicketStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ActiveStatuses are the non-terminal states that occupy a queue slot.
func ActiveStatuses() []TicketStatus {
	return []TicketStatus{StatusBooked, StatusConfirmed, StatusInProgress}
}

// Notes holds free-text annotations per author role. Status updates
// shallow-merge incoming notes over existing ones.
type Notes struct {
	Patient string `json:"patient,omitempty" bson:"patient,omitempty"`
	Staff   string `json:"staff,omitempty" bson:"staff,omitempty"`
	Doctor  string `json:"doctor,omitempty" bson:"doctor,omitempty"`
}

func (n Notes) Merge(in Notes) Notes {
	out := n
	if in.Patient != "" {
		out.Patient = in.Patient
	}
	if in.Staff != "" {
		out.Staff = in.Staff
	}
	if in.Doctor != "" {
		out.Doctor = in.Doctor
	}
	return out
}

type Insurance struct {
	Provider     string `json:"provider" bson:"provider" validate:"required,min=2,max=100"`
	PolicyNumber string `json:"policy_number" bson:"policy_number" validate:"required,min=2,max=50"`
}

type TicketRating struct {
	Score   int       `json:"score" bson:"score" validate:"required,min=1,max=5"`
	Comment string    `json:"comment,omitempty" bson:"comment,omitempty" validate:"omitempty,max=500"`
	RatedAt time.Time `json:"rated_at" bson:"rated_at"`
}

// Ticket is one patient's booking at one hospital counter. Tickets are
// never deleted; cancellation, no-show and completion are terminal
// states.
type Ticket struct {
	ID                  string       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TicketNumber        string       `json:"ticket_number" bson:"ticket_number"`
	UserID              string       `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	HospitalID          string       `json:"hospital_id" bson:"hospital_id" validate:"required,mongodb"`
	CounterID           string       `json:"counter_id" bson:"counter_id" validate:"required"`
	AppointmentDateTime time.Time    `json:"appointment_date_time" bson:"appointment_date_time" validate:"required"`
	BookingDateTime     time.Time    `json:"booking_date_time" bson:"booking_date_time"`
	Status              TicketStatus `json:"status" bson:"status"`
	QueuePosition       int          `json:"queue_position" bson:"queue_position"`
	EstimatedWaitTime   int          `json:"estimated_wait_time" bson:"estimated_wait_time"` // minutes
	ActualWaitTime      int          `json:"actual_wait_time,omitempty" bson:"actual_wait_time,omitempty"`
	ServiceStartTime    *time.Time   `json:"service_start_time,omitempty" bson:"service_start_time,omitempty"`
	ServiceEndTime      *time.Time   `json:"service_end_time,omitempty" bson:"service_end_time,omitempty"`
	IsCheckedIn         bool         `json:"is_checked_in" bson:"is_checked_in"`
	CheckInTime         *time.Time   `json:"check_in_time,omitempty" bson:"check_in_time,omitempty"`
	ReasonForVisit      string       `json:"reason_for_visit,omitempty" bson:"reason_for_visit,omitempty" validate:"omitempty,max=500"`
	Symptoms            []string     `json:"symptoms,omitempty" bson:"symptoms,omitempty" validate:"omitempty,max=20,dive,max=200"`
	PatientType         string       `json:"patient_type" bson:"patient_type" validate:"omitempty,oneof=new follow_up"`
	Priority            string       `json:"priority" bson:"priority" validate:"omitempty,oneof=normal urgent emergency"`
	Insurance           *Insurance   `json:"insurance,omitempty" bson:"insurance,omitempty"`
	ConsultationFee     int          `json:"consultation_fee" bson:"consultation_fee"`
	CancellationReason  string       `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledAt         *time.Time   `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancelledBy         string       `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	Notes               Notes        `json:"notes" bson:"notes"`
	Rating              *TicketRating `json:"rating,omitempty" bson:"rating,omitempty"`
}

func (t *Ticket) IsOwnedBy(userID string) bool {
	return t.UserID == userID
}

// CanBeCancelled: not already terminal via the transition table, and
// the appointment is at least the cancellation cutoff away.
func (t *Ticket) CanBeCancelled(now time.Time) bool {
	if !t.Status.CanTransitionTo(StatusCancelled) {
		return false
	}
	return t.AppointmentDateTime.Sub(now) >= CancellationCutoff
}

// CanCheckIn: only booked, not yet checked-in tickets inside the window
// [appointment-30m, appointment+15m] may check in.
func (t *Ticket) CanCheckIn(now time.Time) bool {
	if t.Status != StatusBooked || t.IsCheckedIn {
		return false
	}
	opens := t.AppointmentDateTime.Add(-CheckInEarlyWindow)
	closes := t.AppointmentDateTime.Add(CheckInLateWindow)
	return !now.Before(opens) && !now.After(closes)
}

// DisplayStatus surfaces "overdue" for active tickets whose appointment
// has passed, without mutating the stored status.
func (t *Ticket) DisplayStatus(now time.Time) TicketStatus {
	if (t.Status == StatusBooked || t.Status == StatusConfirmed) && now.After(t.AppointmentDateTime) {
		return StatusOverdue
	}
	return t.Status
}

// FormatTicketNumber renders a daily sequence as TK{YY}{MM}{DD}{seq:04d}.
func FormatTicketNumber(day time.Time, seq int) string {
	return fmt.Sprintf("TK%s%04d", day.Format("060102"), seq)
}

// SequenceKey identifies the per-day atomic ticket-number counter.
func SequenceKey(day time.Time) string {
	return "tickets-" + day.Format("2006-01-02")
}

// TicketSequence backs ticket-number generation with an atomic $inc so
// concurrent bookings can never observe the same sequence value.
type TicketSequence struct {
	ID  string `bson:"_id"`
	Seq int    `bson:"seq"`
}

// BookingLock is an advisory lock held while a user's overlap check and
// insert run, preventing double submission races. Expired locks are
// reaped by a TTL index.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type TicketFilter struct {
	Status     TicketStatus
	HospitalID string
	From       *time.Time
	To         *time.Time
}
