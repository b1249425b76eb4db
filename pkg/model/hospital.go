package model

import (
	"strconv"
	"strings"
	"time"
)

// Counter types double as consultation-fee keys.
const (
	CounterGeneral     = "general"
	CounterCardiology  = "cardiology"
	CounterNeurology   = "neurology"
	CounterOrthopedics = "orthopedics"
	CounterPediatrics  = "pediatrics"
	CounterDermatology = "dermatology"
	CounterEmergency   = "emergency"
)

// WorkingHours is a pair of HH:MM strings. Appointments are matched
// against it by hour of day only.
type WorkingHours struct {
	Start string `json:"start" bson:"start" validate:"required,len=5"`
	End   string `json:"end" bson:"end" validate:"required,len=5"`
}

func parseHour(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h, true
}

func (w WorkingHours) StartHour() (int, bool) {
	return parseHour(w.Start)
}

func (w WorkingHours) EndHour() (int, bool) {
	return parseHour(w.End)
}

// Contains reports whether t's hour of day falls inside [start, end).
func (w WorkingHours) Contains(t time.Time) bool {
	start, ok := w.StartHour()
	if !ok {
		return false
	}
	end, ok := w.EndHour()
	if !ok {
		return false
	}
	h := t.Hour()
	return start <= h && h < end
}

// Counter is a single service line embedded in its hospital. It is
// owned exclusively by the hospital; ticket booking and cancellation
// mutate CurrentQueueLength in place.
type Counter struct {
	ID                 string       `json:"id" bson:"_id" validate:"required"`
	Name               string       `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Type               string       `json:"type" bson:"type" validate:"required"`
	CurrentQueueLength int          `json:"current_queue_length" bson:"current_queue_length" validate:"min=0"`
	AverageServiceTime int          `json:"average_service_time" bson:"average_service_time" validate:"required,min=1,max=240"` // minutes
	WorkingHours       WorkingHours `json:"working_hours" bson:"working_hours" validate:"required"`
	MaxCapacityPerHour int          `json:"max_capacity_per_hour" bson:"max_capacity_per_hour" validate:"min=0"`
	IsActive           bool         `json:"is_active" bson:"is_active"`
}

type BedCapacity struct {
	Total     int `json:"total" bson:"total" validate:"min=0"`
	Available int `json:"available" bson:"available" validate:"min=0"`
	ICU       int `json:"icu" bson:"icu" validate:"min=0"`
	General   int `json:"general" bson:"general" validate:"min=0"`
}

type Hospital struct {
	ID          string      `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name        string      `json:"name" bson:"name" validate:"required,min=2,max=200"`
	Code        string      `json:"code" bson:"code" validate:"required,min=2,max=20"`
	Address     string      `json:"address" bson:"address" validate:"omitempty,max=300"`
	City        string      `json:"city" bson:"city" validate:"required,min=2,max=100"`
	Phone       string      `json:"phone" bson:"phone" validate:"omitempty,e164"`
	IsActive    bool        `json:"is_active" bson:"is_active"`
	IsVerified  bool        `json:"is_verified" bson:"is_verified"`
	BedCapacity BedCapacity `json:"bed_capacity" bson:"bed_capacity"`
	Counters    []Counter   `json:"counters" bson:"counters" validate:"dive"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updated_at"`
}

// CounterByID looks a counter up in the embedded list.
func (h *Hospital) CounterByID(id string) *Counter {
	for i := range h.Counters {
		if h.Counters[i].ID == id {
			return &h.Counters[i]
		}
	}
	return nil
}

type HospitalUpdate struct {
	Name        string       `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Address     string       `json:"address,omitempty" validate:"omitempty,max=300"`
	City        string       `json:"city,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       string       `json:"phone,omitempty" validate:"omitempty,e164"`
	IsActive    *bool        `json:"is_active,omitempty"`
	IsVerified  *bool        `json:"is_verified,omitempty"`
	BedCapacity *BedCapacity `json:"bed_capacity,omitempty"`
}

type CounterUpdate struct {
	Name               string        `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	AverageServiceTime *int          `json:"average_service_time,omitempty" validate:"omitempty,min=1,max=240"`
	WorkingHours       *WorkingHours `json:"working_hours,omitempty"`
	MaxCapacityPerHour *int          `json:"max_capacity_per_hour,omitempty" validate:"omitempty,min=0"`
	IsActive           *bool         `json:"is_active,omitempty"`
}

type HospitalFilter struct {
	City        string
	CounterType string
	OnlyActive  bool
}
