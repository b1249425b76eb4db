package service

import (
	"time"

	"hospiq/pkg/model"
)

// Base consultation fees per counter type, in the smallest currency
// unit. Unknown counter types fall back to the general fee.
var consultationFees = map[string]int{
	model.CounterEmergency:   1000,
	model.CounterNeurology:   900,
	model.CounterCardiology:  800,
	model.CounterOrthopedics: 750,
	model.CounterDermatology: 650,
	model.CounterPediatrics:  600,
	model.CounterGeneral:     500,
}

const defaultConsultationFee = 500

// followUpDiscountPercent is deducted from the base fee for returning
// patients.
const followUpDiscountPercent = 30

func consultationFee(counterType, patientType string) int {
	fee, ok := consultationFees[counterType]
	if !ok {
		fee = defaultConsultationFee
	}

	if patientType == model.PatientTypeFollowUp {
		fee = fee * (100 - followUpDiscountPercent) / 100
	}

	return fee
}

func requiredDocuments(req *model.BookTicketRequest) []string {
	docs := []string{"Government-issued photo ID"}

	if req.PatientType == model.PatientTypeFollowUp {
		docs = append(docs, "Previous prescription and reports")
	}
	if req.Insurance != nil {
		docs = append(docs, "Insurance card")
	}
	if req.Priority == model.PriorityEmergency {
		docs = append(docs, "Referral or emergency note, if available")
	}

	return docs
}

func buildRecommendations(req *model.BookTicketRequest) model.BookingRecommendations {
	return model.BookingRecommendations{
		SuggestedArrivalTime: req.AppointmentDateTime.Add(-model.ArrivalLeadTime).Truncate(time.Minute),
		RequiredDocuments:    requiredDocuments(req),
	}
}
