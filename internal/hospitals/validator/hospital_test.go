package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospiq/pkg/logger"
	"hospiq/pkg/model"
)

func newTestValidator() *HospitalValidator {
	return NewHospitalValidator(logger.New(logger.Config{Level: "error", Format: logger.TEXT}))
}

func validHospital() *model.Hospital {
	return &model.Hospital{
		Name: "City General Hospital",
		Code: "CGH01",
		City: "Mumbai",
		BedCapacity: model.BedCapacity{
			Total:     100,
			Available: 40,
			ICU:       20,
			General:   80,
		},
		Counters: []model.Counter{
			{
				ID:                 "ctr-general",
				Name:               "General Medicine",
				Type:               model.CounterGeneral,
				AverageServiceTime: 15,
				WorkingHours:       model.WorkingHours{Start: "08:00", End: "17:00"},
				IsActive:           true,
			},
		},
	}
}

func TestValidateAcceptsWellFormedHospital(t *testing.T) {
	v := newTestValidator()
	require.NoError(t, v.Validate(validHospital()))
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	v := newTestValidator()

	h := validHospital()
	h.Name = ""
	h.City = ""

	err := v.Validate(h)
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	assert.Len(t, verrs, 2)
}

func TestValidateBedCapacityInvariants(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name     string
		capacity model.BedCapacity
		wantErr  bool
	}{
		{"available equals total", model.BedCapacity{Total: 50, Available: 50, ICU: 10, General: 40}, false},
		{"available exceeds total", model.BedCapacity{Total: 50, Available: 51}, true},
		{"icu plus general exceeds total", model.BedCapacity{Total: 50, Available: 10, ICU: 30, General: 25}, true},
		{"icu plus general equals total", model.BedCapacity{Total: 50, Available: 10, ICU: 25, General: 25}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHospital()
			h.BedCapacity = tt.capacity
			err := v.Validate(h)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWorkingHoursFormat(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		hours   model.WorkingHours
		wantErr bool
	}{
		{"valid", model.WorkingHours{Start: "08:00", End: "17:00"}, false},
		{"midnight boundary", model.WorkingHours{Start: "00:00", End: "23:59"}, false},
		{"end before start", model.WorkingHours{Start: "17:00", End: "08:00"}, true},
		{"hour out of range", model.WorkingHours{Start: "25:00", End: "26:00"}, true},
		{"missing colon", model.WorkingHours{Start: "08-00", End: "17:00"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHospital()
			h.Counters[0].WorkingHours = tt.hours
			err := v.Validate(h)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRejectsDuplicateCounterIDs(t *testing.T) {
	v := newTestValidator()

	h := validHospital()
	dup := h.Counters[0]
	dup.Name = "General Medicine Annex"
	h.Counters = append(h.Counters, dup)

	err := v.Validate(h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate counter ID")
}

func TestValidateCounterUpdateHours(t *testing.T) {
	v := newTestValidator()

	bad := &model.CounterUpdate{
		WorkingHours: &model.WorkingHours{Start: "09:00", End: "09:00"},
	}
	assert.Error(t, v.ValidateCounterUpdate(bad))

	good := &model.CounterUpdate{
		WorkingHours: &model.WorkingHours{Start: "09:00", End: "18:00"},
	}
	assert.NoError(t, v.ValidateCounterUpdate(good))
}

func TestValidateUpdateBedCapacity(t *testing.T) {
	v := newTestValidator()

	bad := &model.HospitalUpdate{
		BedCapacity: &model.BedCapacity{Total: 10, Available: 20},
	}
	assert.Error(t, v.ValidateUpdate(bad))
}
