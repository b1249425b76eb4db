package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"hospiq/internal/prediction"
	ticketserrors "hospiq/internal/tickets/errors"
	"hospiq/internal/tickets/validator"
	"hospiq/pkg/auth"
	"hospiq/pkg/config"
	mongotx "hospiq/pkg/db/mongo"
	apperrors "hospiq/pkg/errors"
	"hospiq/pkg/logger"
	"hospiq/pkg/model"
)

const (
	testHospitalID = "64b0000000000000000000a1"
	testCounterID  = "ctr-general"
	testUserID     = "64b0000000000000000000b1"
	otherUserID    = "64b0000000000000000000b2"
	staffUserID    = "64b0000000000000000000c1"
)

// appointment on a Tuesday at 10:00 inside the 08:00-17:00 window
var (
	testAppointment = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	testNow         = testAppointment.Add(-2 * time.Hour)
)

// --- Fakes ---

type fakeTicketRepo struct {
	tickets map[string]*model.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*model.Ticket{}, nextID: 1}
}

func (r *fakeTicketRepo) Create(_ context.Context, t *model.Ticket) error {
	t.ID = fmt.Sprintf("ticket-%03d", r.nextID)
	r.nextID++
	copied := *t
	r.tickets[t.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) FindByID(_ context.Context, id string) (*model.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, ticketserrors.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTicketRepo) FindByUser(_ context.Context, userID string, filter *model.TicketFilter, limit int, offset int64) ([]*model.Ticket, error) {
	var out []*model.Ticket
	for _, t := range r.tickets {
		if t.UserID != userID {
			continue
		}
		if filter != nil && filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter != nil && filter.HospitalID != "" && t.HospitalID != filter.HospitalID {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByUser(ctx context.Context, userID string, filter *model.TicketFilter) (int64, error) {
	found, _ := r.FindByUser(ctx, userID, filter, 0, 0)
	return int64(len(found)), nil
}

func (r *fakeTicketRepo) FindActiveOverlap(_ context.Context, userID string, at time.Time) ([]*model.Ticket, error) {
	var out []*model.Ticket
	for _, t := range r.tickets {
		if t.UserID != userID || t.Status.IsTerminal() {
			continue
		}
		diff := t.AppointmentDateTime.Sub(at)
		if diff > -model.OverlapWindow && diff < model.OverlapWindow {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) CountActiveSameDay(_ context.Context, hospitalID, counterID string, at time.Time) (int64, error) {
	var count int64
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	for _, t := range r.tickets {
		if t.HospitalID != hospitalID || t.CounterID != counterID || t.Status.IsTerminal() {
			continue
		}
		if t.AppointmentDateTime.Before(dayStart) || !t.AppointmentDateTime.Before(dayStart.Add(24*time.Hour)) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, id string, t *model.Ticket) error {
	if _, ok := r.tickets[id]; !ok {
		return ticketserrors.ErrNotFound
	}
	copied := *t
	copied.ID = id
	r.tickets[id] = &copied
	return nil
}

func (r *fakeTicketRepo) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

type fakeSequenceRepo struct {
	counters map[string]int
}

func (r *fakeSequenceRepo) Next(_ context.Context, day time.Time) (int, error) {
	if r.counters == nil {
		r.counters = map[string]int{}
	}
	key := model.SequenceKey(day)
	r.counters[key]++
	return r.counters[key], nil
}

type fakeLockRepo struct {
	held map[string]bool
}

func (r *fakeLockRepo) Acquire(_ context.Context, lock *model.BookingLock) error {
	if r.held == nil {
		r.held = map[string]bool{}
	}
	if r.held[lock.ID] {
		return ticketserrors.ErrLockHeld
	}
	r.held[lock.ID] = true
	return nil
}

func (r *fakeLockRepo) Release(_ context.Context, id string) error {
	delete(r.held, id)
	return nil
}

type fakeHospitals struct {
	hospital         *model.Hospital
	queueAdjustments []int
}

func (f *fakeHospitals) GetByID(_ context.Context, id string) (*model.Hospital, error) {
	if f.hospital == nil || f.hospital.ID != id {
		return nil, apperrors.NotFoundWithID("Hospital", id)
	}
	copied := *f.hospital
	return &copied, nil
}

func (f *fakeHospitals) Create(context.Context, *model.Hospital) error { return nil }
func (f *fakeHospitals) GetAll(context.Context, *model.HospitalFilter, int, int64) ([]*model.Hospital, int64, error) {
	return nil, 0, nil
}
func (f *fakeHospitals) Update(context.Context, string, *model.HospitalUpdate) error { return nil }
func (f *fakeHospitals) UpdateCounter(context.Context, string, string, *model.CounterUpdate) error {
	return nil
}
func (f *fakeHospitals) AdjustCounterQueue(_ context.Context, _, _ string, delta int) error {
	f.queueAdjustments = append(f.queueAdjustments, delta)
	return nil
}

type fakeOracle struct {
	prediction   prediction.Prediction
	err          error
	lastFeatures prediction.Features
}

func (o *fakeOracle) PredictWaitTime(_ context.Context, f prediction.Features) (prediction.Prediction, error) {
	o.lastFeatures = f
	if o.err != nil {
		return prediction.Prediction{}, o.err
	}
	return o.prediction, nil
}

// --- Fixture ---

type fixture struct {
	svc       *ticketService
	repo      *fakeTicketRepo
	hospitals *fakeHospitals
	oracle    *fakeOracle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: logger.TEXT})
	cfg := &config.Config{
		Log:             log,
		BookingLeadTime: 30 * time.Minute,
		OracleTimeout:   300 * time.Millisecond,
	}

	repo := newFakeTicketRepo()
	hospitals := &fakeHospitals{hospital: activeHospital()}
	oracle := &fakeOracle{prediction: prediction.Prediction{WaitMinutes: 37, Confidence: 0.8}}

	svc := NewTicketService(
		repo,
		&fakeSequenceRepo{},
		&fakeLockRepo{},
		validator.NewTicketValidator(log),
		hospitals,
		oracle,
		nil,
		cfg,
	).(*ticketService)
	svc.now = func() time.Time { return testNow }

	return &fixture{svc: svc, repo: repo, hospitals: hospitals, oracle: oracle}
}

func activeHospital() *model.Hospital {
	return &model.Hospital{
		ID:         testHospitalID,
		Name:       "City General",
		Code:       "CGH01",
		City:       "Mumbai",
		IsActive:   true,
		IsVerified: true,
		Counters: []model.Counter{
			{
				ID:                 testCounterID,
				Name:               "General Medicine",
				Type:               model.CounterGeneral,
				AverageServiceTime: 15,
				WorkingHours:       model.WorkingHours{Start: "08:00", End: "17:00"},
				IsActive:           true,
			},
			{
				ID:                 "ctr-emergency",
				Name:               "Emergency",
				Type:               model.CounterEmergency,
				AverageServiceTime: 10,
				WorkingHours:       model.WorkingHours{Start: "00:00", End: "23:59"},
				IsActive:           true,
			},
		},
	}
}

func bookingRequest() *model.BookTicketRequest {
	return &model.BookTicketRequest{
		HospitalID:          testHospitalID,
		CounterID:           testCounterID,
		AppointmentDateTime: testAppointment,
		ReasonForVisit:      "Persistent cough",
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.AsAppError(err).Code)
}

// --- Booking ---

func TestBookHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	require.NoError(t, err)

	ticket := result.Ticket
	assert.Equal(t, model.StatusBooked, ticket.Status)
	assert.Equal(t, 1, ticket.QueuePosition)
	assert.Equal(t, "TK2609010001", ticket.TicketNumber)
	assert.Equal(t, 500, ticket.ConsultationFee)
	assert.Equal(t, 37, ticket.EstimatedWaitTime, "oracle estimate must be used when available")
	assert.Equal(t, model.PatientTypeNew, ticket.PatientType)
	assert.Equal(t, model.PriorityNormal, ticket.Priority)

	assert.Equal(t, []int{1}, f.hospitals.queueAdjustments, "booking must bump the counter queue")
	assert.Equal(t, testAppointment.Add(-15*time.Minute), result.Recommendations.SuggestedArrivalTime)
	assert.Contains(t, result.Recommendations.RequiredDocuments, "Government-issued photo ID")
}

func TestBookRejectsShortLeadTime(t *testing.T) {
	f := newFixture(t)

	req := bookingRequest()
	req.AppointmentDateTime = testNow.Add(20 * time.Minute)

	_, err := f.svc.Book(context.Background(), testUserID, req)
	assertCode(t, err, apperrors.CodeInvalidTimeWindow)
}

func TestBookReportsUnknownHospitalBeforeLeadTime(t *testing.T) {
	f := newFixture(t)

	req := bookingRequest()
	req.HospitalID = "64b0000000000000000000ff"
	req.AppointmentDateTime = testNow.Add(10 * time.Minute)

	_, err := f.svc.Book(context.Background(), testUserID, req)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestBookRejectsOutsideWorkingHours(t *testing.T) {
	f := newFixture(t)

	req := bookingRequest()
	req.AppointmentDateTime = time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)

	_, err := f.svc.Book(context.Background(), testUserID, req)
	assertCode(t, err, apperrors.CodeOutsideWorkingHours)
}

func TestBookRejectsInactiveHospital(t *testing.T) {
	f := newFixture(t)
	f.hospitals.hospital.IsActive = false

	_, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	assertCode(t, err, apperrors.CodeInactiveResource)
}

func TestBookRejectsUnverifiedHospital(t *testing.T) {
	f := newFixture(t)
	f.hospitals.hospital.IsVerified = false

	_, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	assertCode(t, err, apperrors.CodeInactiveResource)
}

func TestBookRejectsUnknownCounter(t *testing.T) {
	f := newFixture(t)

	req := bookingRequest()
	req.CounterID = "ctr-missing"

	_, err := f.svc.Book(context.Background(), testUserID, req)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestBookRejectsInactiveCounter(t *testing.T) {
	f := newFixture(t)
	f.hospitals.hospital.Counters[0].IsActive = false

	_, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	assertCode(t, err, apperrors.CodeInactiveResource)
}

func TestBookRejectsOverlappingTicket(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	require.NoError(t, err)

	req := bookingRequest()
	req.AppointmentDateTime = testAppointment.Add(20 * time.Minute)

	_, err = f.svc.Book(context.Background(), testUserID, req)
	assertCode(t, err, apperrors.CodeConflictingAppointment)
}

func TestBookAllowsAdjacentAppointments(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	require.NoError(t, err)

	req := bookingRequest()
	req.AppointmentDateTime = testAppointment.Add(model.OverlapWindow)

	_, err = f.svc.Book(context.Background(), testUserID, req)
	assert.NoError(t, err, "appointments exactly the overlap window apart must be allowed")
}

func TestBookQueuePositionsAreMonotonic(t *testing.T) {
	f := newFixture(t)

	users := []string{testUserID, otherUserID, staffUserID}
	for i, userID := range users {
		req := bookingRequest()
		req.AppointmentDateTime = testAppointment.Add(time.Duration(i) * time.Hour)

		result, err := f.svc.Book(context.Background(), userID, req)
		require.NoError(t, err)
		assert.Equal(t, i+1, result.Ticket.QueuePosition)
	}
}

func TestBookEarlierSlotJoinsBackOfQueue(t *testing.T) {
	f := newFixture(t)

	slots := []time.Time{
		testAppointment,
		testAppointment.Add(4 * time.Hour),
		testAppointment.Add(-90 * time.Minute),
	}
	users := []string{testUserID, otherUserID, staffUserID}
	for i, userID := range users {
		req := bookingRequest()
		req.AppointmentDateTime = slots[i]

		result, err := f.svc.Book(context.Background(), userID, req)
		require.NoError(t, err)
		assert.Equal(t, i+1, result.Ticket.QueuePosition,
			"position counts every active same-day ticket regardless of slot order")
	}
}

func TestBookTicketNumbersAreUniquePerDay(t *testing.T) {
	f := newFixture(t)

	seen := map[string]bool{}
	users := []string{testUserID, otherUserID, staffUserID}
	for i, userID := range users {
		req := bookingRequest()
		req.AppointmentDateTime = testAppointment.Add(time.Duration(i) * time.Hour)

		result, err := f.svc.Book(context.Background(), userID, req)
		require.NoError(t, err)
		assert.False(t, seen[result.Ticket.TicketNumber], "duplicate ticket number %s", result.Ticket.TicketNumber)
		seen[result.Ticket.TicketNumber] = true
		assert.Regexp(t, `^TK\d{10}$`, result.Ticket.TicketNumber)
	}
}

func TestBookTicketNumberUsesBookingDay(t *testing.T) {
	f := newFixture(t)

	req := bookingRequest()
	req.AppointmentDateTime = testAppointment.Add(24 * time.Hour)

	result, err := f.svc.Book(context.Background(), testUserID, req)
	require.NoError(t, err)
	assert.Equal(t, "TK2609010001", result.Ticket.TicketNumber,
		"number carries the day the booking was made, not the appointment day")
}

func TestBookConsultationFees(t *testing.T) {
	tests := []struct {
		name        string
		counterID   string
		patientType string
		want        int
	}{
		{"general new patient", testCounterID, model.PatientTypeNew, 500},
		{"emergency new patient", "ctr-emergency", model.PatientTypeNew, 1000},
		{"emergency follow-up", "ctr-emergency", model.PatientTypeFollowUp, 700},
		{"general follow-up", testCounterID, model.PatientTypeFollowUp, 350},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			req := bookingRequest()
			req.CounterID = tt.counterID
			req.PatientType = tt.patientType

			result, err := f.svc.Book(context.Background(), testUserID, req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Ticket.ConsultationFee)
		})
	}
}

func TestBookFallsBackWhenOracleFails(t *testing.T) {
	f := newFixture(t)
	f.oracle.err = fmt.Errorf("oracle unreachable")
	f.hospitals.hospital.Counters[0].CurrentQueueLength = 4

	result, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	require.NoError(t, err)

	// fallback = live queue length (4) * average service time (15)
	assert.Equal(t, 60, result.Ticket.EstimatedWaitTime)
}

func TestBookFeedsLiveQueueLengthToOracle(t *testing.T) {
	f := newFixture(t)
	f.hospitals.hospital.Counters[0].CurrentQueueLength = 7

	_, err := f.svc.Book(context.Background(), testUserID, bookingRequest())
	require.NoError(t, err)
	assert.Equal(t, 7, f.oracle.lastFeatures.CurrentQueueLength)
}

func TestBookRejectsMissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), testUserID, &model.BookTicketRequest{})
	assertCode(t, err, apperrors.CodeValidation)
	assert.NotEmpty(t, apperrors.AsAppError(err).Fields)
}

// --- Status updates ---

func bookTicket(t *testing.T, f *fixture, userID string) *model.Ticket {
	t.Helper()
	result, err := f.svc.Book(context.Background(), userID, bookingRequest())
	require.NoError(t, err)
	return result.Ticket
}

func staffUpdate(t *testing.T, f *fixture, ticketID string, status model.TicketStatus) *model.Ticket {
	t.Helper()
	req := &model.StatusUpdateRequest{Status: status}
	if status == model.StatusCancelled {
		req.CancellationReason = "cancelled by staff"
	}
	updated, err := f.svc.UpdateStatus(context.Background(), auth.User{ID: staffUserID, Role: auth.RoleStaff}, ticketID, req)
	require.NoError(t, err)
	return updated
}

func TestUpdateStatusFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	updated := staffUpdate(t, f, ticket.ID, model.StatusConfirmed)
	assert.Equal(t, model.StatusConfirmed, updated.Status)

	updated = staffUpdate(t, f, ticket.ID, model.StatusInProgress)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	assert.NotNil(t, updated.ServiceStartTime)

	updated = staffUpdate(t, f, ticket.ID, model.StatusCompleted)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.NotNil(t, updated.ServiceEndTime)

	// booking bumped the queue, completion freed it
	assert.Equal(t, []int{1, -1}, f.hospitals.queueAdjustments)
}

func TestUpdateStatusRejectsInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	staff := auth.User{ID: staffUserID, Role: auth.RoleStaff}

	ticket := bookTicket(t, f, testUserID)

	// booked -> completed skips confirmation and service
	_, err := f.svc.UpdateStatus(context.Background(), staff, ticket.ID, &model.StatusUpdateRequest{Status: model.StatusCompleted})
	assertCode(t, err, apperrors.CodeInvalidTransition)

	// terminal states accept nothing
	staffUpdate(t, f, ticket.ID, model.StatusCancelled)
	_, err = f.svc.UpdateStatus(context.Background(), staff, ticket.ID, &model.StatusUpdateRequest{Status: model.StatusConfirmed})
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	_, err := f.svc.UpdateStatus(context.Background(), auth.User{ID: staffUserID, Role: auth.RoleStaff}, ticket.ID, &model.StatusUpdateRequest{Status: "resurrected"})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestPatientCanOnlyCancel(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	patient := auth.User{ID: testUserID, Role: auth.RolePatient}
	_, err := f.svc.UpdateStatus(context.Background(), patient, ticket.ID, &model.StatusUpdateRequest{Status: model.StatusConfirmed})
	assertCode(t, err, apperrors.CodeForbidden)

	updated, err := f.svc.UpdateStatus(context.Background(), patient, ticket.ID, &model.StatusUpdateRequest{
		Status:             model.StatusCancelled,
		CancellationReason: "schedule conflict",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, updated.Status)
	assert.Equal(t, "schedule conflict", updated.CancellationReason)
	assert.Equal(t, testUserID, updated.CancelledBy)
	assert.NotNil(t, updated.CancelledAt)
}

func TestPatientCannotCancelInsideCutoff(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	f.svc.now = func() time.Time { return testAppointment.Add(-20 * time.Minute) }

	patient := auth.User{ID: testUserID, Role: auth.RolePatient}
	_, err := f.svc.UpdateStatus(context.Background(), patient, ticket.ID, &model.StatusUpdateRequest{
		Status:             model.StatusCancelled,
		CancellationReason: "running late",
	})
	assertCode(t, err, apperrors.CodeInvalidTimeWindow)

	// staff override is allowed inside the cutoff
	updated := staffUpdate(t, f, ticket.ID, model.StatusCancelled)
	assert.Equal(t, model.StatusCancelled, updated.Status)
}

func TestCancellationRequiresReason(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	patient := auth.User{ID: testUserID, Role: auth.RolePatient}
	_, err := f.svc.UpdateStatus(context.Background(), patient, ticket.ID, &model.StatusUpdateRequest{Status: model.StatusCancelled})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestPatientCannotTouchForeignTicket(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	stranger := auth.User{ID: otherUserID, Role: auth.RolePatient}
	_, err := f.svc.UpdateStatus(context.Background(), stranger, ticket.ID, &model.StatusUpdateRequest{Status: model.StatusCancelled})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestActualWaitTimeSpansServiceWindow(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)
	staffUpdate(t, f, ticket.ID, model.StatusConfirmed)

	start := testAppointment.Add(5 * time.Minute)
	f.svc.now = func() time.Time { return start }
	updated := staffUpdate(t, f, ticket.ID, model.StatusInProgress)
	assert.Zero(t, updated.ActualWaitTime, "wait is not known until service ends")

	f.svc.now = func() time.Time { return start.Add(23 * time.Minute) }
	updated = staffUpdate(t, f, ticket.ID, model.StatusCompleted)
	assert.Equal(t, 23, updated.ActualWaitTime)
}

func TestNotesMergeOnStatusUpdate(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	staff := auth.User{ID: staffUserID, Role: auth.RoleStaff}
	updated, err := f.svc.UpdateStatus(context.Background(), staff, ticket.ID, &model.StatusUpdateRequest{
		Status: model.StatusConfirmed,
		Notes:  model.Notes{Staff: "wheelchair access needed"},
	})
	require.NoError(t, err)

	updated, err = f.svc.UpdateStatus(context.Background(), staff, updated.ID, &model.StatusUpdateRequest{
		Status: model.StatusInProgress,
		Notes:  model.Notes{Doctor: "BP elevated"},
	})
	require.NoError(t, err)

	assert.Equal(t, "wheelchair access needed", updated.Notes.Staff, "earlier notes must survive the merge")
	assert.Equal(t, "BP elevated", updated.Notes.Doctor)
}

// --- Check-in ---

func TestCheckInWithinWindow(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	f.svc.now = func() time.Time { return testAppointment.Add(-15 * time.Minute) }

	updated, err := f.svc.CheckIn(context.Background(), testUserID, ticket.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsCheckedIn)
	require.NotNil(t, updated.CheckInTime)
	assert.Equal(t, model.StatusConfirmed, updated.Status)
}

func TestCheckInRejectedOutsideWindow(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		at   time.Time
	}{
		{"too early", testAppointment.Add(-45 * time.Minute)},
		{"too late", testAppointment.Add(20 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := bookTicket(t, f, testUserID)
			t.Cleanup(func() {
				f.svc.now = func() time.Time { return testNow }
				staffUpdate(t, f, ticket.ID, model.StatusCancelled)
			})

			f.svc.now = func() time.Time { return tt.at }
			_, err := f.svc.CheckIn(context.Background(), testUserID, ticket.ID)
			assertCode(t, err, apperrors.CodeInvalidTimeWindow)
		})
	}
}

func TestCheckInRequiresBookedStatus(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)
	staffUpdate(t, f, ticket.ID, model.StatusConfirmed)

	f.svc.now = func() time.Time { return testAppointment.Add(-10 * time.Minute) }

	_, err := f.svc.CheckIn(context.Background(), testUserID, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestCheckInTwiceIsConflict(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	f.svc.now = func() time.Time { return testAppointment.Add(-10 * time.Minute) }

	_, err := f.svc.CheckIn(context.Background(), testUserID, ticket.ID)
	require.NoError(t, err)

	_, err = f.svc.CheckIn(context.Background(), testUserID, ticket.ID)
	assertCode(t, err, apperrors.CodeConflict)
}

// --- Rating ---

func completeTicket(t *testing.T, f *fixture, userID string) *model.Ticket {
	t.Helper()
	ticket := bookTicket(t, f, userID)
	staffUpdate(t, f, ticket.ID, model.StatusConfirmed)
	staffUpdate(t, f, ticket.ID, model.StatusInProgress)
	return staffUpdate(t, f, ticket.ID, model.StatusCompleted)
}

func TestRateCompletedTicket(t *testing.T) {
	f := newFixture(t)
	ticket := completeTicket(t, f, testUserID)

	rated, err := f.svc.Rate(context.Background(), testUserID, ticket.ID, &model.RatingRequest{
		Score:   4,
		Comment: "Short wait, thorough doctor",
	})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, rated.Rating.Score)
	assert.False(t, rated.Rating.RatedAt.IsZero())
}

func TestRateRejectsActiveTicket(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	_, err := f.svc.Rate(context.Background(), testUserID, ticket.ID, &model.RatingRequest{Score: 5})
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestRateRejectsDoubleRating(t *testing.T) {
	f := newFixture(t)
	ticket := completeTicket(t, f, testUserID)

	_, err := f.svc.Rate(context.Background(), testUserID, ticket.ID, &model.RatingRequest{Score: 5})
	require.NoError(t, err)

	_, err = f.svc.Rate(context.Background(), testUserID, ticket.ID, &model.RatingRequest{Score: 1})
	assertCode(t, err, apperrors.CodeConflict)
}

func TestRateRejectsForeignTicket(t *testing.T) {
	f := newFixture(t)
	ticket := completeTicket(t, f, testUserID)

	_, err := f.svc.Rate(context.Background(), otherUserID, ticket.ID, &model.RatingRequest{Score: 3})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestRateRejectsOutOfRangeScore(t *testing.T) {
	f := newFixture(t)
	ticket := completeTicket(t, f, testUserID)

	_, err := f.svc.Rate(context.Background(), testUserID, ticket.ID, &model.RatingRequest{Score: 6})
	assertCode(t, err, apperrors.CodeValidation)
}

// --- Details ---

func TestGetDetailsForActiveTicket(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	details, err := f.svc.GetDetails(context.Background(), auth.User{ID: testUserID, Role: auth.RolePatient}, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusBooked, details.DisplayStatus)
	assert.True(t, details.CanBeCancelled)
	assert.False(t, details.CanCheckIn, "check-in window has not opened two hours out")
	assert.NotEmpty(t, details.QRPayload)
}

func TestGetDetailsOmitsQRForTerminalTicket(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)
	staffUpdate(t, f, ticket.ID, model.StatusCancelled)

	details, err := f.svc.GetDetails(context.Background(), auth.User{ID: testUserID, Role: auth.RolePatient}, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, details.QRPayload)
	assert.False(t, details.CanBeCancelled)
}

func TestGetDetailsShowsOverdue(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	f.svc.now = func() time.Time { return testAppointment.Add(time.Hour) }

	details, err := f.svc.GetDetails(context.Background(), auth.User{ID: testUserID, Role: auth.RolePatient}, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, details.DisplayStatus)

	stored, err := f.repo.FindByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, stored.Status, "overdue is display-only and never persisted")
}

func TestGetDetailsDeniedForStranger(t *testing.T) {
	f := newFixture(t)
	ticket := bookTicket(t, f, testUserID)

	_, err := f.svc.GetDetails(context.Background(), auth.User{ID: otherUserID, Role: auth.RolePatient}, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	// staff can always view
	_, err = f.svc.GetDetails(context.Background(), auth.User{ID: staffUserID, Role: auth.RoleStaff}, ticket.ID)
	assert.NoError(t, err)
}

// --- Listing ---

func TestGetByUserFiltersByStatus(t *testing.T) {
	f := newFixture(t)

	first := bookTicket(t, f, testUserID)
	staffUpdate(t, f, first.ID, model.StatusCancelled)

	req := bookingRequest()
	req.AppointmentDateTime = testAppointment.Add(2 * time.Hour)
	_, err := f.svc.Book(context.Background(), testUserID, req)
	require.NoError(t, err)

	tickets, total, err := f.svc.GetByUser(context.Background(), testUserID, &model.TicketFilter{Status: model.StatusBooked}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, tickets, 1)
	assert.Equal(t, model.StatusBooked, tickets[0].Status)
}
