package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	hospitalservice "hospiq/internal/hospitals/service"
	"hospiq/internal/prediction"
	ticketserrors "hospiq/internal/tickets/errors"
	"hospiq/internal/tickets/repository"
	"hospiq/internal/tickets/validator"
	"hospiq/pkg/auth"
	"hospiq/pkg/config"
	apperrors "hospiq/pkg/errors"
	"hospiq/pkg/events"
	"hospiq/pkg/model"
	"hospiq/pkg/sanitizer"
	"hospiq/pkg/sealer"
)

const lockTTL = 10 * time.Second

type TicketService interface {
	Book(ctx context.Context, userID string, req *model.BookTicketRequest) (*model.BookingResult, error)
	GetByUser(ctx context.Context, userID string, filter *model.TicketFilter, limit int, offset int64) ([]*model.Ticket, int64, error)
	GetDetails(ctx context.Context, user auth.User, ticketID string) (*model.TicketDetails, error)
	UpdateStatus(ctx context.Context, user auth.User, ticketID string, req *model.StatusUpdateRequest) (*model.Ticket, error)
	CheckIn(ctx context.Context, userID, ticketID string) (*model.Ticket, error)
	Rate(ctx context.Context, userID, ticketID string, req *model.RatingRequest) (*model.Ticket, error)
}

type ticketService struct {
	repo      repository.TicketRepository
	seqRepo   repository.SequenceRepository
	lockRepo  repository.BookingLockRepository
	validator *validator.TicketValidator
	hospitals hospitalservice.HospitalService
	oracle    prediction.Oracle
	producer  *events.Producer
	cfg       *config.Config

	// now is swapped out by tests to pin time-window behavior.
	now func() time.Time
}

func NewTicketService(
	repo repository.TicketRepository,
	seqRepo repository.SequenceRepository,
	lockRepo repository.BookingLockRepository,
	validator *validator.TicketValidator,
	hospitals hospitalservice.HospitalService,
	oracle prediction.Oracle,
	producer *events.Producer,
	cfg *config.Config,
) TicketService {
	return &ticketService{
		repo:      repo,
		seqRepo:   seqRepo,
		lockRepo:  lockRepo,
		validator: validator,
		hospitals: hospitals,
		oracle:    oracle,
		producer:  producer,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *ticketService) Book(ctx context.Context, userID string, req *model.BookTicketRequest) (*model.BookingResult, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Authentication required to book a ticket")
	}

	s.sanitizeBooking(req)
	if err := s.validator.ValidateBookingRequest(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "user_id", userID, "error", err)
		return nil, apperrors.Validation("Booking validation failed", toFieldErrors(err))
	}

	now := s.now()

	hospital, err := s.hospitals.GetByID(ctx, req.HospitalID)
	if err != nil {
		return nil, err
	}
	if !hospital.IsActive || !hospital.IsVerified {
		return nil, apperrors.InactiveResource("Hospital")
	}

	counter := hospital.CounterByID(req.CounterID)
	if counter == nil {
		return nil, apperrors.NotFoundWithID("Counter", req.CounterID)
	}
	if !counter.IsActive {
		return nil, apperrors.InactiveResource("Counter")
	}
	if req.AppointmentDateTime.Sub(now) < s.cfg.BookingLeadTime {
		return nil, apperrors.InvalidTimeWindow(fmt.Sprintf(
			"Appointments must be booked at least %d minutes in advance",
			int(s.cfg.BookingLeadTime.Minutes()),
		))
	}
	if !counter.WorkingHours.Contains(req.AppointmentDateTime) {
		return nil, apperrors.OutsideWorkingHours(fmt.Sprintf(
			"Counter operates between %s and %s",
			counter.WorkingHours.Start, counter.WorkingHours.End,
		))
	}

	lockID, err := s.acquireBookingLock(ctx, userID, req.AppointmentDateTime)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	ticket := &model.Ticket{
		UserID:              userID,
		HospitalID:          req.HospitalID,
		CounterID:           req.CounterID,
		AppointmentDateTime: req.AppointmentDateTime,
		BookingDateTime:     now.UTC().Truncate(time.Millisecond),
		Status:              model.StatusBooked,
		ReasonForVisit:      req.ReasonForVisit,
		Symptoms:            req.Symptoms,
		PatientType:         defaultString(req.PatientType, model.PatientTypeNew),
		Priority:            defaultString(req.Priority, model.PriorityNormal),
		Insurance:           req.Insurance,
	}
	ticket.ConsultationFee = consultationFee(counter.Type, ticket.PatientType)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		overlapping, err := s.repo.FindActiveOverlap(sessCtx, userID, req.AppointmentDateTime)
		if err != nil {
			return apperrors.Internal("Failed to check existing tickets", err)
		}
		if len(overlapping) > 0 {
			return apperrors.ConflictingAppointment(fmt.Sprintf(
				"You already have an active ticket at %s",
				overlapping[0].AppointmentDateTime.Format(time.RFC3339),
			))
		}

		sameDay, err := s.repo.CountActiveSameDay(sessCtx, req.HospitalID, req.CounterID, req.AppointmentDateTime)
		if err != nil {
			return apperrors.Internal("Failed to determine queue position", err)
		}
		ticket.QueuePosition = int(sameDay) + 1

		// Numbers run per calendar day of creation, not of the appointment.
		seq, err := s.seqRepo.Next(sessCtx, now)
		if err != nil {
			return apperrors.Internal("Failed to assign ticket number", err)
		}
		ticket.TicketNumber = model.FormatTicketNumber(now, seq)

		ticket.EstimatedWaitTime = s.estimateWait(ctx, req.HospitalID, counter, req.AppointmentDateTime)

		if err := s.repo.Create(sessCtx, ticket); err != nil {
			return apperrors.Internal("Failed to create ticket", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to book ticket", "user_id", userID, "error", err)
		return nil, err
	}

	if err := s.hospitals.AdjustCounterQueue(ctx, req.HospitalID, req.CounterID, 1); err != nil {
		s.cfg.Log.Warn("Failed to bump counter queue length after booking",
			"ticket_id", ticket.ID,
			"error", err,
		)
	}

	s.publish(ctx, events.TicketBooked, ticket)

	s.cfg.Log.Info("Ticket booked successfully",
		"id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
		"user_id", userID,
		"hospital_id", ticket.HospitalID,
		"counter_id", ticket.CounterID,
		"queue_position", ticket.QueuePosition,
	)

	return &model.BookingResult{
		Ticket:          ticket,
		Counter:         counter,
		Recommendations: buildRecommendations(req),
	}, nil
}

func (s *ticketService) GetByUser(ctx context.Context, userID string, filter *model.TicketFilter, limit int, offset int64) ([]*model.Ticket, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	tickets, err := s.repo.FindByUser(ctx, userID, filter, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list tickets", "user_id", userID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve tickets", err)
	}

	count, err := s.repo.CountByUser(ctx, userID, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count tickets", "user_id", userID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count tickets", err)
	}

	return tickets, count, nil
}

func (s *ticketService) GetDetails(ctx context.Context, user auth.User, ticketID string) (*model.TicketDetails, error) {
	ticket, err := s.getAuthorized(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	details := &model.TicketDetails{
		Ticket:         ticket,
		DisplayStatus:  ticket.DisplayStatus(now),
		CanBeCancelled: ticket.CanBeCancelled(now),
		CanCheckIn:     ticket.CanCheckIn(now),
	}

	if !ticket.Status.IsTerminal() {
		token, err := sealer.CreateTicketToken(ticket.ID, ticket.TicketNumber)
		if err != nil {
			s.cfg.Log.Warn("Failed to seal ticket token", "ticket_id", ticket.ID, "error", err)
		} else {
			details.QRPayload = token
		}
	}

	return details, nil
}

func (s *ticketService) UpdateStatus(ctx context.Context, user auth.User, ticketID string, req *model.StatusUpdateRequest) (*model.Ticket, error) {
	if err := s.validator.ValidateStatusUpdate(req); err != nil {
		return nil, apperrors.Validation("Invalid status update", toFieldErrors(err))
	}

	ticket, err := s.getAuthorized(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}

	// Patients may only cancel their own tickets; every other transition
	// is a staff operation.
	if !user.IsStaff() && req.Status != model.StatusCancelled {
		return nil, apperrors.Forbidden("Only staff can perform this status change")
	}

	if !ticket.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.InvalidTransition(string(ticket.Status), string(req.Status))
	}

	now := s.now()
	if req.Status == model.StatusCancelled {
		if !user.IsStaff() && !ticket.CanBeCancelled(now) {
			return nil, apperrors.InvalidTimeWindow(fmt.Sprintf(
				"Tickets cannot be cancelled within %d minutes of the appointment",
				int(model.CancellationCutoff.Minutes()),
			))
		}
		if sanitizer.SanitizeText(req.CancellationReason) == "" {
			return nil, apperrors.Validation("Cancellation requires a reason", []apperrors.FieldError{
				{Field: "CancellationReason", Message: "cancellation_reason is required when cancelling"},
			})
		}
	}

	previous := ticket.Status
	ticket.Status = req.Status
	ticket.Notes = ticket.Notes.Merge(req.Notes)
	s.applyStatusSideEffects(ticket, req, user, now)

	if err := s.repo.Update(ctx, ticket.ID, ticket); err != nil {
		s.cfg.Log.Error("Failed to update ticket status", "id", ticket.ID, "error", err)
		return nil, apperrors.Internal("Failed to update ticket", err)
	}

	// Terminal transitions free the queue slot.
	if req.Status.IsTerminal() {
		if err := s.hospitals.AdjustCounterQueue(ctx, ticket.HospitalID, ticket.CounterID, -1); err != nil {
			s.cfg.Log.Warn("Failed to decrement counter queue length",
				"ticket_id", ticket.ID,
				"error", err,
			)
		}
	}

	s.publish(ctx, events.TicketStatusChanged, map[string]any{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.TicketNumber,
		"from":          previous,
		"to":            ticket.Status,
		"changed_by":    user.ID,
	})

	s.cfg.Log.Info("Ticket status updated",
		"id", ticket.ID,
		"from", previous,
		"to", ticket.Status,
		"by", user.ID,
	)
	return ticket, nil
}

func (s *ticketService) CheckIn(ctx context.Context, userID, ticketID string) (*model.Ticket, error) {
	ticket, err := s.getAuthorized(ctx, auth.User{ID: userID, Role: auth.RolePatient}, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.IsCheckedIn {
		return nil, apperrors.Conflict("Ticket is already checked in")
	}
	if ticket.Status != model.StatusBooked {
		return nil, apperrors.InvalidInput("Only booked tickets can check in")
	}

	now := s.now()
	if !ticket.CanCheckIn(now) {
		return nil, apperrors.InvalidTimeWindow(fmt.Sprintf(
			"Check-in opens %d minutes before and closes %d minutes after the appointment",
			int(model.CheckInEarlyWindow.Minutes()),
			int(model.CheckInLateWindow.Minutes()),
		))
	}

	checkInTime := now.UTC().Truncate(time.Millisecond)
	ticket.IsCheckedIn = true
	ticket.CheckInTime = &checkInTime
	// Check-in doubles as patient-side confirmation.
	ticket.Status = model.StatusConfirmed

	if err := s.repo.Update(ctx, ticket.ID, ticket); err != nil {
		s.cfg.Log.Error("Failed to check in ticket", "id", ticket.ID, "error", err)
		return nil, apperrors.Internal("Failed to check in ticket", err)
	}

	s.publish(ctx, events.TicketCheckedIn, map[string]any{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.TicketNumber,
		"check_in_time": checkInTime,
	})

	s.cfg.Log.Info("Ticket checked in", "id", ticket.ID, "ticket_number", ticket.TicketNumber)
	return ticket, nil
}

func (s *ticketService) Rate(ctx context.Context, userID, ticketID string, req *model.RatingRequest) (*model.Ticket, error) {
	if err := s.validator.ValidateRating(req); err != nil {
		return nil, apperrors.Validation("Invalid rating", toFieldErrors(err))
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOwnedBy(userID) {
		return nil, apperrors.Forbidden("Only the ticket owner can rate it")
	}
	if ticket.Status != model.StatusCompleted {
		return nil, apperrors.InvalidInput("Only completed tickets can be rated")
	}
	if ticket.Rating != nil {
		return nil, apperrors.Conflict("Ticket has already been rated")
	}

	ticket.Rating = &model.TicketRating{
		Score:   req.Score,
		Comment: sanitizer.SanitizeText(req.Comment),
		RatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.repo.Update(ctx, ticket.ID, ticket); err != nil {
		s.cfg.Log.Error("Failed to rate ticket", "id", ticket.ID, "error", err)
		return nil, apperrors.Internal("Failed to save rating", err)
	}

	s.cfg.Log.Info("Ticket rated", "id", ticket.ID, "score", req.Score)
	return ticket, nil
}

// --- Helpers ---

func (s *ticketService) getTicket(ctx context.Context, id string) (*model.Ticket, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Ticket ID cannot be empty")
	}

	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ticketserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Ticket", id)
		}
		if errors.Is(err, ticketserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid ticket ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve ticket", err)
	}
	return ticket, nil
}

// getAuthorized loads the ticket and enforces owner-or-staff access.
func (s *ticketService) getAuthorized(ctx context.Context, user auth.User, id string) (*model.Ticket, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOwnedBy(user.ID) && !user.IsStaff() {
		return nil, apperrors.Forbidden("You do not have access to this ticket")
	}
	return ticket, nil
}

func (s *ticketService) applyStatusSideEffects(ticket *model.Ticket, req *model.StatusUpdateRequest, user auth.User, now time.Time) {
	ts := now.UTC().Truncate(time.Millisecond)

	switch req.Status {
	case model.StatusInProgress:
		ticket.ServiceStartTime = &ts
	case model.StatusCompleted:
		ticket.ServiceEndTime = &ts
		if ticket.ServiceStartTime != nil {
			ticket.ActualWaitTime = int(math.Round(ts.Sub(*ticket.ServiceStartTime).Minutes()))
		}
	case model.StatusCancelled:
		ticket.CancelledAt = &ts
		ticket.CancelledBy = user.ID
		ticket.CancellationReason = sanitizer.SanitizeText(req.CancellationReason)
	}
}

func (s *ticketService) estimateWait(ctx context.Context, hospitalID string, counter *model.Counter, appointment time.Time) int {
	fallback := counter.CurrentQueueLength * counter.AverageServiceTime

	oracleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OracleTimeout)
	defer cancel()

	p, err := s.oracle.PredictWaitTime(oracleCtx, prediction.Features{
		HospitalID:         hospitalID,
		CounterID:          counter.ID,
		CounterType:        counter.Type,
		CurrentQueueLength: counter.CurrentQueueLength,
		TimeOfDay:          appointment.Hour(),
		DayOfWeek:          int(appointment.Weekday()),
		DoctorAvailable:    counter.IsActive,
		IsHoliday:          prediction.IsHoliday(appointment),
	})
	if err != nil {
		s.cfg.Log.Warn("Wait-time oracle unavailable, using fallback estimate",
			"counter_id", counter.ID,
			"fallback_minutes", fallback,
			"error", err,
		)
		return fallback
	}

	return p.WaitMinutes
}

func (s *ticketService) acquireBookingLock(ctx context.Context, userID string, appointment time.Time) (string, error) {
	lockID := fmt.Sprintf("ticket_lock_%s_%d", userID, appointment.Unix())

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: s.now().Add(lockTTL),
	}

	if err := s.lockRepo.Acquire(ctx, lock); err != nil {
		if errors.Is(err, ticketserrors.ErrLockHeld) {
			return "", apperrors.Conflict("This booking is already being processed. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

func (s *ticketService) sanitizeBooking(req *model.BookTicketRequest) {
	req.ReasonForVisit = sanitizer.SanitizeText(req.ReasonForVisit)
	req.Symptoms = sanitizer.SanitizeTextSlice(req.Symptoms)
}

func (s *ticketService) publish(ctx context.Context, eventType string, payload any) {
	key := ""
	switch p := payload.(type) {
	case *model.Ticket:
		key = p.ID
	case map[string]any:
		if id, ok := p["ticket_id"].(string); ok {
			key = id
		}
	}

	if err := s.producer.Publish(ctx, key, eventType, payload); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func toFieldErrors(err error) []apperrors.FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperrors.FieldError, 0, len(verrs))
		for _, ve := range verrs {
			fields = append(fields, apperrors.FieldError{
				Field:   ve.Field,
				Message: ve.Message,
			})
		}
		return fields
	}
	return []apperrors.FieldError{{Message: err.Error()}}
}
