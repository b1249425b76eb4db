package service

import (
	"context"
	"errors"
	"sync"

	hospitalserrors "hospiq/internal/hospitals/errors"
	"hospiq/internal/hospitals/repository"
	"hospiq/internal/hospitals/validator"
	"hospiq/pkg/cache"
	"hospiq/pkg/config"
	apperrors "hospiq/pkg/errors"
	"hospiq/pkg/model"
	"hospiq/pkg/sanitizer"
)

type HospitalService interface {
	Create(ctx context.Context, hospital *model.Hospital) error
	GetByID(ctx context.Context, id string) (*model.Hospital, error)
	GetAll(ctx context.Context, filter *model.HospitalFilter, limit int, offset int64) ([]*model.Hospital, int64, error)
	Update(ctx context.Context, id string, updates *model.HospitalUpdate) error
	UpdateCounter(ctx context.Context, hospitalID, counterID string, updates *model.CounterUpdate) error
	// AdjustCounterQueue shifts a counter's live queue length; used by the
	// ticket lifecycle, not exposed over HTTP directly.
	AdjustCounterQueue(ctx context.Context, hospitalID, counterID string, delta int) error
}

type hospitalService struct {
	repo      repository.HospitalRepository
	validator *validator.HospitalValidator
	cache     *cache.Cache
	cfg       *config.Config
}

func NewHospitalService(
	repo repository.HospitalRepository,
	validator *validator.HospitalValidator,
	cache *cache.Cache,
	cfg *config.Config,
) HospitalService {
	return &hospitalService{
		repo:      repo,
		validator: validator,
		cache:     cache,
		cfg:       cfg,
	}
}

func cacheKey(id string) string {
	return "hospital:" + id
}

func (s *hospitalService) Create(ctx context.Context, hospital *model.Hospital) error {
	s.sanitize(hospital)
	if err := s.validate(hospital); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, hospital); err != nil {
		if errors.Is(err, hospitalserrors.ErrDuplicateCode) {
			return apperrors.Conflict("A hospital with this code already exists")
		}
		s.cfg.Log.Error("Failed to create hospital", "error", err)
		return apperrors.Internal("Failed to create hospital", err)
	}

	s.cfg.Log.Info("Hospital created successfully",
		"id", hospital.ID,
		"code", hospital.Code,
		"city", hospital.City,
		"counters", len(hospital.Counters),
	)
	return nil
}

func (s *hospitalService) GetByID(ctx context.Context, id string) (*model.Hospital, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Hospital ID cannot be empty")
	}

	var cached model.Hospital
	hit, err := s.cache.Get(ctx, cacheKey(id), &cached)
	if err != nil {
		s.cfg.Log.Warn("Hospital cache read failed", "id", id, "error", err)
	}
	if hit {
		return &cached, nil
	}

	hospital, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, hospitalserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Hospital", id)
		}
		if errors.Is(err, hospitalserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid hospital ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve hospital", err)
	}

	if err := s.cache.Set(ctx, cacheKey(id), hospital); err != nil {
		s.cfg.Log.Warn("Hospital cache write failed", "id", id, "error", err)
	}

	return hospital, nil
}

func (s *hospitalService) GetAll(ctx context.Context, filter *model.HospitalFilter, limit int, offset int64) ([]*model.Hospital, int64, error) {
	var count int64
	var hospitals []*model.Hospital
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count hospitals", "error", errCount)
			errCount = apperrors.Internal("Failed to count hospitals", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		hospitals, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list hospitals", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve hospitals", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return hospitals, count, nil
}

func (s *hospitalService) Update(ctx context.Context, id string, updates *model.HospitalUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Hospital ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, hospitalserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Hospital", id)
		}
		if errors.Is(err, hospitalserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid hospital ID format")
		}
		return apperrors.Internal("Failed to check hospital existence", err)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Hospital update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", toFieldErrors(err))
	}

	merged := s.mergeHospitalUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, hospitalserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Hospital", id)
		}
		s.cfg.Log.Error("Failed to update hospital", "id", id, "error", err)
		return apperrors.Internal("Failed to update hospital", err)
	}

	s.invalidate(ctx, id)
	s.cfg.Log.Info("Hospital updated successfully", "id", id)
	return nil
}

func (s *hospitalService) UpdateCounter(ctx context.Context, hospitalID, counterID string, updates *model.CounterUpdate) error {
	if hospitalID == "" || counterID == "" {
		return apperrors.InvalidInput("Hospital ID and counter ID are required")
	}

	if err := s.validator.ValidateCounterUpdate(updates); err != nil {
		s.cfg.Log.Warn("Counter update validation failed",
			"hospital_id", hospitalID,
			"counter_id", counterID,
			"error", err,
		)
		return apperrors.Validation("Invalid counter update input", toFieldErrors(err))
	}

	hospital, err := s.GetByID(ctx, hospitalID)
	if err != nil {
		return err
	}

	counter := hospital.CounterByID(counterID)
	if counter == nil {
		return apperrors.NotFoundWithID("Counter", counterID)
	}

	merged := s.mergeCounterUpdates(counter, updates)
	if err := s.repo.UpdateCounter(ctx, hospitalID, counterID, merged); err != nil {
		if errors.Is(err, hospitalserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Hospital", hospitalID)
		}
		if errors.Is(err, hospitalserrors.ErrCounterNotFound) {
			return apperrors.NotFoundWithID("Counter", counterID)
		}
		s.cfg.Log.Error("Failed to update counter",
			"hospital_id", hospitalID,
			"counter_id", counterID,
			"error", err,
		)
		return apperrors.Internal("Failed to update counter", err)
	}

	s.invalidate(ctx, hospitalID)
	s.cfg.Log.Info("Counter updated successfully",
		"hospital_id", hospitalID,
		"counter_id", counterID,
	)
	return nil
}

func (s *hospitalService) AdjustCounterQueue(ctx context.Context, hospitalID, counterID string, delta int) error {
	if delta == 0 {
		return nil
	}

	if err := s.repo.IncrementCounterQueue(ctx, hospitalID, counterID, delta); err != nil {
		if errors.Is(err, hospitalserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Hospital", hospitalID)
		}
		s.cfg.Log.Error("Failed to adjust counter queue",
			"hospital_id", hospitalID,
			"counter_id", counterID,
			"delta", delta,
			"error", err,
		)
		return apperrors.Internal("Failed to adjust counter queue", err)
	}

	s.invalidate(ctx, hospitalID)
	return nil
}

// --- Helpers ---

func (s *hospitalService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.cfg.Log.Warn("Hospital cache invalidation failed", "id", id, "error", err)
	}
}

func (s *hospitalService) sanitize(h *model.Hospital) {
	h.Name = sanitizer.SanitizeText(h.Name)
	h.Address = sanitizer.SanitizeText(h.Address)
	h.City = sanitizer.SanitizeText(h.City)
	for i := range h.Counters {
		h.Counters[i].Name = sanitizer.SanitizeText(h.Counters[i].Name)
	}
}

func (s *hospitalService) validate(hospital *model.Hospital) error {
	if err := s.validator.Validate(hospital); err != nil {
		s.cfg.Log.Warn("Hospital validation failed", "error", err)
		return apperrors.Validation("Hospital validation failed", toFieldErrors(err))
	}
	return nil
}

func (s *hospitalService) mergeHospitalUpdates(existing *model.Hospital, updates *model.HospitalUpdate) *model.Hospital {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Address != "" {
		merged.Address = updates.Address
	}
	if updates.City != "" {
		merged.City = updates.City
	}
	if updates.Phone != "" {
		merged.Phone = updates.Phone
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}
	if updates.IsVerified != nil {
		merged.IsVerified = *updates.IsVerified
	}
	if updates.BedCapacity != nil {
		merged.BedCapacity = *updates.BedCapacity
	}

	return &merged
}

func (s *hospitalService) mergeCounterUpdates(existing *model.Counter, updates *model.CounterUpdate) *model.Counter {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.AverageServiceTime != nil {
		merged.AverageServiceTime = *updates.AverageServiceTime
	}
	if updates.WorkingHours != nil {
		merged.WorkingHours = *updates.WorkingHours
	}
	if updates.MaxCapacityPerHour != nil {
		merged.MaxCapacityPerHour = *updates.MaxCapacityPerHour
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}

	return &merged
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
