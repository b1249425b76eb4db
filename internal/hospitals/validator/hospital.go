package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"hospiq/pkg/logger"
	"hospiq/pkg/model"
)

var hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type HospitalValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewHospitalValidator(log *logger.Logger) *HospitalValidator {
	v := validator.New()

	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		log.Fatal("Failed to register 'hhmm' validator",
			"error", err,
		)
	}

	log.Info("Hospital validator initialized successfully")

	return &HospitalValidator{
		validate: v,
		logger:   log,
	}
}

func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}

func (v *HospitalValidator) Validate(hospital *model.Hospital) error {
	if err := v.validate.Struct(hospital); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	var errs ValidationErrors

	if err := validateBedCapacity(&hospital.BedCapacity); err != nil {
		errs = append(errs, *err)
	}

	seen := make(map[string]bool, len(hospital.Counters))
	for i := range hospital.Counters {
		c := &hospital.Counters[i]
		if seen[c.ID] {
			errs = append(errs, ValidationError{
				Field:   "Counters",
				Message: fmt.Sprintf("duplicate counter ID %q", c.ID),
			})
		}
		seen[c.ID] = true
		errs = append(errs, validateCounterHours(c.ID, &c.WorkingHours)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *HospitalValidator) ValidateUpdate(update *model.HospitalUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if update.BedCapacity != nil {
		if err := validateBedCapacity(update.BedCapacity); err != nil {
			return ValidationErrors{*err}
		}
	}

	return nil
}

func (v *HospitalValidator) ValidateCounterUpdate(update *model.CounterUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if update.WorkingHours != nil {
		if errs := validateCounterHours("", update.WorkingHours); len(errs) > 0 {
			return errs
		}
	}

	return nil
}

func validateBedCapacity(bc *model.BedCapacity) *ValidationError {
	if bc.Available > bc.Total {
		return &ValidationError{
			Field:   "BedCapacity",
			Message: fmt.Sprintf("available beds (%d) cannot exceed total beds (%d)", bc.Available, bc.Total),
		}
	}
	if bc.ICU+bc.General > bc.Total {
		return &ValidationError{
			Field:   "BedCapacity",
			Message: fmt.Sprintf("ICU (%d) plus general (%d) beds cannot exceed total beds (%d)", bc.ICU, bc.General, bc.Total),
		}
	}
	return nil
}

func validateCounterHours(counterID string, wh *model.WorkingHours) ValidationErrors {
	field := "WorkingHours"
	if counterID != "" {
		field = fmt.Sprintf("Counters[%s].WorkingHours", counterID)
	}

	var errs ValidationErrors
	if !hhmmRegex.MatchString(wh.Start) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("start %q must be in HH:MM format", wh.Start),
		})
	}
	if !hhmmRegex.MatchString(wh.End) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("end %q must be in HH:MM format", wh.End),
		})
	}
	if len(errs) > 0 {
		return errs
	}

	start, _ := wh.StartHour()
	end, _ := wh.EndHour()
	if end <= start {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "end must be after start",
		})
	}
	return errs
}

func (v *HospitalValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +919812345678)", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "hhmm":
			message = fmt.Sprintf("%s must be in HH:MM format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
