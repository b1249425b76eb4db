package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"hospiq/pkg/logger"
	"hospiq/pkg/model"
)

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

type TicketValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTicketValidator(log *logger.Logger) *TicketValidator {
	log.Info("Ticket validator initialized successfully")

	return &TicketValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *TicketValidator) ValidateBookingRequest(req *model.BookTicketRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if req.Insurance != nil {
		if err := v.validate.Struct(req.Insurance); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				return v.translateValidationErrors(validationErrs)
			}
			return err
		}
	}

	return nil
}

func (v *TicketValidator) ValidateStatusUpdate(req *model.StatusUpdateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if !req.Status.Valid() {
		return ValidationErrors{
			ValidationError{
				Field:   "Status",
				Message: fmt.Sprintf("%q is not a valid ticket status", req.Status),
			},
		}
	}

	return nil
}

func (v *TicketValidator) ValidateRating(req *model.RatingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *TicketValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
