package validator

import (
	"errors"
	"fmt"
	"strings"

	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/go-playground/validator/v10"
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

// CatalogValidator enforces the kind-specific rule requirements the
// struct tags cannot express: which fields each rule kind must and must
// not carry, and multiplier sanity.
type CatalogValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewCatalogValidator(log *logger.Logger) *CatalogValidator {
	return &CatalogValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *CatalogValidator) ValidateCourt(court *model.Court) error {
	if err := v.structErrors(court); err != nil {
		return err
	}

	open, err := model.ParseHour(court.OpenHour)
	if err != nil {
		return ValidationErrors{ValidationError{Field: "OpenHour", Message: err.Error()}}
	}
	closeAt, err := model.ParseHour(court.CloseHour)
	if err != nil {
		return ValidationErrors{ValidationError{Field: "CloseHour", Message: err.Error()}}
	}
	if open%60 != 0 || closeAt%60 != 0 {
		return ValidationErrors{ValidationError{
			Field:   "OpenHour",
			Message: "opening hours must fall on the hour",
		}}
	}
	return nil
}

func (v *CatalogValidator) ValidateCourtUpdate(update *model.CourtUpdate) error {
	return v.structErrors(update)
}

func (v *CatalogValidator) ValidateRule(rule *model.PricingRule) error {
	if err := v.structErrors(rule); err != nil {
		return err
	}

	if rule.Multiplier < 0 {
		return ValidationErrors{ValidationError{
			Field:   "Multiplier",
			Message: "multiplier must not be negative",
		}}
	}

	switch rule.Kind {
	case model.RulePeakHours:
		return v.validatePeakRule(rule)
	case model.RuleWeekend:
		if rule.Start != "" || rule.End != "" || len(rule.DaysOfWeek) > 0 {
			return ValidationErrors{ValidationError{
				Field:   "Kind",
				Message: "weekend rules must not carry start/end or days_of_week",
			}}
		}
	case model.RuleCustomDays:
		if len(rule.DaysOfWeek) == 0 {
			return ValidationErrors{ValidationError{
				Field:   "DaysOfWeek",
				Message: "custom_days rules require at least one weekday",
			}}
		}
		if rule.Start != "" || rule.End != "" {
			return ValidationErrors{ValidationError{
				Field:   "Kind",
				Message: "custom_days rules must not carry start/end",
			}}
		}
	}
	return nil
}

// validatePeakRule requires a same-day sub-window: peak windows cannot
// cross midnight.
func (v *CatalogValidator) validatePeakRule(rule *model.PricingRule) error {
	if rule.Start == "" || rule.End == "" {
		return ValidationErrors{ValidationError{
			Field:   "Start",
			Message: "peak_hours rules require start and end",
		}}
	}
	start, err := model.ParseHour(rule.Start)
	if err != nil {
		return ValidationErrors{ValidationError{Field: "Start", Message: err.Error()}}
	}
	end, err := model.ParseHour(rule.End)
	if err != nil {
		return ValidationErrors{ValidationError{Field: "End", Message: err.Error()}}
	}
	if end <= start {
		return ValidationErrors{ValidationError{
			Field:   "End",
			Message: "peak window end must be after start on the same day",
		}}
	}
	return nil
}

func (v *CatalogValidator) ValidateHoliday(holiday *model.Holiday) error {
	if err := v.structErrors(holiday); err != nil {
		return err
	}
	if holiday.Multiplier < 0 {
		return ValidationErrors{ValidationError{
			Field:   "Multiplier",
			Message: "multiplier must not be negative",
		}}
	}
	return nil
}

func (v *CatalogValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *CatalogValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must match the format %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
