package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/SAP-F-2025/adaptive-testing-service/internal/errors"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground struct validation with the service's custom
// rules and error type.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	registerCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate checks struct tags and returns typed ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

func validateQuestionType(fl validator.FieldLevel) bool {
	switch models.QuestionType(fl.Field().String()) {
	case models.MultipleChoice, models.TrueFalse:
		return true
	}
	return false
}

func validatePoolStatus(fl validator.FieldLevel) bool {
	switch models.PoolStatus(fl.Field().String()) {
	case models.PoolDraft, models.PoolPublished, models.PoolArchived:
		return true
	}
	return false
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("pool_status", validatePoolStatus)

	// Report field names as their json tags for better error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
