package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/smart-calendar/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("color_tag", validateColorTag); err != nil {
		panic(fmt.Sprintf("failed to register color_tag validator: %v", err))
	}
	if err := Validate.RegisterValidation("notblank", validateNotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validator: %v", err))
	}
}

func validateColorTag(fl validator.FieldLevel) bool {
	return models.ColorTag(fl.Field().String()).IsValid()
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidateEvent checks an event before it is sent to the backend
func ValidateEvent(e *models.CalendarEvent) error {
	if e == nil {
		return errors.New("event is nil")
	}
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("title is required")
	}
	if err := Validate.Struct(e); err != nil {
		return describe(err)
	}
	return nil
}

// ValidatePlan checks every step of a plan draft
func ValidatePlan(p *models.PlanDraft) error {
	if p == nil {
		return errors.New("plan is nil")
	}
	if len(p.Steps) == 0 {
		return errors.New("plan has no steps")
	}
	if err := Validate.Struct(p); err != nil {
		return describe(err)
	}
	return nil
}

// ValidateColorTag validates a ColorTag string value
func ValidateColorTag(value string) error {
	if models.ColorTag(value).IsValid() {
		return nil
	}
	return fmt.Errorf("invalid color_tag: %s", value)
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// describe flattens validator errors into one readable message
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
