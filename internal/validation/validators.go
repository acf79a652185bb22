package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/littlesteps/insights/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("observation_type", validateObservationType); err != nil {
		panic(fmt.Sprintf("failed to register observation_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("request_type", validateRequestType); err != nil {
		panic(fmt.Sprintf("failed to register request_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("usage_period", validateUsagePeriod); err != nil {
		panic(fmt.Sprintf("failed to register usage_period validator: %v", err))
	}
}

// validateObservationType validates that a string is a valid ObservationType enum value
func validateObservationType(fl validator.FieldLevel) bool {
	return models.ObservationType(fl.Field().String()).Valid()
}

// validateRequestType validates that a string is a valid RequestType enum value
func validateRequestType(fl validator.FieldLevel) bool {
	switch models.RequestType(fl.Field().String()) {
	case models.RequestQuickInsight, models.RequestFullAnalysis,
		models.RequestRecommendations, models.RequestParentReport:
		return true
	default:
		return false
	}
}

// validateUsagePeriod validates that a string is a valid UsagePeriod enum value
func validateUsagePeriod(fl validator.FieldLevel) bool {
	switch models.UsagePeriod(fl.Field().String()) {
	case models.UsagePeriodHour, models.UsagePeriodDay, models.UsagePeriodWeek, models.UsagePeriodMonth:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateRequestType validates a RequestType string value
func ValidateRequestType(value string) error {
	switch models.RequestType(value) {
	case models.RequestQuickInsight, models.RequestFullAnalysis,
		models.RequestRecommendations, models.RequestParentReport:
		return nil
	default:
		return fmt.Errorf("invalid request_type: %s (must be 'quick_insight', 'full_analysis', 'recommendations', or 'parent_report')", value)
	}
}

// ValidateUsagePeriod validates a UsagePeriod string value
func ValidateUsagePeriod(value string) error {
	switch models.UsagePeriod(value) {
	case models.UsagePeriodHour, models.UsagePeriodDay, models.UsagePeriodWeek, models.UsagePeriodMonth:
		return nil
	default:
		return fmt.Errorf("invalid period: %s (must be 'hour', 'day', 'week', or 'month')", value)
	}
}
