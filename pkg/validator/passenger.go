package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/gogobus/booking-gateway/internal/models"
)

// PassengerValidator checks the mandatory passenger fields before a draft is saved
type PassengerValidator struct {
	validate *playground.Validate
}

// NewPassengerValidator creates a new passenger validator instance
func NewPassengerValidator() *PassengerValidator {
	v := playground.New()
	// Report json field names so messages match what the client sent
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &PassengerValidator{validate: v}
}

// Validate normalizes the passenger and checks it.
// Returns the normalized passenger, or a *models.ValidationError naming every failing field.
func (v *PassengerValidator) Validate(p models.Passenger) (models.Passenger, error) {
	normalized := p.Normalize()

	err := v.validate.Struct(normalized)
	if err == nil {
		return normalized, nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.Passenger{}, fmt.Errorf("failed to validate passenger: %w", err)
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}

	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		parts = append(parts, "missing required passenger fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid passenger fields: "+strings.Join(invalid, ", "))
	}

	return models.Passenger{}, &models.ValidationError{
		Message: strings.Join(parts, "; "),
		Fields:  append(missing, invalid...),
	}
}
