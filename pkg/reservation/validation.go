package reservation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidReservation = errors.New("invalid reservation")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		return Theme(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		return TimeSlot(fl.Field().String()).Valid()
	})
	return v
}

// Validate wraps ErrInvalidReservation with every failing field.
func Validate(r Request) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidReservation, err)
	}
	problems := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidReservation, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "theme":
		return fmt.Sprintf("%s %q is not a themed room", fe.Field(), fe.Value())
	case "timeslot":
		return fmt.Sprintf("%s %q is not a bookable time slot", fe.Field(), fe.Value())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s has more than %s entries", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s is longer than %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
