package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the request shape. Range semantics (checkOut after checkIn)
// are part of the struct tags; the service layer re-checks them defensively.
func (r *ReservationRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		fields := make([]string, 0, len(errs))
		for _, fe := range errs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return Invalidf("invalid fields: %s", strings.Join(fields, ", "))
	}
	return Invalidf("invalid request: %v", err)
}
