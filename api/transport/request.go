package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carelink/backend/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode unmarshals body into dst and runs its validate tags. Failures are
// INVALID domain errors naming the offending fields.
func Decode(body []byte, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return domain.NewError(domain.ErrCodeInvalid, describe(fieldErrs))
		}
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	return nil
}

func describe(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

type RegisterRequest struct {
	Email    string      `json:"email" validate:"required,email,max=254"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	FullName string      `json:"full_name" validate:"required,max=120"`
	Phone    string      `json:"phone" validate:"omitempty,max=32"`
	Role     domain.Role `json:"role" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AccountUpdateRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type StatusUpdateRequest struct {
	Status domain.AccountStatus `json:"status" validate:"required"`
}

type ProfileUpdateRequest struct {
	DisplayName string          `json:"display_name" validate:"required,max=120"`
	Phone       string          `json:"phone" validate:"omitempty,max=32"`
	Address     string          `json:"address" validate:"omitempty,max=255"`
	City        string          `json:"city" validate:"omitempty,max=80"`
	Details     json.RawMessage `json:"details"`
}

type PostRequest struct {
	Title string   `json:"title" validate:"required,max=200"`
	Body  string   `json:"body" validate:"required"`
	Tags  []string `json:"tags" validate:"max=10,dive,max=32"`
}

type DonationRequest struct {
	DonorID    string            `json:"donor_id" validate:"required,uuid"`
	BloodGroup domain.BloodGroup `json:"blood_group" validate:"required"`
	Units      int               `json:"units" validate:"required,min=1,max=4"`
	DonatedAt  time.Time         `json:"donated_at"`
	Notes      string            `json:"notes" validate:"omitempty,max=1000"`
}
