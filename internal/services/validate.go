package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

const (
	msgRequired        = "Todos los campos obligatorios deben ser completados"
	msgPasswordTooLong = "La contraseña no puede superar los 72 bytes"
)

// bcrypt ignores everything past 72 bytes of input and x/crypto refuses
// longer passwords outright.
const maxPasswordBytes = 72

func newValidator() *validator.Validate {
	v := validator.New()
	// min/max count characters; bcrypt_len counts bytes
	v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

// passwordPair validates a new password and its confirmation.
type passwordPair struct {
	Password string `validate:"required,min=6,bcrypt_len"`
	Confirm  string `validate:"required,eqfield=Password"`
}

// validateInput checks the struct tags of input and turns the first failing
// field into a ValidationError. messages is keyed "Field.tag" or "tag";
// anything unmapped falls back to the generic required-fields message.
func validateInput(input interface{}, messages map[string]string) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate input: %w", err)
	}

	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return invalid(msg)
	}
	if msg, ok := messages[fe.Tag()]; ok {
		return invalid(msg)
	}
	return invalid(msgRequired)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// optional maps blank form values to NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
