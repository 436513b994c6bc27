package services

import (
	"errors"

	"civic-portal/internal/store"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrEmailTaken         = errors.New("Este correo electrónico ya está registrado")
	ErrInvalidCredentials = errors.New("Correo o contraseña incorrectos")
	ErrPermission         = errors.New("No tiene permisos para realizar esta acción")
	ErrNotFound           = errors.New("not found")
	ErrInvalidToken       = errors.New("Token inválido o expirado")
	ErrUnsupportedExport  = errors.New("Tipo de exportación no válido")
	ErrLastAdmin          = errors.New("No se puede quitar el último administrador activo")
	ErrDataAccess         = store.ErrDataAccess
)

// ValidationError carries a user-facing message. errors.Is(err, ErrValidation)
// matches it.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Message returns the text to show a user for err, falling back to def for
// errors that should not leak.
func Message(err error, def string) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrPermission),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrUnsupportedExport),
		errors.Is(err, ErrLastAdmin):
		return err.Error()
	default:
		return def
	}
}
