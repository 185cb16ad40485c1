package domain

import (
	"errors"
	"fmt"
)

// ErrAuth cubre toda falla de identificación, credencial o token.
// El mensaje es deliberadamente genérico: no debe filtrar si el usuario
// existe, si el password era incorrecto o si el token fue revocado.
var ErrAuth = errors.New("authentication failed")

// UserCreationError indica una violación de validación o unicidad
// durante el registro. Field nombra el campo violado ("username" o
// "email") y siempre aparece en el mensaje.
type UserCreationError struct {
	Field  string
	Reason string
}

func (e *UserCreationError) Error() string {
	return fmt.Sprintf("user creation failed: %s %s", e.Field, e.Reason)
}

// IsUserCreationError reporta si err es un UserCreationError.
func IsUserCreationError(err error) bool {
	var uce *UserCreationError
	return errors.As(err, &uce)
}
