// errors.go
package service

import (
	"fmt"
	"strings"
	"time"
)

// Errores de negocio tipados (los mapea el controller a códigos HTTP).

// ValidationError: entrada malformada o fuera de rango (400).
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, ", ")
	}
	return e.Message
}

// NotFoundError: la entidad no existe (404).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s con ID %s no encontrado", e.Resource, e.ID)
	}
	return e.Resource + " no encontrado"
}

// AuthError: credenciales ausentes, inválidas o expiradas (401).
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ForbiddenError: autenticado pero sin permiso (403).
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// InvalidTransitionError: violación de la máquina de estados (400).
// Incluye el conjunto de transiciones permitidas desde el estado actual.
type InvalidTransitionError struct {
	From    string
	To      string
	Allowed []string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transición de estado no válida: %s -> %s", e.From, e.To)
}

// WindowExpiredError: se venció el plazo de la operación (400).
type WindowExpiredError struct {
	Message  string
	Deadline time.Time
	Now      time.Time
}

func (e *WindowExpiredError) Error() string { return e.Message }
