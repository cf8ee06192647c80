package domain

import (
	"errors"
	"strings"
)

// Input errors
var (
	ErrInvalidTitle      = errors.New("invalid task title")
	ErrInvalidText       = errors.New("text contains invalid characters")
	ErrDuplicateUsername = errors.New("username already exists")
)

// Auth errors. These are reported without detail that could help enumeration.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCSRFToken   = errors.New("invalid csrf token")
	ErrRateLimited        = errors.New("too many attempts")
	ErrSessionExpired     = errors.New("session expired")
)

// Storage errors
var (
	// ErrNotFound collapses "does not exist" and "not yours".
	ErrNotFound    = errors.New("not found or access denied")
	ErrPersistence = errors.New("persistence failure")
)

// FieldError is one violated input rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every violated rule, not only the first.
type ValidationErrors struct {
	Errors []FieldError
}

func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

func (e *ValidationErrors) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

func (e *ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return msgs
}

func (e *ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}
