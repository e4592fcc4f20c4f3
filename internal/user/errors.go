package user

import (
	"errors"
	"strings"

	userrepo "github.com/chiremba/chiremba-api/internal/user/repo"
)

var (
	ErrNotFound              = userrepo.ErrNotFound
	ErrDuplicateEmail        = userrepo.ErrDuplicateEmail
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountNotActive      = errors.New("account not active")
	ErrLastAdmin             = userrepo.ErrLastAdmin
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidRole           = errors.New("invalid role")
)

// FieldError is one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
