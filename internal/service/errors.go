package service

import (
	"errors"
	"strings"

	"postfeed/internal/repository"
)

var (
	ErrPostNotFound = repository.ErrPostNotFound
	ErrUserNotFound = repository.ErrUserNotFound
	ErrEmailTaken   = repository.ErrEmailTaken

	ErrForbidden          = errors.New("недостаточно прав для изменения поста")
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	ErrTooManyAttempts    = errors.New("слишком много попыток входа, попробуйте позже")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected input field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// mergeValidation appends the fields of extra to err, either of which may be nil.
func mergeValidation(err error, extra *ValidationError) error {
	if extra == nil {
		return err
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		verr.Fields = append(verr.Fields, extra.Fields...)
		return verr
	}
	if err != nil {
		return err
	}

	return extra
}
