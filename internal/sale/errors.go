package sale

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("sale not found")
	ErrInvalidTransition = errors.New("invalid sale state transition")
	ErrInvalidRequest    = errors.New("invalid sale request")
)

type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("sale cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid sale request: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
