package app

import (
	"errors"
	"fmt"
)

var (
	ErrTitleRequired     = errors.New("title is required")
	ErrActivityCompleted = errors.New("activity is completed")
)

// ValidationError reports a field the user has to fix.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
