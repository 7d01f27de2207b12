// Package service holds the business rules between the HTTP handlers and
// the repositories: input validation, token minting, result normalization,
// leaderboard assembly and activity events.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/wod-leaderboard/internal/repository"
)

// ValidationError reports input the caller must fix. Handlers map it to
// 400 and show Message as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Re-exported so callers of the service need not import the repository.
var (
	ErrForbidden       = repository.ErrForbidden
	ErrWorkoutNotFound = repository.ErrWorkoutNotFound
	ErrResultNotFound  = repository.ErrResultNotFound
)
