package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument marks malformed input such as an out-of-range level or a negative count.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a referenced topic, category, question or user is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidationFailed wraps a batch of catalog integrity violations.
	ErrValidationFailed = errors.New("validation failed")
	// ErrConflict signals contention or a uniqueness clash that the caller may retry or fix.
	ErrConflict = errors.New("conflict")
)

// Violation describes a single offending id inside a validated batch.
type Violation struct {
	ID          string `json:"id,omitempty"`
	Slot        int    `json:"slot"`
	StoredLevel int    `json:"storedLevel"`
	Reason      string `json:"reason"`
}

// ValidationError carries every violation found while checking one payload.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	reasons := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		reasons = append(reasons, v.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(reasons, ". "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Violations extracts the violation list from err, if any.
func Violations(err error) []Violation {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}
