package services

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationIncomplete matches every failed generation run. Assignments persisted
	// before the failure are not rolled back.
	ErrGenerationIncomplete = errors.New("week generation did not complete")

	// ErrWeekLocked is returned when another run is generating the same week
	ErrWeekLocked = errors.New("week is being generated by another run")

	// ErrAssignmentNotFound is returned when a swap names a base assignment that does not exist
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrInvalidDate is returned when a request date cannot be parsed
	ErrInvalidDate = errors.New("invalid date")

	// ErrNoCaregiverSelected is returned when a swap names neither a base nor a selected caregiver
	ErrNoCaregiverSelected = errors.New("no caregiver selected")
)

// GenerationError reports a failed run together with the number of assignments it had
// already written. Callers should re-run with regenerate or inspect the logs.
type GenerationError struct {
	Persisted int
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("week generation failed after %d persisted assignments: %v", e.Persisted, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrGenerationIncomplete) true for every GenerationError
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationIncomplete
}
