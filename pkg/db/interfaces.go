package db

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ReferenceStore reads the long-lived reference data
type ReferenceStore interface {
	// GetBranchesToMissions returns active branches with their active sectors and active
	// missions, in defined order
	GetBranchesToMissions(ctx context.Context) ([]model.Branch, error)

	// GetCaregivers returns every caregiver with their assigned sectors
	GetCaregivers(ctx context.Context) ([]model.Caregiver, error)
}

// AssignmentStore reads and writes assignment rows
type AssignmentStore interface {
	GetAssignmentsForDates(ctx context.Context, dates []time.Time) ([]model.Assignment, error)
	GetAssignment(ctx context.Context, key model.AssignmentKey) (*model.Assignment, error)

	// InsertAssignment creates the row and returns it as stored
	InsertAssignment(ctx context.Context, assignment model.Assignment) (*model.Assignment, error)

	UpdateAssignmentColor(ctx context.Context, key model.AssignmentKey, color, userID string) (*model.Assignment, error)
	DeleteAssignment(ctx context.Context, key model.AssignmentKey) (int, error)
	DeleteAssignmentsForDate(ctx context.Context, date time.Time) (int, error)
	DeleteCaregiverAssignmentsOnDate(ctx context.Context, caregiverID string, date time.Time) (int, error)
}

// Database defines the interface for all database operations.
// Both postgres.DB and MemoryDB implement this interface.
type Database interface {
	ReferenceStore
	AssignmentStore
}
