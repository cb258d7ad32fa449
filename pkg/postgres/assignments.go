package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/db"
)

const assignmentColumns = `date, caregiver_id, mission_id, color, created_by_id, updated_by_id, created_at, updated_at`

func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	var a model.Assignment
	var color *string
	if err := row.Scan(&a.Date, &a.CaregiverID, &a.MissionID, &color, &a.CreatedByID, &a.UpdatedByID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if color != nil {
		a.Color = *color
	}
	a.Date = time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, time.UTC)
	return &a, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetAssignmentsForDates retrieves all assignments on any of the given dates
func (d *DB) GetAssignmentsForDates(ctx context.Context, dates []time.Time) ([]model.Assignment, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	keys := make([]string, len(dates))
	for i, date := range dates {
		keys[i] = date.Format(model.DateLayout)
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE date = ANY($1::date[])
		ORDER BY date, mission_id, caregiver_id
	`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// GetAssignment retrieves one assignment, returning db.ErrNotFound if it does not exist
func (d *DB) GetAssignment(ctx context.Context, key model.AssignmentKey) (*model.Assignment, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE date = $1::date AND caregiver_id = $2 AND mission_id = $3
	`, key.Date, key.CaregiverID, key.MissionID)

	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// InsertAssignment creates an assignment and returns the stored row
func (d *DB) InsertAssignment(ctx context.Context, assignment model.Assignment) (*model.Assignment, error) {
	row := d.pool.QueryRow(ctx, `
		INSERT INTO assignment (date, caregiver_id, mission_id, color, created_by_id, updated_by_id)
		VALUES ($1::date, $2, $3, $4, $5, $6)
		RETURNING `+assignmentColumns,
		assignment.Date.Format(model.DateLayout), assignment.CaregiverID, assignment.MissionID,
		nullable(assignment.Color), assignment.CreatedByID, assignment.UpdatedByID)

	stored, err := scanAssignment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}
	return stored, nil
}

// UpdateAssignmentColor sets the display color of an assignment
func (d *DB) UpdateAssignmentColor(ctx context.Context, key model.AssignmentKey, color, userID string) (*model.Assignment, error) {
	row := d.pool.QueryRow(ctx, `
		UPDATE assignment
		SET color = $4, updated_by_id = $5, updated_at = NOW()
		WHERE date = $1::date AND caregiver_id = $2 AND mission_id = $3
		RETURNING `+assignmentColumns,
		key.Date, key.CaregiverID, key.MissionID, nullable(color), userID)

	updated, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment color: %w", err)
	}
	return updated, nil
}

// DeleteAssignment removes one assignment and returns the number of rows deleted
func (d *DB) DeleteAssignment(ctx context.Context, key model.AssignmentKey) (int, error) {
	tag, err := d.pool.Exec(ctx, `
		DELETE FROM assignment
		WHERE date = $1::date AND caregiver_id = $2 AND mission_id = $3
	`, key.Date, key.CaregiverID, key.MissionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignment: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteAssignmentsForDate removes every assignment on the date
func (d *DB) DeleteAssignmentsForDate(ctx context.Context, date time.Time) (int, error) {
	tag, err := d.pool.Exec(ctx, `DELETE FROM assignment WHERE date = $1::date`, date.Format(model.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments for %s: %w", date.Format(model.DateLayout), err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteCaregiverAssignmentsOnDate removes every assignment of the caregiver on the date
func (d *DB) DeleteCaregiverAssignmentsOnDate(ctx context.Context, caregiverID string, date time.Time) (int, error) {
	tag, err := d.pool.Exec(ctx, `
		DELETE FROM assignment WHERE caregiver_id = $1 AND date = $2::date
	`, caregiverID, date.Format(model.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments of caregiver %s on %s: %w", caregiverID, date.Format(model.DateLayout), err)
	}
	return int(tag.RowsAffected()), nil
}

var _ db.Database = (*DB)(nil)
