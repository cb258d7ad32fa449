package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/db"
)

// WeekAssignments is the stored planning of one week
type WeekAssignments struct {
	Days        []time.Time
	Branches    []model.Branch
	Assignments []model.FullAssignment
}

// GetWeekAssignments returns the assignments of the week containing date, sorted by
// date, mission and caregiver name, together with the active branch tree
func GetWeekAssignments(ctx context.Context, database db.Database, logger *zap.Logger, date string) (*WeekAssignments, error) {
	days, err := resolveWeek(date)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target week: %w", err)
	}

	logger.Debug("Fetching week assignments", zap.String("week_start", days[0].Format(model.DateLayout)))

	branches, err := database.GetBranchesToMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch branches: %w", err)
	}
	caregivers, err := database.GetCaregivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch caregivers: %w", err)
	}
	assignments, err := database.GetAssignmentsForDates(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	full, err := toFullAssignments(assignments, indexCaregivers(caregivers), indexMissions(branches))
	if err != nil {
		return nil, err
	}
	sortFullAssignments(full)

	logger.Debug("Fetched week assignments", zap.Int("count", len(full)))

	return &WeekAssignments{Days: days, Branches: branches, Assignments: full}, nil
}
