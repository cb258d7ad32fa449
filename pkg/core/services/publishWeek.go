package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/db"
)

// PlanningPublisher writes a week planning to a spreadsheet
type PlanningPublisher interface {
	PublishPlanning(ctx context.Context, spreadsheetID string, planning *sheetsclient.Planning) error
}

// BuildPlanning lays out a week as one row per active mission in tree order and one
// cell per day listing the assigned caregivers
func BuildPlanning(week *WeekAssignments) *sheetsclient.Planning {
	dayIndex := make(map[string]int, len(week.Days))
	for i, day := range week.Days {
		dayIndex[day.Format(model.DateLayout)] = i
	}

	names := make(map[string][][]string)
	for _, a := range week.Assignments {
		i, ok := dayIndex[a.Date.Format(model.DateLayout)]
		if !ok {
			continue
		}
		if names[a.MissionID] == nil {
			names[a.MissionID] = make([][]string, len(week.Days))
		}
		names[a.MissionID][i] = append(names[a.MissionID][i], a.Caregiver.FullName())
	}

	planning := &sheetsclient.Planning{Days: week.Days}
	for _, branch := range week.Branches {
		for _, sector := range branch.Sectors {
			for _, mission := range sector.Missions {
				cells := make([]string, len(week.Days))
				for i, dayNames := range names[mission.ID] {
					cells[i] = strings.Join(dayNames, ", ")
				}
				planning.Rows = append(planning.Rows, sheetsclient.PlanningRow{
					Branch:  branch.Name,
					Sector:  sector.Name,
					Mission: mission.Name,
					Cells:   cells,
				})
			}
		}
	}
	return planning
}

// PublishWeek writes the stored planning of the week containing date to the configured sheet
func PublishWeek(
	ctx context.Context,
	database db.Database,
	publisher PlanningPublisher,
	cfg *config.Config,
	logger *zap.Logger,
	date string,
) (*sheetsclient.Planning, error) {
	if cfg.PlanningSheetID == "" {
		return nil, fmt.Errorf("planningSheetID is not configured")
	}

	week, err := GetWeekAssignments(ctx, database, logger, date)
	if err != nil {
		return nil, err
	}

	planning := BuildPlanning(week)

	logger.Debug("Publishing planning",
		zap.String("week_start", week.Days[0].Format(model.DateLayout)),
		zap.Int("rows", len(planning.Rows)))

	if err := publisher.PublishPlanning(ctx, cfg.PlanningSheetID, planning); err != nil {
		return nil, fmt.Errorf("failed to publish planning: %w", err)
	}

	return planning, nil
}
