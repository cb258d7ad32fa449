package services

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/core/allocator"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// convertMissionOverrides expands the configured rules into one allocator override per
// matching day. days must be sorted.
func convertMissionOverrides(configOverrides []config.MissionOverride, days []time.Time, logger *zap.Logger) ([]allocator.MissionOverride, error) {
	result := make([]allocator.MissionOverride, 0)
	if len(days) == 0 {
		return result, nil
	}

	// Start the rule a week early so weekly rules anchored on DTSTART still land on the right days
	searchStart := days[0].AddDate(0, 0, -7)
	searchEnd := days[len(days)-1]

	wanted := make(map[string]bool, len(days))
	for _, day := range days {
		wanted[day.Format(model.DateLayout)] = true
	}

	for i, override := range configOverrides {
		rule, err := rrule.StrToRRule(override.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for override %d: %w", i, err)
		}
		rule.DTStart(searchStart)

		matched := 0
		for _, occurrence := range rule.Between(searchStart, searchEnd, true) {
			date := occurrence.Format(model.DateLayout)
			if !wanted[date] {
				continue
			}
			result = append(result, allocator.MissionOverride{
				Date:      date,
				MissionID: override.MissionID,
				Min:       override.Min,
				Max:       override.Max,
				Closed:    override.Closed,
			})
			matched++
		}

		logger.Debug("Converted mission override",
			zap.Int("index", i),
			zap.String("rrule", override.RRule),
			zap.String("mission_id", override.MissionID),
			zap.Int("matched_days", matched))
	}

	return result, nil
}
