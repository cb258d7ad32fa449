package services

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// resolveWeek parses any date in the target week and returns its seven days, Monday first
func resolveWeek(date string) ([]time.Time, error) {
	var day time.Time
	if date == "" {
		day = calendar.Normalize(time.Now())
	} else {
		parsed, err := calendar.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		day = parsed
	}
	return calendar.WeekDays(day), nil
}

// previousWeek shifts every day back by seven days
func previousWeek(days []time.Time) []time.Time {
	result := make([]time.Time, len(days))
	for i, day := range days {
		result[i] = day.AddDate(0, 0, -calendar.DaysPerWeek)
	}
	return result
}

// missionRef places a mission in the tree
type missionRef struct {
	Branch  model.Branch
	Sector  model.Sector
	Mission model.Mission
}

// indexMissions maps mission ID to its place in the branch tree
func indexMissions(branches []model.Branch) map[string]missionRef {
	result := make(map[string]missionRef)
	for _, branch := range branches {
		for _, sector := range branch.Sectors {
			for _, mission := range sector.Missions {
				result[mission.ID] = missionRef{Branch: branch, Sector: sector, Mission: mission}
			}
		}
	}
	return result
}

func indexCaregivers(caregivers []model.Caregiver) map[string]model.Caregiver {
	result := make(map[string]model.Caregiver, len(caregivers))
	for _, c := range caregivers {
		result[c.ID] = c
	}
	return result
}

// toFullAssignments joins assignments with their caregiver and mission.
// Missions outside the active tree keep their ID as name; unknown caregivers are an error.
func toFullAssignments(assignments []model.Assignment, caregivers map[string]model.Caregiver, missions map[string]missionRef) ([]model.FullAssignment, error) {
	result := make([]model.FullAssignment, 0, len(assignments))
	for _, a := range assignments {
		caregiver, ok := caregivers[a.CaregiverID]
		if !ok {
			return nil, fmt.Errorf("caregiver not found: %s (assignment on %s)", a.CaregiverID, a.Date.Format(model.DateLayout))
		}
		mission := model.Mission{ID: a.MissionID, Name: a.MissionID}
		if ref, ok := missions[a.MissionID]; ok {
			mission = ref.Mission
		}
		result = append(result, model.FullAssignment{Assignment: a, Caregiver: caregiver, Mission: mission})
	}
	return result, nil
}

// sortFullAssignments orders by date, then mission name, then caregiver name
func sortFullAssignments(assignments []model.FullAssignment) {
	slices.SortStableFunc(assignments, func(a, b model.FullAssignment) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			cmp.Compare(a.Mission.Name, b.Mission.Name),
			cmp.Compare(a.Mission.ID, b.Mission.ID),
			cmp.Compare(a.Caregiver.FullName(), b.Caregiver.FullName()),
		)
	})
}
