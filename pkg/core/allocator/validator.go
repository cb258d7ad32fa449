package allocator

import (
	"fmt"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/roster"
)

// Validation rule names
const (
	RuleDoubleBooking = "DoubleBooking"
	RuleIneligible    = "Ineligible"
	RuleOverStaffed   = "OverStaffed"
	RuleOffDuty       = "OffDuty"
	RuleUnknown       = "UnknownReference"
)

// ValidationError represents a rule broken by a placement or a mission
type ValidationError struct {
	Date        string
	MissionID   string
	CaregiverID string
	Rule        string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s on %s: %s", e.Rule, e.Date, e.Description)
}

// ValidateOutcome checks the placements of an outcome against the input they were generated from.
// Returns an empty slice when the outcome is consistent.
func ValidateOutcome(input Input, outcome *Outcome) []ValidationError {
	errs := []ValidationError{}
	if outcome == nil {
		return errs
	}

	partitioner := roster.NewPartitioner(input.BigWeekDays)
	overrides := indexOverrides(input.Overrides)

	caregivers := make(map[string]model.Caregiver, len(input.Caregivers))
	for _, c := range input.Caregivers {
		caregivers[c.ID] = c
	}

	type missionRef struct {
		mission model.Mission
		sector  model.Sector
		branch  model.Branch
	}
	missions := make(map[string]missionRef)
	for _, b := range input.Branches {
		for _, s := range b.Sectors {
			for _, m := range s.Missions {
				missions[m.ID] = missionRef{mission: m, sector: s, branch: b}
			}
		}
	}

	type dayCaregiver struct {
		date        string
		caregiverID string
	}
	type dayMission struct {
		date      string
		missionID string
	}
	booked := make(map[dayCaregiver]string)
	staffed := make(map[dayMission]int)
	var staffedOrder []dayMission

	for _, p := range outcome.Placements {
		dateKey := p.Date.Format(model.DateLayout)

		ref, ok := missions[p.MissionID]
		if !ok {
			errs = append(errs, ValidationError{
				Date:        dateKey,
				MissionID:   p.MissionID,
				CaregiverID: p.CaregiverID,
				Rule:        RuleUnknown,
				Description: fmt.Sprintf("mission %s is not part of the branch tree", p.MissionID),
			})
			continue
		}
		caregiver, ok := caregivers[p.CaregiverID]
		if !ok {
			errs = append(errs, ValidationError{
				Date:        dateKey,
				MissionID:   p.MissionID,
				CaregiverID: p.CaregiverID,
				Rule:        RuleUnknown,
				Description: fmt.Sprintf("caregiver %s is not in the roster", p.CaregiverID),
			})
			continue
		}

		key := dayCaregiver{date: dateKey, caregiverID: p.CaregiverID}
		if previous, exists := booked[key]; exists {
			errs = append(errs, ValidationError{
				Date:        dateKey,
				MissionID:   p.MissionID,
				CaregiverID: p.CaregiverID,
				Rule:        RuleDoubleBooking,
				Description: fmt.Sprintf("%s is already placed on mission %s", caregiver.FullName(), previous),
			})
		} else {
			booked[key] = p.MissionID
		}

		if caregiver.BranchID != ref.branch.ID || !roster.IsEligible(caregiver, ref.sector.ID, input.Forbidden) {
			errs = append(errs, ValidationError{
				Date:        dateKey,
				MissionID:   p.MissionID,
				CaregiverID: p.CaregiverID,
				Rule:        RuleIneligible,
				Description: fmt.Sprintf("%s is not eligible for sector %s", caregiver.FullName(), ref.sector.Name),
			})
		}

		if !partitioner.IsOnDuty(caregiver, p.Date, calendar.WeekType(p.Date)) {
			errs = append(errs, ValidationError{
				Date:        dateKey,
				MissionID:   p.MissionID,
				CaregiverID: p.CaregiverID,
				Rule:        RuleOffDuty,
				Description: fmt.Sprintf("%s is not on duty", caregiver.FullName()),
			})
		}

		mk := dayMission{date: dateKey, missionID: p.MissionID}
		if _, seen := staffed[mk]; !seen {
			staffedOrder = append(staffedOrder, mk)
		}
		staffed[mk]++
	}

	for _, mk := range staffedOrder {
		ref := missions[mk.missionID]
		effective, closed := applyOverride(overrides, mk.date, ref.mission)
		limit := effective.Target()
		if closed {
			limit = 0
		}
		if count := staffed[mk]; count > limit {
			errs = append(errs, ValidationError{
				Date:        mk.date,
				MissionID:   mk.missionID,
				Rule:        RuleOverStaffed,
				Description: fmt.Sprintf("mission %s has %d caregivers, target is %d", ref.mission.Name, count, limit),
			})
		}
	}

	return errs
}
