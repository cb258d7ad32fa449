package api

import (
	"time"

	"github.com/jakechorley/caregiver-planner/pkg/core/allocator"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/services"
)

// GenerateRequest is the body of POST /api/weeks/generate
type GenerateRequest struct {
	Date string `json:"date" binding:"required"`

	// Recurrence falls back to the configured default when omitted
	Recurrence *bool `json:"recurrence"`

	Regenerate       bool                `json:"regenerate"`
	ForbiddenSectors map[string][]string `json:"forbiddenSectors"`
	Seed             *uint64             `json:"seed"`
	DryRun           bool                `json:"dryRun"`
}

// AssignmentDTO is one stored assignment with display names
type AssignmentDTO struct {
	Date          string `json:"date"`
	CaregiverID   string `json:"caregiverId"`
	CaregiverName string `json:"caregiverName"`
	MissionID     string `json:"missionId"`
	MissionName   string `json:"missionName"`
	Color         string `json:"color,omitempty"`
}

// ShortfallDTO is a mission staffed below its target
type ShortfallDTO struct {
	Date        string `json:"date"`
	MissionID   string `json:"missionId"`
	MissionName string `json:"missionName"`
	Pass        string `json:"pass"`
	Requested   int    `json:"requested"`
	Assigned    int    `json:"assigned"`
}

// ValidationErrorDTO is a rule broken by the generated planning
type ValidationErrorDTO struct {
	Date        string `json:"date"`
	MissionID   string `json:"missionId,omitempty"`
	CaregiverID string `json:"caregiverId,omitempty"`
	Rule        string `json:"rule"`
	Description string `json:"description"`
}

// GenerateResponse is the data of a successful generation
type GenerateResponse struct {
	RunID            string               `json:"runId"`
	WeekStart        string               `json:"weekStart"`
	Deleted          int                  `json:"deleted"`
	DryRun           bool                 `json:"dryRun"`
	Assignments      []AssignmentDTO      `json:"assignments"`
	Shortfalls       []ShortfallDTO       `json:"shortfalls"`
	ValidationErrors []ValidationErrorDTO `json:"validationErrors"`
}

// WeekResponse is the data of GET /api/weeks/:date/assignments
type WeekResponse struct {
	WeekStart   string          `json:"weekStart"`
	Days        []string        `json:"days"`
	Assignments []AssignmentDTO `json:"assignments"`
}

// SwapResponse is the data of POST /api/assignments/swap
type SwapResponse struct {
	Deleted    int            `json:"deleted"`
	Assignment *AssignmentDTO `json:"assignment,omitempty"`
}

func toAssignmentDTOs(assignments []model.FullAssignment) []AssignmentDTO {
	result := make([]AssignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		result = append(result, AssignmentDTO{
			Date:          a.Date.Format(model.DateLayout),
			CaregiverID:   a.CaregiverID,
			CaregiverName: a.Caregiver.FullName(),
			MissionID:     a.MissionID,
			MissionName:   a.Mission.Name,
			Color:         a.Color,
		})
	}
	return result
}

func toGenerateResponse(result *services.GenerateWeekResult) GenerateResponse {
	resp := GenerateResponse{
		RunID:            result.RunID,
		WeekStart:        result.WeekStart.Format(model.DateLayout),
		Deleted:          result.Deleted,
		DryRun:           result.DryRun,
		Assignments:      toAssignmentDTOs(result.Assignments),
		Shortfalls:       make([]ShortfallDTO, 0, len(result.Shortfalls)),
		ValidationErrors: make([]ValidationErrorDTO, 0, len(result.ValidationErrors)),
	}
	for _, s := range result.Shortfalls {
		resp.Shortfalls = append(resp.Shortfalls, toShortfallDTO(s))
	}
	for _, v := range result.ValidationErrors {
		resp.ValidationErrors = append(resp.ValidationErrors, ValidationErrorDTO{
			Date:        v.Date,
			MissionID:   v.MissionID,
			CaregiverID: v.CaregiverID,
			Rule:        v.Rule,
			Description: v.Description,
		})
	}
	return resp
}

func toShortfallDTO(s allocator.Shortfall) ShortfallDTO {
	return ShortfallDTO{
		Date:        s.Date.Format(model.DateLayout),
		MissionID:   s.MissionID,
		MissionName: s.MissionName,
		Pass:        string(s.Pass),
		Requested:   s.Requested,
		Assigned:    s.Assigned,
	}
}

func formatDays(days []time.Time) []string {
	result := make([]string, len(days))
	for i, day := range days {
		result[i] = day.Format(model.DateLayout)
	}
	return result
}
