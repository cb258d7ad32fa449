package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/db"
)

// SwapRequest describes a manual change to one cell of the planning
type SwapRequest struct {
	// BaseCaregiverID is the caregiver currently assigned, empty for an empty cell
	BaseCaregiverID string `json:"baseCaregiverId"`
	// SelectedCaregiverID is the caregiver to put in the cell, empty to clear it
	SelectedCaregiverID string `json:"selectedCaregiverId"`
	Date                string `json:"date" binding:"required"`
	MissionID           string `json:"missionId" binding:"required"`
	Color               string `json:"color"`
}

// SwapResult reports what the swap changed
type SwapResult struct {
	Deleted    int
	Assignment *model.Assignment
}

// SwapAssignmentCaregiver applies a manual edit:
//   - base and selected are the same caregiver and a color is given: recolor the assignment
//   - selected only: the selected caregiver's other assignments that day are removed and
//     the new one is created
//   - base only: the base assignment is removed
//   - both: every assignment of both caregivers that day is removed and the selected
//     caregiver takes the mission
func SwapAssignmentCaregiver(
	ctx context.Context,
	store db.AssignmentStore,
	logger *zap.Logger,
	req SwapRequest,
	userID string,
) (*SwapResult, error) {
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	logger.Debug("Starting swapAssignmentCaregiver",
		zap.String("date", date.Format(model.DateLayout)),
		zap.String("mission_id", req.MissionID),
		zap.String("base", req.BaseCaregiverID),
		zap.String("selected", req.SelectedCaregiverID))

	baseKey := model.AssignmentKey{
		Date:        date.Format(model.DateLayout),
		CaregiverID: req.BaseCaregiverID,
		MissionID:   req.MissionID,
	}

	if req.BaseCaregiverID != "" {
		if _, err := store.GetAssignment(ctx, baseKey); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s on %s for mission %s", ErrAssignmentNotFound, req.BaseCaregiverID, baseKey.Date, req.MissionID)
			}
			return nil, fmt.Errorf("failed to fetch assignment: %w", err)
		}
	}

	result := &SwapResult{}

	switch {
	case req.BaseCaregiverID != "" && req.BaseCaregiverID == req.SelectedCaregiverID && req.Color != "":
		updated, err := store.UpdateAssignmentColor(ctx, baseKey, req.Color, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to update assignment color: %w", err)
		}
		result.Assignment = updated

	case req.SelectedCaregiverID != "" && req.BaseCaregiverID == "":
		deleted, err := store.DeleteCaregiverAssignmentsOnDate(ctx, req.SelectedCaregiverID, date)
		if err != nil {
			return nil, fmt.Errorf("failed to clear assignments of %s: %w", req.SelectedCaregiverID, err)
		}
		result.Deleted = deleted

		if result.Assignment, err = createSwapAssignment(ctx, store, req, date, userID); err != nil {
			return nil, err
		}

	case req.SelectedCaregiverID == "" && req.BaseCaregiverID != "":
		deleted, err := store.DeleteAssignment(ctx, baseKey)
		if err != nil {
			return nil, fmt.Errorf("failed to delete assignment: %w", err)
		}
		result.Deleted = deleted

	case req.SelectedCaregiverID != "" && req.BaseCaregiverID != "":
		for _, caregiverID := range []string{req.SelectedCaregiverID, req.BaseCaregiverID} {
			deleted, err := store.DeleteCaregiverAssignmentsOnDate(ctx, caregiverID, date)
			if err != nil {
				return nil, fmt.Errorf("failed to clear assignments of %s: %w", caregiverID, err)
			}
			result.Deleted += deleted
		}

		if result.Assignment, err = createSwapAssignment(ctx, store, req, date, userID); err != nil {
			return nil, err
		}

	default:
		return nil, ErrNoCaregiverSelected
	}

	logger.Info("Assignment swapped",
		zap.String("date", baseKey.Date),
		zap.String("mission_id", req.MissionID),
		zap.Int("deleted", result.Deleted),
		zap.Bool("created", result.Assignment != nil))

	return result, nil
}

func createSwapAssignment(ctx context.Context, store db.AssignmentStore, req SwapRequest, date time.Time, userID string) (*model.Assignment, error) {
	created, err := store.InsertAssignment(ctx, model.Assignment{
		Date:        date,
		CaregiverID: req.SelectedCaregiverID,
		MissionID:   req.MissionID,
		Color:       req.Color,
		CreatedByID: userID,
		UpdatedByID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return created, nil
}
