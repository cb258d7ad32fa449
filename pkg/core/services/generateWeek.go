package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/core/allocator"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/roster"
	"github.com/jakechorley/caregiver-planner/pkg/db"
	"github.com/jakechorley/caregiver-planner/pkg/lock"
	"github.com/jakechorley/caregiver-planner/pkg/metrics"
)

const tracerName = "github.com/jakechorley/caregiver-planner/pkg/core/services"

// GenerateWeekRequest describes one generation run
type GenerateWeekRequest struct {
	Options   model.CalendarOptions
	Forbidden model.ForbiddenSectors

	// Regenerate deletes every assignment of the week before allocating
	Regenerate bool

	// UserID is stored as creator and updater of every new assignment
	UserID string

	// Seed makes the run reproducible. A time-based seed is used when nil.
	Seed *uint64

	// DryRun allocates against an in-memory copy and persists nothing
	DryRun bool
}

// GenerateWeekResult contains the generation results
type GenerateWeekResult struct {
	RunID            string
	WeekStart        time.Time
	Days             []time.Time
	Deleted          int
	Assignments      []model.FullAssignment
	Shortfalls       []allocator.Shortfall
	ValidationErrors []allocator.ValidationError
	DryRun           bool
}

// GenerateWeekCalendar fills the target week with assignments.
//
// Assignments are written one at a time as the allocator picks them. Any failure after
// the week lock is taken is returned as a *GenerationError, which matches
// ErrGenerationIncomplete and carries the number of assignments already written.
func GenerateWeekCalendar(
	ctx context.Context,
	database db.Database,
	locker lock.Locker,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *zap.Logger,
	req GenerateWeekRequest,
) (*GenerateWeekResult, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	ctx, span := otel.Tracer(tracerName).Start(ctx, "services.GenerateWeekCalendar")
	defer span.End()

	logger.Debug("Starting generateWeekCalendar",
		zap.String("date", req.Options.Date),
		zap.Bool("recurrence", req.Options.Recurrence),
		zap.Bool("regenerate", req.Regenerate),
		zap.Bool("dry_run", req.DryRun))

	days, err := resolveWeek(req.Options.Date)
	if err != nil {
		recorder.RecordGeneration(metrics.OutcomeFailure, time.Since(started))
		return nil, fmt.Errorf("failed to resolve target week: %w", err)
	}
	span.SetAttributes(attribute.String("week_start", days[0].Format(model.DateLayout)))

	result := &GenerateWeekResult{
		RunID:     runID,
		WeekStart: days[0],
		Days:      days,
		DryRun:    req.DryRun,
	}

	// Step 1: Take the week lock. Dry runs write nothing and skip it.
	store := database
	if req.DryRun {
		memory, err := db.NewMemoryDBFrom(ctx, database, append(previousWeek(days), days...))
		if err != nil {
			recorder.RecordGeneration(metrics.OutcomeFailure, time.Since(started))
			return nil, fmt.Errorf("failed to prepare dry run: %w", err)
		}
		store = memory
	} else {
		lease, err := locker.LockWeek(ctx, days[0])
		if err != nil {
			if errors.Is(err, lock.ErrLocked) {
				recorder.RecordGeneration(metrics.OutcomeLocked, time.Since(started))
				return nil, fmt.Errorf("%w: %v", ErrWeekLocked, err)
			}
			recorder.RecordGeneration(metrics.OutcomeFailure, time.Since(started))
			return nil, fmt.Errorf("failed to lock week: %w", err)
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release week lock", zap.Error(err))
			}
		}()
	}

	outcome, err := generate(ctx, store, cfg, logger, req, result)

	// Metrics cover what happened, complete or not
	if outcome != nil {
		recordOutcomeMetrics(recorder, outcome)
	}

	if err != nil {
		span.RecordError(err)
		recorder.RecordGeneration(metrics.OutcomeFailure, time.Since(started))
		logger.Error("Week generation failed",
			zap.Int("persisted", len(result.Assignments)),
			zap.Error(err))
		return result, &GenerationError{Persisted: len(result.Assignments), Err: err}
	}

	recorder.RecordGeneration(metrics.OutcomeSuccess, time.Since(started))

	logger.Info("Week generated",
		zap.String("week_start", result.WeekStart.Format(model.DateLayout)),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("shortfalls", len(result.Shortfalls)),
		zap.Int("validation_errors", len(result.ValidationErrors)),
		zap.Bool("dry_run", req.DryRun))

	return result, nil
}

// generate runs everything after the lock. It fills result as it goes so the caller
// can report partial progress.
func generate(
	ctx context.Context,
	store db.Database,
	cfg *config.Config,
	logger *zap.Logger,
	req GenerateWeekRequest,
	result *GenerateWeekResult,
) (*allocator.Outcome, error) {
	days := result.Days

	// Step 2: Regenerate
	if req.Regenerate {
		for _, day := range days {
			deleted, err := store.DeleteAssignmentsForDate(ctx, day)
			if err != nil {
				return nil, fmt.Errorf("failed to delete assignments on %s: %w", day.Format(model.DateLayout), err)
			}
			result.Deleted += deleted
		}
		logger.Debug("Deleted existing assignments", zap.Int("count", result.Deleted))
	}

	// Step 3: Load the branch tree and the roster
	branches, err := store.GetBranchesToMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch branches: %w", err)
	}
	caregivers, err := store.GetCaregivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch caregivers: %w", err)
	}
	logger.Debug("Loaded reference data",
		zap.Int("branches", len(branches)),
		zap.Int("caregivers", len(caregivers)))

	missions := indexMissions(branches)
	caregiversByID := indexCaregivers(caregivers)

	// Step 4: Build last week's sector history
	var history map[string]roster.SectorHistory
	if req.Options.Recurrence {
		history, err = buildSectorHistory(ctx, store, days, missions)
		if err != nil {
			return nil, err
		}
	}

	// Step 5: Expand mission overrides
	overrides, err := convertMissionOverrides(cfg.MissionOverrides, days, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to convert mission overrides: %w", err)
	}

	// Step 6: Allocate, writing each assignment as it is chosen
	seed := uint64(time.Now().UnixNano())
	if req.Seed != nil {
		seed = *req.Seed
	}
	logger.Debug("Allocating", zap.Uint64("seed", seed))

	input := allocator.Input{
		Days:        days,
		Branches:    branches,
		Caregivers:  caregivers,
		Forbidden:   req.Forbidden,
		BigWeekDays: cfg.WeekDays(),
		Recurrence:  req.Options.Recurrence,
		History:     history,
		Overrides:   overrides,
		Rand:        rand.New(rand.NewPCG(seed, 0)),
		Logger:      logger,
	}

	persist := allocator.RecorderFunc(func(ctx context.Context, p allocator.Placement) error {
		stored, err := store.InsertAssignment(ctx, model.Assignment{
			Date:        p.Date,
			CaregiverID: p.CaregiverID,
			MissionID:   p.MissionID,
			CreatedByID: req.UserID,
			UpdatedByID: req.UserID,
		})
		if err != nil {
			return err
		}
		result.Assignments = append(result.Assignments, model.FullAssignment{
			Assignment: *stored,
			Caregiver:  caregiversByID[p.CaregiverID],
			Mission:    missions[p.MissionID].Mission,
		})
		return nil
	})

	outcome, err := allocator.Allocate(ctx, input, persist)
	if outcome != nil {
		result.Shortfalls = outcome.Shortfalls
	}
	if err != nil {
		return outcome, err
	}

	// Step 7: Validate what was produced
	result.ValidationErrors = allocator.ValidateOutcome(input, outcome)
	for _, verr := range result.ValidationErrors {
		logger.Warn("Validation error", zap.String("rule", verr.Rule), zap.String("error", verr.Error()))
	}

	for _, shortfall := range outcome.Shortfalls {
		logger.Info("Mission understaffed",
			zap.String("date", shortfall.Date.Format(model.DateLayout)),
			zap.String("mission", shortfall.MissionName),
			zap.String("pass", string(shortfall.Pass)),
			zap.Int("requested", shortfall.Requested),
			zap.Int("assigned", shortfall.Assigned))
	}

	return outcome, nil
}

// buildSectorHistory records, per target day, the sectors each caregiver worked seven days earlier
func buildSectorHistory(ctx context.Context, store db.AssignmentStore, days []time.Time, missions map[string]missionRef) (map[string]roster.SectorHistory, error) {
	lastWeek := previousWeek(days)
	assignments, err := store.GetAssignmentsForDates(ctx, lastWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch previous week assignments: %w", err)
	}

	history := make(map[string]roster.SectorHistory, len(days))
	for _, a := range assignments {
		ref, ok := missions[a.MissionID]
		if !ok {
			// Mission no longer in the active tree
			continue
		}
		target := a.Date.AddDate(0, 0, 7).Format(model.DateLayout)
		if history[target] == nil {
			history[target] = roster.SectorHistory{}
		}
		history[target].Record(a.CaregiverID, ref.Sector.ID)
	}
	return history, nil
}

func recordOutcomeMetrics(recorder metrics.Recorder, outcome *allocator.Outcome) {
	placed := map[allocator.Pass]int{}
	for _, p := range outcome.Placements {
		placed[p.Pass]++
	}
	missing := map[allocator.Pass]int{}
	for _, s := range outcome.Shortfalls {
		missing[s.Pass] += s.Missing()
	}

	for _, pass := range []allocator.Pass{allocator.PassMandatory, allocator.PassOptional} {
		recorder.RecordAssignments(string(pass), placed[pass])
		recorder.RecordShortfall(string(pass), missing[pass])
	}
}
