package allocator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/roster"
)

const tracerName = "github.com/jakechorley/caregiver-planner/pkg/core/allocator"

// Allocator runs the nested day -> branch -> sector -> mission allocation loop
type Allocator struct {
	input       Input
	recorder    Recorder
	partitioner *roster.Partitioner
	overrides   map[overrideKey]MissionOverride
	rng         *rand.Rand
	logger      *zap.Logger
	tracer      trace.Tracer
	outcome     *Outcome
}

type overrideKey struct {
	date      string
	missionID string
}

// Allocate generates placements for every day in input.Days.
//
// Each placement is passed to the recorder as soon as it is chosen. If the recorder or
// the context returns an error, the run stops and the outcome collected so far is
// returned together with the error.
func Allocate(ctx context.Context, input Input, recorder Recorder) (*Outcome, error) {
	if recorder == nil {
		recorder = Discard
	}

	a := &Allocator{
		input:       input,
		recorder:    recorder,
		partitioner: roster.NewPartitioner(input.BigWeekDays),
		overrides:   indexOverrides(input.Overrides),
		rng:         input.Rand,
		logger:      input.Logger,
		tracer:      otel.Tracer(tracerName),
		outcome: &Outcome{
			Placements: []Placement{},
			Shortfalls: []Shortfall{},
		},
	}
	if a.rng == nil {
		now := uint64(time.Now().UnixNano())
		a.rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	ctx, span := a.tracer.Start(ctx, "allocator.Allocate", trace.WithAttributes(
		attribute.Int("days", len(input.Days)),
		attribute.Int("branches", len(input.Branches)),
		attribute.Int("caregivers", len(input.Caregivers)),
		attribute.Bool("recurrence", input.Recurrence),
	))
	defer span.End()

	for _, day := range input.Days {
		if err := a.allocateDay(ctx, day); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return a.outcome, err
		}
	}

	span.SetAttributes(
		attribute.Int("placements", len(a.outcome.Placements)),
		attribute.Int("shortfalls", len(a.outcome.Shortfalls)),
	)
	return a.outcome, nil
}

func (a *Allocator) allocateDay(ctx context.Context, day time.Time) error {
	day = calendar.Normalize(day)
	weekType := calendar.WeekType(day)
	dateKey := day.Format(model.DateLayout)

	ctx, span := a.tracer.Start(ctx, "allocator.Day", trace.WithAttributes(
		attribute.String("date", dateKey),
		attribute.String("week_type", string(weekType)),
		attribute.Bool("big_week_day", a.partitioner.IsBigWeekDay(day)),
	))
	defer span.End()

	a.logger.Debug("Allocating day",
		zap.String("date", dateKey),
		zap.String("weekType", string(weekType)),
		zap.Bool("bigWeekDay", a.partitioner.IsBigWeekDay(day)))

	for _, branch := range a.input.Branches {
		if !branch.Active {
			continue
		}
		if err := a.allocateBranch(ctx, day, weekType, branch); err != nil {
			return err
		}
	}
	return nil
}

func (a *Allocator) allocateBranch(ctx context.Context, day time.Time, weekType model.BigWeekType, branch model.Branch) error {
	onDuty := a.partitioner.OnDuty(a.input.Caregivers, branch.ID, day, weekType)

	// Fresh pool per (day, branch), shuffled once
	pool := make([]model.Caregiver, len(onDuty))
	copy(pool, onDuty)
	a.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	a.logger.Debug("Allocating branch",
		zap.String("date", day.Format(model.DateLayout)),
		zap.String("branch", branch.Name),
		zap.Int("onDuty", len(pool)))

	for _, pass := range []Pass{PassMandatory, PassOptional} {
		var err error
		pool, err = a.runPass(ctx, day, branch, pass, pool)
		if err != nil {
			return err
		}
	}

	if len(pool) > 0 {
		a.logger.Debug("Caregivers left unassigned",
			zap.String("date", day.Format(model.DateLayout)),
			zap.String("branch", branch.Name),
			zap.Int("count", len(pool)))
	}
	return nil
}

// runPass fills every mission of the pass in sector then mission order and returns the
// remaining pool
func (a *Allocator) runPass(ctx context.Context, day time.Time, branch model.Branch, pass Pass, pool []model.Caregiver) ([]model.Caregiver, error) {
	dateKey := day.Format(model.DateLayout)

	for _, sector := range branch.Sectors {
		if !sector.Active {
			continue
		}

		// Eligible set is computed once per sector and drained by its missions
		var eligible []model.Caregiver
		eligibleComputed := false

		for _, mission := range sector.Missions {
			if !mission.Active {
				continue
			}

			effective, closed := applyOverride(a.overrides, dateKey, mission)
			if closed || passOf(effective) != pass {
				continue
			}

			if err := ctx.Err(); err != nil {
				return pool, fmt.Errorf("allocation cancelled on %s: %w", dateKey, err)
			}

			if !eligibleComputed {
				eligible = roster.Eligible(pool, sector.ID, a.input.Forbidden)
				if a.input.Recurrence {
					eligible = roster.ExcludeRecurring(eligible, sector.ID, a.input.History[dateKey])
				}
				eligibleComputed = true
			}

			target := effective.Target()
			var selected []model.Caregiver
			selected, eligible = removeRandomContiguousSlice(a.rng, eligible, target)

			for _, c := range selected {
				pool = removeCaregiver(pool, c.ID)

				placement := Placement{
					Date:        day,
					BranchID:    branch.ID,
					SectorID:    sector.ID,
					MissionID:   mission.ID,
					CaregiverID: c.ID,
					Pass:        pass,
				}
				if err := a.recorder.Record(ctx, placement); err != nil {
					return pool, fmt.Errorf("failed to record assignment of caregiver %s to mission %s on %s: %w", c.ID, mission.ID, dateKey, err)
				}
				a.outcome.Placements = append(a.outcome.Placements, placement)
			}

			if len(selected) < target {
				shortfall := Shortfall{
					Date:        day,
					BranchID:    branch.ID,
					SectorID:    sector.ID,
					MissionID:   mission.ID,
					MissionName: mission.Name,
					Pass:        pass,
					Requested:   target,
					Assigned:    len(selected),
				}
				a.outcome.Shortfalls = append(a.outcome.Shortfalls, shortfall)
				a.logger.Debug("Mission understaffed",
					zap.String("date", dateKey),
					zap.String("sector", sector.Name),
					zap.String("mission", mission.Name),
					zap.String("pass", string(pass)),
					zap.Int("requested", target),
					zap.Int("assigned", len(selected)))
			}
		}
	}

	return pool, nil
}

func indexOverrides(overrides []MissionOverride) map[overrideKey]MissionOverride {
	index := make(map[overrideKey]MissionOverride, len(overrides))
	for _, o := range overrides {
		index[overrideKey{date: o.Date, missionID: o.MissionID}] = o
	}
	return index
}

// applyOverride returns the mission with any override for the date applied,
// and whether the mission is closed on that date
func applyOverride(overrides map[overrideKey]MissionOverride, dateKey string, mission model.Mission) (model.Mission, bool) {
	override, ok := overrides[overrideKey{date: dateKey, missionID: mission.ID}]
	if !ok {
		return mission, false
	}
	if override.Closed {
		return mission, true
	}
	if override.Min != nil {
		mission.Min = *override.Min
	}
	if override.Max != nil {
		mission.Max = *override.Max
	}
	return mission, false
}

func passOf(mission model.Mission) Pass {
	if mission.IsMandatory() {
		return PassMandatory
	}
	return PassOptional
}

// removeRandomContiguousSlice picks a window of n caregivers starting at a uniformly random
// offset. n is clamped to the list length. Returns the window and the list without it.
// The input slice is not modified.
func removeRandomContiguousSlice(rng *rand.Rand, list []model.Caregiver, n int) ([]model.Caregiver, []model.Caregiver) {
	n = min(n, len(list))
	if n <= 0 {
		return nil, list
	}

	start := rng.IntN(len(list) - n + 1)

	selected := make([]model.Caregiver, n)
	copy(selected, list[start:start+n])

	remaining := make([]model.Caregiver, 0, len(list)-n)
	remaining = append(remaining, list[:start]...)
	remaining = append(remaining, list[start+n:]...)

	return selected, remaining
}

func removeCaregiver(pool []model.Caregiver, caregiverID string) []model.Caregiver {
	for i, c := range pool {
		if c.ID == caregiverID {
			return append(pool[:i:i], pool[i+1:]...)
		}
	}
	return pool
}
