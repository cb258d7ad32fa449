package allocator

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/roster"
)

// Pass identifies which of the two selection passes produced a placement
type Pass string

const (
	PassMandatory Pass = "mandatory"
	PassOptional  Pass = "optional"
)

// Input contains everything the allocator needs to generate a week
type Input struct {
	// Days to generate, in the order they are processed (Monday first for a full week)
	Days []time.Time

	// Branches is the branch -> sector -> mission tree in defined order.
	// Inactive branches, sectors and missions are skipped.
	Branches []model.Branch

	// Caregivers is the full roster across all branches
	Caregivers []model.Caregiver

	// Forbidden lists sectors specific caregivers must not be placed in for this run
	Forbidden model.ForbiddenSectors

	// BigWeekDays defaults to calendar.DefaultBigWeekDays when empty
	BigWeekDays calendar.BigWeekDays

	// Recurrence excludes caregivers who worked a sector on the same weekday of the previous week
	Recurrence bool

	// History holds, per target date (model.DateLayout), the sectors each caregiver worked
	// seven days earlier. Only used when Recurrence is set.
	History map[string]roster.SectorHistory

	// Overrides adjust or close individual missions on specific dates
	Overrides []MissionOverride

	// Rand drives the shuffle and window selection. A time-seeded source is used when nil.
	Rand *rand.Rand

	// Logger receives debug events at phase boundaries. May be nil.
	Logger *zap.Logger
}

// MissionOverride changes a mission's staffing bounds on a single date
type MissionOverride struct {
	Date      string // model.DateLayout
	MissionID string
	Min       *int
	Max       *int
	Closed    bool
}

// Placement is a caregiver placed on a mission for a date
type Placement struct {
	Date        time.Time
	BranchID    string
	SectorID    string
	MissionID   string
	CaregiverID string
	Pass        Pass
}

// Shortfall records a mission that could not be staffed to its target
type Shortfall struct {
	Date        time.Time
	BranchID    string
	SectorID    string
	MissionID   string
	MissionName string
	Pass        Pass
	Requested   int
	Assigned    int
}

// Missing returns the number of unfilled slots
func (s Shortfall) Missing() int {
	return s.Requested - s.Assigned
}

// Outcome is the result of an allocation run
type Outcome struct {
	// Placements in the order they were recorded
	Placements []Placement

	// Shortfalls for missions that received fewer caregivers than their target
	Shortfalls []Shortfall
}

// Recorder persists a placement before the allocator moves on to the next one.
// Returning an error stops the run; placements already recorded stand.
type Recorder interface {
	Record(ctx context.Context, placement Placement) error
}

// RecorderFunc adapts a function to the Recorder interface
type RecorderFunc func(ctx context.Context, placement Placement) error

func (f RecorderFunc) Record(ctx context.Context, placement Placement) error {
	return f(ctx, placement)
}

// Discard is a Recorder that keeps nothing
var Discard Recorder = RecorderFunc(func(context.Context, Placement) error { return nil })
