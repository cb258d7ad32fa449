package allocator

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/roster"
)

// 2025-03-10 is the Monday of ISO week 11 (ODD). ODD caregivers work Mon, Tue, Wed, Sat
// and Sun that week, EVEN caregivers work Thu and Fri.
var oddMonday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func caregiver(id string, sectors ...string) model.Caregiver {
	return model.Caregiver{
		ID:              id,
		FirstName:       id,
		Active:          true,
		BigWeekType:     model.BigWeekOdd,
		BranchID:        "b",
		AssignedSectors: sectors,
	}
}

func mission(id string, min, max int) model.Mission {
	return model.Mission{ID: id, SectorID: "s", Name: id, Active: true, Min: min, Max: max}
}

func branchWith(sectors ...model.Sector) model.Branch {
	return model.Branch{ID: "b", Name: "Branch", Active: true, Sectors: sectors}
}

func sectorWith(id string, missions ...model.Mission) model.Sector {
	for i := range missions {
		missions[i].SectorID = id
	}
	return model.Sector{ID: id, BranchID: "b", Name: id, Active: true, Missions: missions}
}

func byMission(placements []Placement) map[string][]string {
	result := make(map[string][]string)
	for _, p := range placements {
		result[p.MissionID] = append(result[p.MissionID], p.CaregiverID)
	}
	return result
}

func TestRemoveRandomContiguousSlice(t *testing.T) {
	list := []model.Caregiver{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
	rng := seeded(1)

	for i := 0; i < 50; i++ {
		selected, remaining := removeRandomContiguousSlice(rng, list, 2)
		require.Len(t, selected, 2)
		require.Len(t, remaining, 3)

		// The window is contiguous in the original list
		start := -1
		for j, c := range list {
			if c.ID == selected[0].ID {
				start = j
			}
		}
		require.GreaterOrEqual(t, start, 0)
		assert.Equal(t, list[start+1].ID, selected[1].ID)

		// Input is untouched
		assert.Equal(t, "a", list[0].ID)
		assert.Equal(t, "e", list[4].ID)
	}
}

func TestRemoveRandomContiguousSlice_ClampsToAvailable(t *testing.T) {
	list := []model.Caregiver{{ID: "a"}}

	selected, remaining := removeRandomContiguousSlice(seeded(1), list, 3)
	assert.Len(t, selected, 1)
	assert.Empty(t, remaining)

	selected, remaining = removeRandomContiguousSlice(seeded(1), nil, 3)
	assert.Empty(t, selected)
	assert.Empty(t, remaining)

	selected, remaining = removeRandomContiguousSlice(seeded(1), list, 0)
	assert.Empty(t, selected)
	assert.Len(t, remaining, 1)
}

func TestRemoveRandomContiguousSlice_CoversAllOffsets(t *testing.T) {
	list := []model.Caregiver{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	rng := seeded(7)

	starts := make(map[string]bool)
	for i := 0; i < 200; i++ {
		selected, _ := removeRandomContiguousSlice(rng, list, 2)
		starts[selected[0].ID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, starts)
}

func TestAllocate_MandatoryThenOptionalScenario(t *testing.T) {
	input := Input{
		Days:       []time.Time{oddMonday},
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m1", 2, 0), mission("m2", 0, 1)))},
		Caregivers: []model.Caregiver{caregiver("A", "s"), caregiver("B", "s"), caregiver("C", "s")},
	}

	for seed := uint64(0); seed < 25; seed++ {
		input.Rand = seeded(seed)

		outcome, err := Allocate(context.Background(), input, nil)
		require.NoError(t, err)

		placed := byMission(outcome.Placements)
		assert.Len(t, placed["m1"], 2)
		assert.Len(t, placed["m2"], 1)
		assert.Len(t, outcome.Placements, 3)
		assert.ElementsMatch(t, []string{"A", "B", "C"}, append(placed["m1"], placed["m2"]...))
		assert.Empty(t, outcome.Shortfalls)
		assert.Empty(t, ValidateOutcome(input, outcome))
	}
}

func TestAllocate_ForbiddenSectorNeverUsed(t *testing.T) {
	input := Input{
		Days:       calendar.WeekDays(oddMonday),
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m1", 2, 0), mission("m2", 0, 1)))},
		Caregivers: []model.Caregiver{caregiver("A", "s"), caregiver("B", "s"), caregiver("C", "s")},
		Forbidden:  model.ForbiddenSectors{"A": {"s"}},
	}

	for seed := uint64(0); seed < 25; seed++ {
		input.Rand = seeded(seed)

		outcome, err := Allocate(context.Background(), input, nil)
		require.NoError(t, err)

		for _, p := range outcome.Placements {
			assert.NotEqual(t, "A", p.CaregiverID)
		}
		assert.Empty(t, ValidateOutcome(input, outcome))
	}
}

func TestAllocate_ShortageIsClamped(t *testing.T) {
	m1 := mission("m1", 3, 0)
	m1.Name = "Morning round"
	input := Input{
		Days:       []time.Time{oddMonday},
		Branches:   []model.Branch{branchWith(sectorWith("s", m1))},
		Caregivers: []model.Caregiver{caregiver("A", "s"), caregiver("B", "other")},
		Rand:       seeded(1),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)

	require.Len(t, outcome.Placements, 1)
	assert.Equal(t, "A", outcome.Placements[0].CaregiverID)

	require.Len(t, outcome.Shortfalls, 1)
	shortfall := outcome.Shortfalls[0]
	assert.Equal(t, "m1", shortfall.MissionID)
	assert.Equal(t, "Morning round", shortfall.MissionName)
	assert.Equal(t, PassMandatory, shortfall.Pass)
	assert.Equal(t, 3, shortfall.Requested)
	assert.Equal(t, 1, shortfall.Assigned)
	assert.Equal(t, 2, shortfall.Missing())
}

func TestAllocate_EmptyRosterDegradesGracefully(t *testing.T) {
	input := Input{
		Days:     calendar.WeekDays(oddMonday),
		Branches: []model.Branch{branchWith(sectorWith("s", mission("m1", 1, 0), mission("m2", 0, 2)))},
		Rand:     seeded(1),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Placements)
	assert.Len(t, outcome.Shortfalls, 14)
}

func TestAllocate_MandatoryFirstWithinSector(t *testing.T) {
	// Optional mission defined first must still wait for the mandatory one
	input := Input{
		Days:       []time.Time{oddMonday},
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("optional", 0, 2), mission("mandatory", 2, 0)))},
		Caregivers: []model.Caregiver{caregiver("A", "s"), caregiver("B", "s")},
	}

	for seed := uint64(0); seed < 25; seed++ {
		input.Rand = seeded(seed)

		outcome, err := Allocate(context.Background(), input, nil)
		require.NoError(t, err)

		placed := byMission(outcome.Placements)
		assert.Len(t, placed["mandatory"], 2)
		assert.Empty(t, placed["optional"])
		for _, p := range outcome.Placements {
			assert.Equal(t, PassMandatory, p.Pass)
		}
	}
}

func TestAllocate_MandatoryFirstAcrossSectors(t *testing.T) {
	// An optional mission in an earlier sector never takes caregivers a later mandatory mission needs
	input := Input{
		Days: []time.Time{oddMonday},
		Branches: []model.Branch{branchWith(
			sectorWith("s1", mission("optional", 0, 3)),
			sectorWith("s2", mission("mandatory", 2, 0)),
		)},
		Caregivers: []model.Caregiver{caregiver("A", "s1", "s2"), caregiver("B", "s1", "s2"), caregiver("C", "s1", "s2")},
	}

	for seed := uint64(0); seed < 25; seed++ {
		input.Rand = seeded(seed)

		outcome, err := Allocate(context.Background(), input, nil)
		require.NoError(t, err)

		placed := byMission(outcome.Placements)
		assert.Len(t, placed["mandatory"], 2)
		assert.Len(t, placed["optional"], 1)

		// Every mandatory placement is recorded before any optional one
		seenOptional := false
		for _, p := range outcome.Placements {
			if p.Pass == PassOptional {
				seenOptional = true
				continue
			}
			assert.False(t, seenOptional, "mandatory placement recorded after an optional one")
		}
	}
}

func TestAllocate_FullWeekHasNoDoubleBooking(t *testing.T) {
	var caregivers []model.Caregiver
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		c := caregiver(id, "s1", "s2")
		if i%2 == 0 {
			c.BigWeekType = model.BigWeekEven
		}
		if i%3 == 0 {
			c.AssignedSectors = []string{"s1"}
		}
		caregivers = append(caregivers, c)
	}

	input := Input{
		Days: calendar.WeekDays(oddMonday),
		Branches: []model.Branch{branchWith(
			sectorWith("s1", mission("s1-day", 2, 0), mission("s1-extra", 0, 2)),
			sectorWith("s2", mission("s2-day", 1, 0), mission("s2-extra", -1, 3)),
		)},
		Caregivers: caregivers,
		Forbidden:  model.ForbiddenSectors{"b": {"s2"}},
	}

	for seed := uint64(0); seed < 25; seed++ {
		input.Rand = seeded(seed)

		outcome, err := Allocate(context.Background(), input, nil)
		require.NoError(t, err)
		require.NotEmpty(t, outcome.Placements)

		seen := make(map[string]bool)
		for _, p := range outcome.Placements {
			key := p.Date.Format(model.DateLayout) + "/" + p.CaregiverID
			assert.False(t, seen[key], "caregiver %s placed twice on %s", p.CaregiverID, p.Date)
			seen[key] = true
		}
		assert.Empty(t, ValidateOutcome(input, outcome))
	}
}

func TestAllocate_OnlyOnDutyCaregiversArePlaced(t *testing.T) {
	even := caregiver("even", "s")
	even.BigWeekType = model.BigWeekEven
	unset := caregiver("unset", "s")
	unset.BigWeekType = ""
	inactive := caregiver("inactive", "s")
	inactive.Active = false

	input := Input{
		Days:       calendar.WeekDays(oddMonday),
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m", 1, 0)))},
		Caregivers: []model.Caregiver{caregiver("odd", "s"), even, unset, inactive},
		Rand:       seeded(3),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)
	require.Len(t, outcome.Placements, 7)

	for _, p := range outcome.Placements {
		switch p.Date.Weekday() {
		case time.Thursday, time.Friday:
			assert.Equal(t, "even", p.CaregiverID, p.Date.Weekday().String())
		default:
			assert.Equal(t, "odd", p.CaregiverID, p.Date.Weekday().String())
		}
	}
}

func TestAllocate_SkipsInactiveTree(t *testing.T) {
	inactiveMission := mission("inactive-mission", 1, 0)
	inactiveMission.Active = false
	inactiveSector := sectorWith("inactive-sector", mission("m-in-inactive-sector", 1, 0))
	inactiveSector.Active = false
	inactiveBranch := model.Branch{ID: "b", Active: false, Sectors: []model.Sector{sectorWith("s", mission("m-in-inactive-branch", 1, 0))}}

	input := Input{
		Days: []time.Time{oddMonday},
		Branches: []model.Branch{
			branchWith(sectorWith("s", inactiveMission, mission("m", 1, 0)), inactiveSector),
			inactiveBranch,
		},
		Caregivers: []model.Caregiver{caregiver("A", "s", "inactive-sector"), caregiver("B", "s", "inactive-sector")},
		Rand:       seeded(1),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)

	placed := byMission(outcome.Placements)
	assert.Equal(t, []string{"m"}, keys(placed))
}

func keys(m map[string][]string) []string {
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	return result
}

func TestAllocate_BranchesDoNotShareCaregivers(t *testing.T) {
	other := caregiver("other", "s2")
	other.BranchID = "b2"

	input := Input{
		Days: []time.Time{oddMonday},
		Branches: []model.Branch{
			branchWith(sectorWith("s", mission("m1", 2, 0))),
			{ID: "b2", Active: true, Sectors: []model.Sector{{ID: "s2", BranchID: "b2", Active: true, Missions: []model.Mission{{ID: "m2", SectorID: "s2", Active: true, Min: 2}}}}},
		},
		Caregivers: []model.Caregiver{caregiver("A", "s", "s2"), other},
		Rand:       seeded(1),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)

	placed := byMission(outcome.Placements)
	assert.Equal(t, []string{"A"}, placed["m1"])
	assert.Equal(t, []string{"other"}, placed["m2"])
	assert.Len(t, outcome.Shortfalls, 2)
}

func TestAllocate_OptionalWithZeroMaxIsNotAShortfall(t *testing.T) {
	input := Input{
		Days:       []time.Time{oddMonday},
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m", 0, 0), mission("negative", -2, -1)))},
		Caregivers: []model.Caregiver{caregiver("A", "s")},
		Rand:       seeded(1),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Placements)
	assert.Empty(t, outcome.Shortfalls)
}

func TestAllocate_SameSeedSameOutcome(t *testing.T) {
	input := Input{
		Days:       calendar.WeekDays(oddMonday),
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m1", 2, 0), mission("m2", 0, 2)))},
		Caregivers: []model.Caregiver{caregiver("A", "s"), caregiver("B", "s"), caregiver("C", "s"), caregiver("D", "s")},
	}

	input.Rand = seeded(42)
	first, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)

	input.Rand = seeded(42)
	second, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Placements, second.Placements)
}

func TestAllocate_Recurrence(t *testing.T) {
	branch := branchWith(
		sectorWith("s1", mission("m1", 1, 0)),
		sectorWith("s2", mission("m2", 1, 0)),
	)
	caregivers := []model.Caregiver{caregiver("multi", "s1", "s2"), caregiver("other", "s1", "s2")}

	history := roster.SectorHistory{}
	history.Record("multi", "s1")
	history.Record("other", "s2")

	input := Input{
		Days:       []time.Time{oddMonday},
		Branches:   []model.Branch{branch},
		Caregivers: caregivers,
		History:    map[string]roster.SectorHistory{oddMonday.Format(model.DateLayout): history},
	}

	t.Run("enabled rotates sectors", func(t *testing.T) {
		input.Recurrence = true
		for seed := uint64(0); seed < 25; seed++ {
			input.Rand = seeded(seed)
			outcome, err := Allocate(context.Background(), input, nil)
			require.NoError(t, err)

			placed := byMission(outcome.Placements)
			assert.Equal(t, []string{"other"}, placed["m1"])
			assert.Equal(t, []string{"multi"}, placed["m2"])
		}
	})

	t.Run("disabled ignores history", func(t *testing.T) {
		input.Recurrence = false
		sawRepeat := false
		for seed := uint64(0); seed < 50; seed++ {
			input.Rand = seeded(seed)
			outcome, err := Allocate(context.Background(), input, nil)
			require.NoError(t, err)

			if placed := byMission(outcome.Placements); len(placed["m1"]) == 1 && placed["m1"][0] == "multi" {
				sawRepeat = true
			}
		}
		assert.True(t, sawRepeat, "without recurrence the same caregiver can work the same sector again")
	})

	t.Run("single sector caregivers are exempt", func(t *testing.T) {
		single := caregiver("single", "s1")
		h := roster.SectorHistory{}
		h.Record("single", "s1")

		in := Input{
			Days:       []time.Time{oddMonday},
			Branches:   []model.Branch{branchWith(sectorWith("s1", mission("m1", 1, 0)))},
			Caregivers: []model.Caregiver{single},
			Recurrence: true,
			History:    map[string]roster.SectorHistory{oddMonday.Format(model.DateLayout): h},
			Rand:       seeded(1),
		}
		outcome, err := Allocate(context.Background(), in, nil)
		require.NoError(t, err)
		require.Len(t, outcome.Placements, 1)
		assert.Equal(t, "single", outcome.Placements[0].CaregiverID)
	})
}

func TestAllocate_Overrides(t *testing.T) {
	tuesday := oddMonday.AddDate(0, 0, 1)
	two := 2
	zero := 0

	input := Input{
		Days:       []time.Time{oddMonday, tuesday},
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m1", 1, 0), mission("m2", 0, 1)))},
		Caregivers: []model.Caregiver{caregiver("A", "s"), caregiver("B", "s"), caregiver("C", "s")},
		Overrides: []MissionOverride{
			{Date: oddMonday.Format(model.DateLayout), MissionID: "m1", Closed: true},
			{Date: tuesday.Format(model.DateLayout), MissionID: "m1", Min: &two},
			{Date: tuesday.Format(model.DateLayout), MissionID: "m2", Max: &zero},
		},
		Rand: seeded(5),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)

	perDay := make(map[string]map[string]int)
	for _, p := range outcome.Placements {
		d := p.Date.Format(model.DateLayout)
		if perDay[d] == nil {
			perDay[d] = make(map[string]int)
		}
		perDay[d][p.MissionID]++
	}

	assert.Equal(t, map[string]int{"m2": 1}, perDay[oddMonday.Format(model.DateLayout)])
	assert.Equal(t, map[string]int{"m1": 2}, perDay[tuesday.Format(model.DateLayout)])
	assert.Empty(t, ValidateOutcome(input, outcome))
}

func TestAllocate_OverrideCanMakeMissionOptional(t *testing.T) {
	zero := 0
	one := 1
	input := Input{
		Days: []time.Time{oddMonday},
		Branches: []model.Branch{branchWith(
			sectorWith("s1", mission("demoted", 2, 0)),
			sectorWith("s2", mission("mandatory", 1, 0)),
		)},
		Caregivers: []model.Caregiver{caregiver("A", "s1", "s2")},
		Overrides: []MissionOverride{
			{Date: oddMonday.Format(model.DateLayout), MissionID: "demoted", Min: &zero, Max: &one},
		},
		Rand: seeded(1),
	}

	outcome, err := Allocate(context.Background(), input, nil)
	require.NoError(t, err)

	require.Len(t, outcome.Placements, 1)
	assert.Equal(t, "mandatory", outcome.Placements[0].MissionID)
	require.Len(t, outcome.Shortfalls, 1)
	assert.Equal(t, "demoted", outcome.Shortfalls[0].MissionID)
	assert.Equal(t, PassOptional, outcome.Shortfalls[0].Pass)
}

func TestAllocate_RecorderSeesEachPlacementInOrder(t *testing.T) {
	input := Input{
		Days:       calendar.WeekDays(oddMonday),
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m1", 1, 0), mission("m2", 0, 1)))},
		Caregivers: []model.Caregiver{caregiver("A", "s"), caregiver("B", "s")},
		Rand:       seeded(9),
	}

	var recorded []Placement
	recorder := RecorderFunc(func(_ context.Context, p Placement) error {
		recorded = append(recorded, p)
		return nil
	})

	outcome, err := Allocate(context.Background(), input, recorder)
	require.NoError(t, err)
	assert.Equal(t, outcome.Placements, recorded)
}

func TestAllocate_RecorderErrorStopsRun(t *testing.T) {
	input := Input{
		Days:       calendar.WeekDays(oddMonday),
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m1", 1, 0)))},
		Caregivers: []model.Caregiver{caregiver("A", "s")},
		Rand:       seeded(1),
	}

	writeErr := errors.New("connection reset")
	calls := 0
	recorder := RecorderFunc(func(_ context.Context, p Placement) error {
		calls++
		if calls == 3 {
			return writeErr
		}
		return nil
	})

	outcome, err := Allocate(context.Background(), input, recorder)
	require.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.Contains(t, err.Error(), "failed to record assignment")

	// The two placements persisted before the failure are reported
	require.NotNil(t, outcome)
	assert.Len(t, outcome.Placements, 2)
	assert.Equal(t, 3, calls)
}

func TestAllocate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := Input{
		Days:       []time.Time{oddMonday},
		Branches:   []model.Branch{branchWith(sectorWith("s", mission("m1", 1, 0)))},
		Caregivers: []model.Caregiver{caregiver("A", "s")},
		Rand:       seeded(1),
	}

	outcome, err := Allocate(ctx, input, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcome.Placements)
}
