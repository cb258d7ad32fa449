package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/db"
)

// 2025-03-10 is the Monday of ISO week 11, an ODD week
var oddMonday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func seed(s uint64) *uint64 { return &s }

func intPtr(i int) *int { return &i }

func testConfig() *config.Config {
	return &config.Config{DatabaseURL: "postgres://unused"}
}

func testCaregiver(id string, weekType model.BigWeekType, sectors ...string) model.Caregiver {
	return model.Caregiver{
		ID:              id,
		FirstName:       "Care",
		LastName:        id,
		Active:          true,
		BigWeekType:     weekType,
		BranchID:        "north",
		AssignedSectors: sectors,
	}
}

// testTree is one branch with a day-care sector (one mandatory and one optional mission)
// and a night sector with one mandatory mission
func testTree() []model.Branch {
	return []model.Branch{{
		ID:     "north",
		Name:   "North",
		Active: true,
		Sectors: []model.Sector{
			{
				ID: "day", BranchID: "north", Name: "Day care", Active: true,
				Missions: []model.Mission{
					{ID: "morning", SectorID: "day", Name: "Morning", Active: true, Min: 2},
					{ID: "afternoon", SectorID: "day", Name: "Afternoon", Active: true, Min: 0, Max: 2},
				},
			},
			{
				ID: "night", BranchID: "north", Name: "Night", Active: true,
				Missions: []model.Mission{
					{ID: "watch", SectorID: "night", Name: "Watch", Active: true, Min: 1},
				},
			},
		},
	}}
}

// testRoster has four caregivers on duty on every day of any week
func testRoster() []model.Caregiver {
	return []model.Caregiver{
		testCaregiver("odd1", model.BigWeekOdd, "day", "night"),
		testCaregiver("odd2", model.BigWeekOdd, "day"),
		testCaregiver("odd3", model.BigWeekOdd, "day", "night"),
		testCaregiver("odd4", model.BigWeekOdd, "night"),
		testCaregiver("even1", model.BigWeekEven, "day", "night"),
		testCaregiver("even2", model.BigWeekEven, "day"),
		testCaregiver("even3", model.BigWeekEven, "day", "night"),
		testCaregiver("even4", model.BigWeekEven, "night"),
	}
}

func testDB(assignments ...model.Assignment) *db.MemoryDB {
	return db.NewMemoryDB(testTree(), testRoster(), assignments)
}

// flakyDB fails inserts once failAfter assignments have been written
type flakyDB struct {
	*db.MemoryDB
	failAfter int
	inserted  int
}

var errDiskFull = errors.New("disk full")

func (f *flakyDB) InsertAssignment(ctx context.Context, a model.Assignment) (*model.Assignment, error) {
	if f.inserted >= f.failAfter {
		return nil, errDiskFull
	}
	f.inserted++
	return f.MemoryDB.InsertAssignment(ctx, a)
}

// spyMetrics records what the services report
type spyMetrics struct {
	mu          sync.Mutex
	outcomes    []string
	assignments map[string]int
	shortfalls  map[string]int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{assignments: map[string]int{}, shortfalls: map[string]int{}}
}

func (s *spyMetrics) RecordGeneration(outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
}

func (s *spyMetrics) RecordAssignments(pass string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[pass] += count
}

func (s *spyMetrics) RecordShortfall(pass string, slots int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortfalls[pass] += slots
}

func keysOf(assignments []model.Assignment) []model.AssignmentKey {
	keys := make([]model.AssignmentKey, 0, len(assignments))
	for _, a := range assignments {
		keys = append(keys, a.Key())
	}
	return keys
}

func fullKeysOf(assignments []model.FullAssignment) []model.AssignmentKey {
	keys := make([]model.AssignmentKey, 0, len(assignments))
	for _, a := range assignments {
		keys = append(keys, a.Key())
	}
	return keys
}
