package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// MemoryDB is an in-process Database used for dry runs and tests
type MemoryDB struct {
	mu          sync.Mutex
	branches    []model.Branch
	caregivers  []model.Caregiver
	assignments []model.Assignment
	now         func() time.Time
}

// NewMemoryDB creates a MemoryDB holding copies of the given data
func NewMemoryDB(branches []model.Branch, caregivers []model.Caregiver, assignments []model.Assignment) *MemoryDB {
	m := &MemoryDB{
		branches:   append([]model.Branch(nil), branches...),
		caregivers: append([]model.Caregiver(nil), caregivers...),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, a := range assignments {
		a.Date = calendar.Normalize(a.Date)
		m.assignments = append(m.assignments, a)
	}
	return m
}

// NewMemoryDBFrom copies the reference data and the assignments on the given dates from source
func NewMemoryDBFrom(ctx context.Context, source Database, dates []time.Time) (*MemoryDB, error) {
	branches, err := source.GetBranchesToMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}
	caregivers, err := source.GetCaregivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load caregivers: %w", err)
	}
	assignments, err := source.GetAssignmentsForDates(ctx, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	return NewMemoryDB(branches, caregivers, assignments), nil
}

func (m *MemoryDB) GetBranchesToMissions(ctx context.Context) ([]model.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.Branch
	for _, b := range m.branches {
		if !b.Active {
			continue
		}
		branch := b
		branch.Sectors = nil
		for _, s := range b.Sectors {
			if !s.Active {
				continue
			}
			sector := s
			sector.Missions = nil
			for _, mission := range s.Missions {
				if mission.Active {
					sector.Missions = append(sector.Missions, mission)
				}
			}
			branch.Sectors = append(branch.Sectors, sector)
		}
		result = append(result, branch)
	}
	return result, nil
}

func (m *MemoryDB) GetCaregivers(ctx context.Context) ([]model.Caregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Caregiver(nil), m.caregivers...), nil
}

func (m *MemoryDB) GetAssignmentsForDates(ctx context.Context, dates []time.Time) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[d.Format(model.DateLayout)] = true
	}

	var result []model.Assignment
	for _, a := range m.assignments {
		if wanted[a.Date.Format(model.DateLayout)] {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MemoryDB) GetAssignment(ctx context.Context, key model.AssignmentKey) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.assignments {
		if a.Key() == key {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) InsertAssignment(ctx context.Context, assignment model.Assignment) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	assignment.Date = calendar.Normalize(assignment.Date)
	for _, a := range m.assignments {
		if a.Key() == assignment.Key() {
			return nil, fmt.Errorf("failed to insert assignment: duplicate key %s/%s/%s", assignment.Key().Date, assignment.CaregiverID, assignment.MissionID)
		}
	}

	now := m.now()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	m.assignments = append(m.assignments, assignment)

	stored := assignment
	return &stored, nil
}

func (m *MemoryDB) UpdateAssignmentColor(ctx context.Context, key model.AssignmentKey, color, userID string) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.assignments {
		if m.assignments[i].Key() == key {
			m.assignments[i].Color = color
			m.assignments[i].UpdatedByID = userID
			m.assignments[i].UpdatedAt = m.now()
			updated := m.assignments[i]
			return &updated, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) DeleteAssignment(ctx context.Context, key model.AssignmentKey) (int, error) {
	return m.deleteWhere(func(a model.Assignment) bool { return a.Key() == key }), nil
}

func (m *MemoryDB) DeleteAssignmentsForDate(ctx context.Context, date time.Time) (int, error) {
	day := date.Format(model.DateLayout)
	return m.deleteWhere(func(a model.Assignment) bool { return a.Date.Format(model.DateLayout) == day }), nil
}

func (m *MemoryDB) DeleteCaregiverAssignmentsOnDate(ctx context.Context, caregiverID string, date time.Time) (int, error) {
	day := date.Format(model.DateLayout)
	return m.deleteWhere(func(a model.Assignment) bool {
		return a.CaregiverID == caregiverID && a.Date.Format(model.DateLayout) == day
	}), nil
}

// Assignments returns a copy of every stored assignment
func (m *MemoryDB) Assignments() []model.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Assignment(nil), m.assignments...)
}

func (m *MemoryDB) deleteWhere(match func(model.Assignment) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.assignments[:0]
	deleted := 0
	for _, a := range m.assignments {
		if match(a) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	m.assignments = kept
	return deleted
}
