package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// GetBranchesToMissions returns active branches with their active sectors and missions in defined order.
// Branches and sectors without any active mission are left out since nothing can be allocated to them.
func (d *DB) GetBranchesToMissions(ctx context.Context) ([]model.Branch, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT b.id, b.name, COALESCE(b.color, ''),
		       s.id, s.name, COALESCE(s.color, ''),
		       m.id, m.name, COALESCE(m.color, ''), m.min, m.max
		FROM branch b
		JOIN sector s ON s.branch_id = b.id AND s.active
		JOIN mission m ON m.sector_id = s.id AND m.active
		WHERE b.active
		ORDER BY b.position, b.name, b.id, s.position, s.name, s.id, m.position, m.name, m.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches to missions: %w", err)
	}
	defer rows.Close()

	var branches []model.Branch
	for rows.Next() {
		var b model.Branch
		var s model.Sector
		var m model.Mission
		if err := rows.Scan(&b.ID, &b.Name, &b.Color, &s.ID, &s.Name, &s.Color, &m.ID, &m.Name, &m.Color, &m.Min, &m.Max); err != nil {
			return nil, fmt.Errorf("failed to scan branch to mission row: %w", err)
		}
		b.Active, s.Active, m.Active = true, true, true
		branches = appendTreeRow(branches, b, s, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating branches to missions: %w", err)
	}

	return branches, nil
}

// GetCaregivers returns every caregiver with their assigned sectors
func (d *DB) GetCaregivers(ctx context.Context) ([]model.Caregiver, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT c.id, c.first_name, c.last_name, c.active, c.big_week_type, c.branch_id, c.color,
		       COALESCE(array_agg(cs.sector_id ORDER BY cs.sector_id) FILTER (WHERE cs.sector_id IS NOT NULL), '{}')
		FROM caregiver c
		LEFT JOIN caregiver_sector cs ON cs.caregiver_id = c.id
		GROUP BY c.id
		ORDER BY c.last_name, c.first_name, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query caregivers: %w", err)
	}
	defer rows.Close()

	var caregivers []model.Caregiver
	for rows.Next() {
		var c model.Caregiver
		var bigWeekType, color *string
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Active, &bigWeekType, &c.BranchID, &color, &c.AssignedSectors); err != nil {
			return nil, fmt.Errorf("failed to scan caregiver: %w", err)
		}
		if bigWeekType != nil {
			c.BigWeekType = model.BigWeekType(*bigWeekType)
		}
		if color != nil {
			c.Color = *color
		}
		caregivers = append(caregivers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating caregivers: %w", err)
	}

	return caregivers, nil
}

// appendTreeRow folds one branch/sector/mission row into the tree. Branches and sectors
// are matched by ID so each appears once, at the position of its first row.
func appendTreeRow(branches []model.Branch, b model.Branch, s model.Sector, m model.Mission) []model.Branch {
	s.BranchID = b.ID
	m.SectorID = s.ID

	bi := slices.IndexFunc(branches, func(existing model.Branch) bool { return existing.ID == b.ID })
	if bi < 0 {
		branches = append(branches, b)
		bi = len(branches) - 1
	}
	branch := &branches[bi]

	si := slices.IndexFunc(branch.Sectors, func(existing model.Sector) bool { return existing.ID == s.ID })
	if si < 0 {
		branch.Sectors = append(branch.Sectors, s)
		si = len(branch.Sectors) - 1
	}
	sector := &branch.Sectors[si]
	sector.Missions = append(sector.Missions, m)

	return branches
}
