// Package roster decides which caregivers are working on a given day and which of them
// may be placed in a given sector.
package roster

import (
	"time"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// Partitioner splits a branch roster into on-duty and eligible caregivers
type Partitioner struct {
	bigWeekDays calendar.BigWeekDays
}

// NewPartitioner creates a Partitioner. A nil or empty bigWeekDays uses calendar.DefaultBigWeekDays
func NewPartitioner(bigWeekDays calendar.BigWeekDays) *Partitioner {
	if len(bigWeekDays) == 0 {
		bigWeekDays = calendar.DefaultBigWeekDays
	}
	return &Partitioner{bigWeekDays: bigWeekDays}
}

// IsBigWeekDay returns true if day falls in the five-day big week block
func (p *Partitioner) IsBigWeekDay(day time.Time) bool {
	return p.bigWeekDays.Contains(day)
}

// IsOnDuty returns true if the caregiver works on day, given the week's big week type.
// On big week days the caregivers whose type matches the week work; on the other days
// the complementary caregivers work. Inactive caregivers and caregivers without a big
// week type are never on duty.
func (p *Partitioner) IsOnDuty(caregiver model.Caregiver, day time.Time, weekType model.BigWeekType) bool {
	if !caregiver.Active || !caregiver.BigWeekType.IsValid() {
		return false
	}
	if p.IsBigWeekDay(day) {
		return caregiver.BigWeekType == weekType
	}
	return caregiver.BigWeekType != weekType
}

// OnDuty returns the caregivers of the branch who work on day, preserving roster order
func (p *Partitioner) OnDuty(caregivers []model.Caregiver, branchID string, day time.Time, weekType model.BigWeekType) []model.Caregiver {
	result := make([]model.Caregiver, 0, len(caregivers))
	for _, c := range caregivers {
		if c.BranchID != branchID {
			continue
		}
		if p.IsOnDuty(c, day, weekType) {
			result = append(result, c)
		}
	}
	return result
}

// IsEligible returns true if the caregiver is assigned to the sector and not forbidden from it
func IsEligible(caregiver model.Caregiver, sectorID string, forbidden model.ForbiddenSectors) bool {
	return caregiver.HasSector(sectorID) && !forbidden.Forbids(caregiver.ID, sectorID)
}

// Eligible filters the remaining pool down to caregivers eligible for the sector,
// preserving pool order
func Eligible(pool []model.Caregiver, sectorID string, forbidden model.ForbiddenSectors) []model.Caregiver {
	result := make([]model.Caregiver, 0, len(pool))
	for _, c := range pool {
		if IsEligible(c, sectorID, forbidden) {
			result = append(result, c)
		}
	}
	return result
}

// SectorHistory records which sectors each caregiver worked on a reference day
type SectorHistory map[string]map[string]bool

// Worked returns true if the caregiver worked the sector on the reference day
func (h SectorHistory) Worked(caregiverID, sectorID string) bool {
	return h[caregiverID][sectorID]
}

// Record marks the caregiver as having worked the sector
func (h SectorHistory) Record(caregiverID, sectorID string) {
	if h[caregiverID] == nil {
		h[caregiverID] = make(map[string]bool)
	}
	h[caregiverID][sectorID] = true
}

// ExcludeRecurring removes caregivers who worked the sector on the reference day.
// Caregivers with a single assigned sector are kept since they could otherwise never work.
func ExcludeRecurring(eligible []model.Caregiver, sectorID string, history SectorHistory) []model.Caregiver {
	if len(history) == 0 {
		return eligible
	}
	result := make([]model.Caregiver, 0, len(eligible))
	for _, c := range eligible {
		if len(c.AssignedSectors) > 1 && history.Worked(c.ID, sectorID) {
			continue
		}
		result = append(result, c)
	}
	return result
}
