package model

import (
	"slices"
	"strings"
	"time"
)

// BigWeekType identifies which alternating week a caregiver works the five-day block
type BigWeekType string

const (
	BigWeekEven BigWeekType = "EVEN"
	BigWeekOdd  BigWeekType = "ODD"
)

func (t BigWeekType) IsValid() bool {
	return t == BigWeekEven || t == BigWeekOdd
}

// Caregiver represents a member of staff who can be assigned to missions
type Caregiver struct {
	ID              string
	FirstName       string
	LastName        string
	Active          bool
	BigWeekType     BigWeekType // Empty string if not set
	BranchID        string
	AssignedSectors []string
	Color           string
}

// FullName returns "First Last", trimming missing parts
func (c Caregiver) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasSector returns true if the sector is one of the caregiver's assigned sectors
func (c Caregiver) HasSector(sectorID string) bool {
	return slices.Contains(c.AssignedSectors, sectorID)
}

// Branch is a top-level organisational unit owning sectors and caregivers
type Branch struct {
	ID      string
	Name    string
	Active  bool
	Color   string
	Sectors []Sector // In defined order
}

// Sector belongs to one branch and owns an ordered set of missions
type Sector struct {
	ID       string
	BranchID string
	Name     string
	Active   bool
	Color    string
	Missions []Mission // In defined order
}

// Mission is a daily work slot with staffing bounds
type Mission struct {
	ID       string
	SectorID string
	Name     string
	Active   bool
	Color    string

	// Min is the number of caregivers required per day. A mission is mandatory when Min > 0
	Min int

	// Max is the target number of caregivers for optional missions (Min <= 0)
	Max int
}

// IsMandatory returns true if the mission must be staffed before optional missions
func (m Mission) IsMandatory() bool {
	return m.Min > 0
}

// Target returns the number of caregivers the allocator tries to place on this mission
func (m Mission) Target() int {
	if m.IsMandatory() {
		return m.Min
	}
	return max(m.Max, 0)
}

// Assignment is the output fact: a caregiver works a mission on a date.
// Unique per (Date, CaregiverID, MissionID).
type Assignment struct {
	Date        time.Time // Midnight UTC
	CaregiverID string
	MissionID   string
	Color       string // Optional display color
	CreatedByID string
	UpdatedByID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Key returns the unique key of the assignment
func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{Date: a.Date.Format(DateLayout), CaregiverID: a.CaregiverID, MissionID: a.MissionID}
}

// AssignmentKey identifies an assignment row
type AssignmentKey struct {
	Date        string // DateLayout
	CaregiverID string
	MissionID   string
}

// FullAssignment is an Assignment together with its caregiver and mission
type FullAssignment struct {
	Assignment
	Caregiver Caregiver
	Mission   Mission
}

// DateLayout is the canonical date format used across the planner
const DateLayout = "2006-01-02"

// ForbiddenSectors maps caregiver ID to the sector IDs they must not be assigned to for a run
type ForbiddenSectors map[string][]string

// Forbids returns true if the caregiver is excluded from the sector
func (f ForbiddenSectors) Forbids(caregiverID, sectorID string) bool {
	if f == nil {
		return false
	}
	return slices.Contains(f[caregiverID], sectorID)
}

// Add marks a sector as forbidden for the caregiver
func (f ForbiddenSectors) Add(caregiverID, sectorID string) {
	if !f.Forbids(caregiverID, sectorID) {
		f[caregiverID] = append(f[caregiverID], sectorID)
	}
}

// CalendarOptions selects the target week and sector rotation behaviour
type CalendarOptions struct {
	// Date is any day in the target week (DateLayout or RFC 3339)
	Date string

	// Recurrence excludes caregivers who worked a sector on the same weekday last week
	// from that sector's eligible set (caregivers with a single assigned sector are exempt)
	Recurrence bool
}
