package model

import (
	"slices"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// ParseGender accepts the spellings found in the HR tables ("Male", "L", "P", ...)
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "l", "laki-laki":
		return GenderMale, true
	case "female", "f", "p", "perempuan":
		return GenderFemale, true
	}
	return "", false
}

type EmploymentType string

const (
	EmploymentMonthly EmploymentType = "monthly"
	EmploymentDaily   EmploymentType = "daily"
)

type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestFulfilled RequestStatus = "fulfilled"
)

// Section is the parent organisational unit of a sub-section
type Section struct {
	ID   string
	Name string
}

// SubSection is the unit that raises manpower requests
type SubSection struct {
	ID      string
	Name    string
	Section Section
}

// ScheduleRecord is a historical assignment of an employee to a request
type ScheduleRecord struct {
	ID           string
	EmployeeID   int64
	RequestID    string
	SubSectionID string
	Date         time.Time
	Shift        string
	Hours        float64
	// Line is the production line, 0 when the request does not use lines
	Line int
}

// Employee is a read-only snapshot of a worker as seen by the allocation core
type Employee struct {
	ID     int64
	NIK    string
	Name   string
	Gender Gender
	Type   EmploymentType

	// SubSections the employee belongs to (many-to-many)
	SubSections []SubSection

	// Schedules is the employee's recent history, in any order.
	// Used for rolling work-day counts, workload hours and shift rotation.
	Schedules []ScheduleRecord

	// AverageRating on a 1-5 scale, nil when the employee was never rated
	AverageRating *float64

	// BlindTestPassed is the result of the latest blind test, nil when never tested
	BlindTestPassed *bool

	// WorkloadPoints and BlindTestPoints are the legacy scoring axes maintained
	// by the scheduling subsystem. They are summed as-is, not normalised.
	WorkloadPoints  float64
	BlindTestPoints float64

	// PriorityCategories are tags such as "skill_certified" or "senior"
	PriorityCategories []string
}

// InSubSection reports whether the employee is a member of the sub-section
func (e *Employee) InSubSection(subSectionID string) bool {
	return slices.ContainsFunc(e.SubSections, func(s SubSection) bool {
		return s.ID == subSectionID
	})
}

// InSection reports whether any of the employee's sub-sections belongs to the section
func (e *Employee) InSection(sectionID string) bool {
	if sectionID == "" {
		return false
	}
	return slices.ContainsFunc(e.SubSections, func(s SubSection) bool {
		return s.Section.ID == sectionID
	})
}

// SchedulesInWindow returns the schedule records dated in [ref-days, ref), i.e. the
// days preceding the reference date, excluding the reference date itself.
func (e *Employee) SchedulesInWindow(ref time.Time, days int) []ScheduleRecord {
	end := DayStart(ref)
	start := end.AddDate(0, 0, -days)

	var out []ScheduleRecord
	for _, s := range e.Schedules {
		d := DayStart(s.Date)
		if !d.Before(start) && d.Before(end) {
			out = append(out, s)
		}
	}
	return out
}

// RecentShifts returns up to n schedule records strictly before the reference date,
// most recent first. Ties on date are broken by shift order, latest shift first.
func (e *Employee) RecentShifts(ref time.Time, n int) []ScheduleRecord {
	end := DayStart(ref)

	var prior []ScheduleRecord
	for _, s := range e.Schedules {
		if DayStart(s.Date).Before(end) {
			prior = append(prior, s)
		}
	}

	slices.SortStableFunc(prior, func(a, b ScheduleRecord) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		oa, _ := ShiftOrder(a.Shift)
		ob, _ := ShiftOrder(b.Shift)
		return ob - oa
	})

	if n >= 0 && len(prior) > n {
		prior = prior[:n]
	}
	return prior
}

// DayStart truncates t to midnight UTC of its calendar day
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day
func SameDay(a, b time.Time) bool {
	return DayStart(a).Equal(DayStart(b))
}
