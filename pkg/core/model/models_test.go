package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/manpower/pkg/core/errs"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func validRequest() ManpowerRequest {
	return ManpowerRequest{
		ID:              "req-1",
		SubSection:      SubSection{ID: "ss-1", Section: Section{ID: "sec-1"}},
		Date:            date("2025-03-10"),
		Shift:           ShiftMorning,
		RequestedAmount: 3,
		MaleCount:       2,
		FemaleCount:     1,
		Status:          RequestOpen,
	}
}

func TestManpowerRequest_Validate_Valid(t *testing.T) {
	req := validRequest()
	assert.NoError(t, req.Validate())
	assert.Equal(t, 0, req.UnconstrainedCount())
}

func TestManpowerRequest_Validate_QuotaExceedsAmount(t *testing.T) {
	req := validRequest()
	req.MaleCount = 3

	err := req.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	assert.Contains(t, err.Error(), "exceeds requested_amount")
}

func TestManpowerRequest_Validate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ManpowerRequest)
	}{
		{"no id", func(r *ManpowerRequest) { r.ID = "" }},
		{"no shift", func(r *ManpowerRequest) { r.Shift = "" }},
		{"zero amount", func(r *ManpowerRequest) { r.RequestedAmount = 0 }},
		{"negative male", func(r *ManpowerRequest) { r.MaleCount = -1 }},
		{"bad status", func(r *ManpowerRequest) { r.Status = "cancelled" }},
		{"no sub-section", func(r *ManpowerRequest) { r.SubSection = SubSection{} }},
		{"no date", func(r *ManpowerRequest) { r.Date = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrValidation))
		})
	}
}

func TestEmployee_Membership(t *testing.T) {
	emp := Employee{
		ID: 1,
		SubSections: []SubSection{
			{ID: "ss-1", Section: Section{ID: "sec-1"}},
			{ID: "ss-9", Section: Section{ID: "sec-2"}},
		},
	}

	assert.True(t, emp.InSubSection("ss-1"))
	assert.False(t, emp.InSubSection("ss-2"))
	assert.True(t, emp.InSection("sec-2"))
	assert.False(t, emp.InSection("sec-3"))
	assert.False(t, emp.InSection(""))
}

func TestEmployee_SchedulesInWindow_ExcludesReferenceDate(t *testing.T) {
	emp := Employee{
		Schedules: []ScheduleRecord{
			{Date: date("2025-03-10")}, // reference date itself
			{Date: date("2025-03-09")},
			{Date: date("2025-02-08")}, // exactly 30 days before
			{Date: date("2025-02-07")}, // outside the window
		},
	}

	window := emp.SchedulesInWindow(date("2025-03-10"), 30)
	assert.Len(t, window, 2)
}

func TestEmployee_RecentShifts_MostRecentFirst(t *testing.T) {
	emp := Employee{
		Schedules: []ScheduleRecord{
			{Date: date("2025-03-01"), Shift: ShiftNight},
			{Date: date("2025-03-05"), Shift: ShiftMorning},
			{Date: date("2025-03-05"), Shift: ShiftAfternoon},
			{Date: date("2025-03-12"), Shift: ShiftMorning}, // after reference date
		},
	}

	recent := emp.RecentShifts(date("2025-03-10"), 2)
	require.Len(t, recent, 2)
	assert.Equal(t, ShiftAfternoon, recent[0].Shift)
	assert.Equal(t, ShiftMorning, recent[1].Shift)
}

func TestShiftOrder(t *testing.T) {
	order, ok := ShiftOrder("Morning")
	assert.True(t, ok)
	assert.Equal(t, 1, order)

	order, ok = ShiftOrder("night")
	assert.True(t, ok)
	assert.Equal(t, 3, order)

	_, ok = ShiftOrder("graveyard")
	assert.False(t, ok)
}

func TestParseGender(t *testing.T) {
	g, ok := ParseGender("Male")
	assert.True(t, ok)
	assert.Equal(t, GenderMale, g)

	g, ok = ParseGender("P")
	assert.True(t, ok)
	assert.Equal(t, GenderFemale, g)

	_, ok = ParseGender("unknown")
	assert.False(t, ok)
}
