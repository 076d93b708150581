package model

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/manpower/pkg/core/errs"
)

// ManpowerRequest is a staffing need for a sub-section, shift and date
type ManpowerRequest struct {
	ID         string `validate:"required"`
	SubSection SubSection
	Date       time.Time
	Shift      string `validate:"required"`

	// RequestedAmount is the total headcount
	RequestedAmount int `validate:"min=1"`

	// MaleCount and FemaleCount are sub-quotas of RequestedAmount.
	// Positions beyond MaleCount+FemaleCount are unconstrained.
	MaleCount   int `validate:"min=0"`
	FemaleCount int `validate:"min=0"`

	Status RequestStatus `validate:"omitempty,oneof=open fulfilled"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks required fields and the gender quota invariant
func (r *ManpowerRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		e := errs.Validation("request %q is malformed", r.ID)
		e.Cause = err
		return e
	}
	if r.SubSection.ID == "" {
		return errs.Validation("request %q has no sub-section", r.ID)
	}
	if r.Date.IsZero() {
		return errs.Validation("request %q has no date", r.ID)
	}
	if r.MaleCount+r.FemaleCount > r.RequestedAmount {
		return errs.Validation("request %q: male_count %d + female_count %d exceeds requested_amount %d",
			r.ID, r.MaleCount, r.FemaleCount, r.RequestedAmount).
			WithField("request_id", r.ID)
	}
	return nil
}

// UnconstrainedCount returns the positions not covered by a gender sub-quota
func (r *ManpowerRequest) UnconstrainedCount() int {
	return max(r.RequestedAmount-r.MaleCount-r.FemaleCount, 0)
}
