package criteria

import (
	"fmt"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

// HeadcountCriterion prevents overfilling of requests and reports underfilled ones.
//
// Validity:
//   - Returns false when the request has no empty position left
//
// Validation:
//   - Reports a request whose assigned count differs from its requested amount
//   - Requests submitted under an override are still reported, so the audit trail shows the gap
type HeadcountCriterion struct{}

func NewHeadcountCriterion() *HeadcountCriterion {
	return &HeadcountCriterion{}
}

func (c *HeadcountCriterion) Name() string {
	return "Headcount"
}

func (c *HeadcountCriterion) IsCandidateValid(plan *allocator.Plan, rp *allocator.RequestPlan, candidate *ranking.Result) bool {
	return rp.AssignedCount() < rp.Request.RequestedAmount
}

func (c *HeadcountCriterion) ValidateRequestPlan(plan *allocator.Plan, rp *allocator.RequestPlan) []allocator.RequestValidationError {
	var errors []allocator.RequestValidationError

	assigned := rp.AssignedCount()
	switch {
	case len(rp.Slots) > rp.Request.RequestedAmount:
		errors = append(errors, allocator.RequestValidationError{
			RequestID:     rp.Request.ID,
			Position:      -1,
			CriterionName: c.Name(),
			Description:   fmt.Sprintf("Request has %d positions but requested amount is %d", len(rp.Slots), rp.Request.RequestedAmount),
		})
	case assigned < rp.Request.RequestedAmount:
		errors = append(errors, allocator.RequestValidationError{
			RequestID:     rp.Request.ID,
			Position:      -1,
			CriterionName: c.Name(),
			Description:   fmt.Sprintf("Request is underfilled: has %d employees but requested amount is %d", assigned, rp.Request.RequestedAmount),
		})
	}

	return errors
}
