package criteria

import (
	"fmt"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

// GenderQuotaCriterion keeps the positions reserved by the male and female
// sub-quotas for the right gender.
//
// Validity:
//   - Returns false when adding the candidate would leave too few positions for
//     an unmet quota of the other gender
//
// Validation:
//   - Reports each quota with fewer assigned employees than required
type GenderQuotaCriterion struct{}

func NewGenderQuotaCriterion() *GenderQuotaCriterion {
	return &GenderQuotaCriterion{}
}

func (c *GenderQuotaCriterion) Name() string {
	return "GenderQuota"
}

func (c *GenderQuotaCriterion) IsCandidateValid(plan *allocator.Plan, rp *allocator.RequestPlan, candidate *ranking.Result) bool {
	male, female := rp.GenderCounts()
	free := rp.Request.RequestedAmount - rp.AssignedCount()

	// Positions still owed to each quota
	maleOwed := max(rp.Request.MaleCount-male, 0)
	femaleOwed := max(rp.Request.FemaleCount-female, 0)

	switch candidate.Employee.Gender {
	case model.GenderMale:
		if maleOwed > 0 {
			return true
		}
		return free-1 >= femaleOwed
	case model.GenderFemale:
		if femaleOwed > 0 {
			return true
		}
		return free-1 >= maleOwed
	}
	return free-1 >= maleOwed+femaleOwed
}

func (c *GenderQuotaCriterion) ValidateRequestPlan(plan *allocator.Plan, rp *allocator.RequestPlan) []allocator.RequestValidationError {
	var errors []allocator.RequestValidationError

	male, female := rp.GenderCounts()
	if male < rp.Request.MaleCount {
		errors = append(errors, allocator.RequestValidationError{
			RequestID:     rp.Request.ID,
			Position:      -1,
			CriterionName: c.Name(),
			Description:   fmt.Sprintf("Request has %d male employees but needs %d", male, rp.Request.MaleCount),
		})
	}
	if female < rp.Request.FemaleCount {
		errors = append(errors, allocator.RequestValidationError{
			RequestID:     rp.Request.ID,
			Position:      -1,
			CriterionName: c.Name(),
			Description:   fmt.Sprintf("Request has %d female employees but needs %d", female, rp.Request.FemaleCount),
		})
	}

	return errors
}
