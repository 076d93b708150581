package criteria

import (
	"fmt"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

// ExclusivityCriterion enforces that an employee holds at most one position in a plan.
//
// Validity:
//   - Returns false when the candidate already holds a position in any request of the plan
//
// Validation:
//   - Reports an employee found twice in the request, or also in another request of the plan
type ExclusivityCriterion struct{}

func NewExclusivityCriterion() *ExclusivityCriterion {
	return &ExclusivityCriterion{}
}

func (c *ExclusivityCriterion) Name() string {
	return "Exclusivity"
}

func (c *ExclusivityCriterion) IsCandidateValid(plan *allocator.Plan, rp *allocator.RequestPlan, candidate *ranking.Result) bool {
	return !plan.IsAssigned(candidate.Employee.ID)
}

func (c *ExclusivityCriterion) ValidateRequestPlan(plan *allocator.Plan, rp *allocator.RequestPlan) []allocator.RequestValidationError {
	var errors []allocator.RequestValidationError

	seen := make(map[int64]bool)
	for _, slot := range rp.Slots {
		if slot.IsEmpty() {
			continue
		}
		id := slot.EmployeeID()
		if seen[id] {
			errors = append(errors, allocator.RequestValidationError{
				RequestID:     rp.Request.ID,
				Position:      slot.Position,
				CriterionName: c.Name(),
				Description:   fmt.Sprintf("Employee %d is assigned to the request more than once", id),
			})
			continue
		}
		seen[id] = true

		for _, other := range plan.Requests {
			if other == rp {
				continue
			}
			for _, os := range other.Slots {
				if !os.IsEmpty() && os.EmployeeID() == id {
					errors = append(errors, allocator.RequestValidationError{
						RequestID:     rp.Request.ID,
						Position:      slot.Position,
						CriterionName: c.Name(),
						Description:   fmt.Sprintf("Employee %d is also assigned to request %s", id, other.Request.ID),
					})
				}
			}
		}
	}

	return errors
}
