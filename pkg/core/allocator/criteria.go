package allocator

import (
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

// Criterion defines a pluggable allocation rule.
// Criteria veto candidates during selection and check the finished plan.
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// IsCandidateValid determines if the candidate may take a slot of the request.
	// This acts as a veto: if ANY criterion returns false, the candidate is skipped.
	IsCandidateValid(plan *Plan, rp *RequestPlan, candidate *ranking.Result) bool

	// ValidateRequestPlan checks a request's slots against this criterion.
	// Returns a slice of validation errors (empty if all valid).
	ValidateRequestPlan(plan *Plan, rp *RequestPlan) []RequestValidationError
}

// IsCandidateValid reports whether no criterion vetoes the candidate
func IsCandidateValid(plan *Plan, rp *RequestPlan, candidate *ranking.Result, criteria []Criterion) bool {
	for _, c := range criteria {
		if !c.IsCandidateValid(plan, rp, candidate) {
			return false
		}
	}
	return true
}

// ValidatePlan runs every criterion against every request of the plan
func ValidatePlan(plan *Plan, criteria []Criterion) []RequestValidationError {
	errors := []RequestValidationError{}
	for _, rp := range plan.Requests {
		for _, c := range criteria {
			errors = append(errors, c.ValidateRequestPlan(plan, rp)...)
		}
	}
	return errors
}
