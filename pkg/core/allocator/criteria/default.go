// Package criteria holds the allocation rules applied by the allocator
package criteria

import (
	"github.com/jakechorley/manpower/pkg/core/allocator"
)

// Default returns the criteria applied to every allocation
func Default() []allocator.Criterion {
	return []allocator.Criterion{
		NewHeadcountCriterion(),
		NewGenderQuotaCriterion(),
		NewExclusivityCriterion(),
	}
}
