package features

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Feature names, in the order returned by FeatureVector.Values.
// These are also the keys of persisted linear-model weights.
const (
	NameWorkDaysCount   = "work_days_count"
	NameRating          = "rating"
	NameTestScore       = "test_score"
	NameGender          = "gender"
	NameEmployeeType    = "employee_type"
	NameSameSubSection  = "same_subsection"
	NameSameSection     = "same_section"
	NameCurrentWorkload = "current_workload"
	NameShiftPriority   = "shift_priority"
	NameHasPriority     = "has_priority"
	NamePriorityBoost   = "priority_boost"
	NamePriorityCount   = "priority_count"
)

// Names lists the fixed features. Priority flags are appended separately.
var Names = []string{
	NameWorkDaysCount,
	NameRating,
	NameTestScore,
	NameGender,
	NameEmployeeType,
	NameSameSubSection,
	NameSameSection,
	NameCurrentWorkload,
	NameShiftPriority,
	NameHasPriority,
	NamePriorityBoost,
	NamePriorityCount,
}

// RequiredNames are the keys a raw feature set must carry to be usable for training
var RequiredNames = []string{
	NameWorkDaysCount,
	NameRating,
	NameTestScore,
	NameGender,
	NameEmployeeType,
	NameSameSubSection,
	NameSameSection,
	NameCurrentWorkload,
	NameShiftPriority,
}

// PriorityFlagPrefix prefixes the one-hot priority category features
const PriorityFlagPrefix = "priority_"

// FeatureVector is the numeric description of one (employee, request, date) triple
type FeatureVector struct {
	// WorkDaysCount is the number of schedule records in the 30 days before the date (raw count)
	WorkDaysCount float64
	// Rating is the average rating rescaled from 1-5 to 0-1
	Rating float64
	// TestScore is 1 when the latest blind test was passed
	TestScore float64
	// Gender is 1 for male, 0 for female
	Gender float64
	// EmployeeType is 1 for monthly, 0 for daily
	EmployeeType    float64
	SameSubSection  float64
	SameSection     float64
	CurrentWorkload float64
	ShiftPriority   float64

	HasPriority   float64
	PriorityBoost float64
	PriorityCount float64

	// PriorityFlags holds one-hot category flags keyed by category name
	PriorityFlags map[string]float64
}

// Values returns the fixed features in Names order
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.WorkDaysCount,
		v.Rating,
		v.TestScore,
		v.Gender,
		v.EmployeeType,
		v.SameSubSection,
		v.SameSection,
		v.CurrentWorkload,
		v.ShiftPriority,
		v.HasPriority,
		v.PriorityBoost,
		v.PriorityCount,
	}
}

// Get returns a feature by name, including priority flags ("priority_<category>")
func (v FeatureVector) Get(name string) (float64, bool) {
	if i := slices.Index(Names, name); i >= 0 {
		return v.Values()[i], true
	}
	if len(name) > len(PriorityFlagPrefix) && name[:len(PriorityFlagPrefix)] == PriorityFlagPrefix {
		flag, ok := v.PriorityFlags[name[len(PriorityFlagPrefix):]]
		return flag, ok
	}
	return 0, false
}

// Map flattens the vector into named features, priority flags included
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(Names)+len(v.PriorityFlags))
	for i, val := range v.Values() {
		out[Names[i]] = val
	}
	for cat, flag := range v.PriorityFlags {
		out[PriorityFlagPrefix+cat] = flag
	}
	return out
}

// FlagNames returns the priority flag feature names in sorted order
func (v FeatureVector) FlagNames() []string {
	names := make([]string, 0, len(v.PriorityFlags))
	for cat := range v.PriorityFlags {
		names = append(names, PriorityFlagPrefix+cat)
	}
	sort.Strings(names)
	return names
}

// IsValid reports whether every value is finite
func (v FeatureVector) IsValid() bool {
	for _, val := range v.Values() {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}
	for _, flag := range v.PriorityFlags {
		if math.IsNaN(flag) || math.IsInf(flag, 0) {
			return false
		}
	}
	return true
}

// FromMap builds a vector from a loosely typed feature set, as stored in
// training snapshots. It fails when a required key is missing or any value is
// not a finite number.
func FromMap(raw map[string]any) (FeatureVector, error) {
	if err := ValidateFeatureSet(raw); err != nil {
		return FeatureVector{}, err
	}

	num := func(name string) float64 {
		val, ok := raw[name]
		if !ok {
			return 0
		}
		f, _ := toFloat(val)
		return f
	}

	v := FeatureVector{
		WorkDaysCount:   num(NameWorkDaysCount),
		Rating:          num(NameRating),
		TestScore:       num(NameTestScore),
		Gender:          num(NameGender),
		EmployeeType:    num(NameEmployeeType),
		SameSubSection:  num(NameSameSubSection),
		SameSection:     num(NameSameSection),
		CurrentWorkload: num(NameCurrentWorkload),
		ShiftPriority:   num(NameShiftPriority),
		HasPriority:     num(NameHasPriority),
		PriorityBoost:   num(NamePriorityBoost),
		PriorityCount:   num(NamePriorityCount),
	}

	for key, val := range raw {
		if slices.Contains(Names, key) {
			continue
		}
		if len(key) > len(PriorityFlagPrefix) && key[:len(PriorityFlagPrefix)] == PriorityFlagPrefix {
			if v.PriorityFlags == nil {
				v.PriorityFlags = make(map[string]float64)
			}
			f, _ := toFloat(val)
			v.PriorityFlags[key[len(PriorityFlagPrefix):]] = f
		}
	}

	return v, nil
}

// ValidateFeatureSet checks that every required key is present and that every
// value in the set is a finite number
func ValidateFeatureSet(raw map[string]any) error {
	for _, name := range RequiredNames {
		if _, ok := raw[name]; !ok {
			return fmt.Errorf("missing feature %q", name)
		}
	}
	for key, val := range raw {
		f, ok := toFloat(val)
		if !ok {
			return fmt.Errorf("feature %q is not numeric: %v", key, val)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("feature %q is not finite", key)
		}
	}
	return nil
}

// IsValidFeatureSet is the boolean form of ValidateFeatureSet
func IsValidFeatureSet(raw map[string]any) bool {
	return ValidateFeatureSet(raw) == nil
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
