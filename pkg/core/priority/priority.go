// Package priority flags employees with priority categories, scores them, and
// marks which positions of a request are preferentially reserved for them.
package priority

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// Built-in category tags
const (
	CategorySkillCertified = "skill_certified"
	CategorySenior         = "senior"
	CategorySpecialProject = "special_project"
)

const (
	// DefaultPositionRatio is one priority position per three positions
	DefaultPositionRatio = 3

	// DefaultUnknownWeight applies to categories missing from the weight table
	DefaultUnknownWeight = 0.1

	// MaxBoost caps the boost score
	MaxBoost = 1.0
)

// ReservedCategories name categories whose priority_ flag would shadow the
// priority_boost and priority_count features
var ReservedCategories = []string{"boost", "count"}

// DefaultWeights is the category weight table used when none is configured
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		CategorySkillCertified: 0.4,
		CategorySenior:         0.3,
		CategorySpecialProject: 0.3,
	}
}

// Policy holds the category weight table and the priority-position ratio
type Policy struct {
	weights       map[string]float64
	unknownWeight float64
	positionRatio int

	// ratioOverrides are per sub-section position ratios
	ratioOverrides map[string]int
}

// NewPolicy creates a Policy. Weights must be non-negative so that the boost is
// monotonically non-decreasing in the number of categories held.
func NewPolicy(weights map[string]float64, unknownWeight float64, positionRatio int) (*Policy, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	normalized := make(map[string]float64, len(weights))
	for cat, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("priority weight for %q must be a non-negative number, got %v", cat, w)
		}
		norm := normalizeCategory(cat)
		if slices.Contains(ReservedCategories, norm) {
			return nil, fmt.Errorf("priority category %q is reserved", cat)
		}
		normalized[norm] = w
	}
	if unknownWeight < 0 {
		return nil, fmt.Errorf("unknown-category weight must be non-negative, got %v", unknownWeight)
	}
	if positionRatio == 0 {
		positionRatio = DefaultPositionRatio
	}
	if positionRatio < 1 {
		return nil, fmt.Errorf("position ratio must be positive, got %d", positionRatio)
	}

	return &Policy{
		weights:        normalized,
		unknownWeight:  unknownWeight,
		positionRatio:  positionRatio,
		ratioOverrides: make(map[string]int),
	}, nil
}

// DefaultPolicy returns the built-in weight table with a 1:3 position ratio
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(DefaultWeights(), DefaultUnknownWeight, DefaultPositionRatio)
	return p
}

// SetRatioOverride sets the position ratio for one sub-section
func (p *Policy) SetRatioOverride(subSectionID string, ratio int) error {
	if ratio < 1 {
		return fmt.Errorf("position ratio for sub-section %s must be positive, got %d", subSectionID, ratio)
	}
	p.ratioOverrides[subSectionID] = ratio
	return nil
}

// RatioFor returns the position ratio for a sub-section
func (p *Policy) RatioFor(subSectionID string) int {
	if r, ok := p.ratioOverrides[subSectionID]; ok {
		return r
	}
	return p.positionRatio
}

// Categories returns the configured categories in sorted order
func (p *Policy) Categories() []string {
	cats := make([]string, 0, len(p.weights))
	for cat := range p.weights {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Weight returns the weight for a category
func (p *Policy) Weight(category string) float64 {
	if w, ok := p.weights[normalizeCategory(category)]; ok {
		return w
	}
	return p.unknownWeight
}

// HasPriority reports whether the category set is non-empty
func HasPriority(categories []string) bool {
	return len(Normalize(categories)) > 0
}

// Boost sums the weights of the held categories, capped at MaxBoost.
// Duplicate tags count once.
func (p *Policy) Boost(categories []string) float64 {
	total := 0.0
	for _, cat := range Normalize(categories) {
		total += p.Weight(cat)
	}
	return math.Min(total, MaxBoost)
}

// MatchScore is the normalized weighted category match in [0,1]: the weight of
// the configured categories held divided by the weight of all configured categories
func (p *Policy) MatchScore(categories []string) float64 {
	totalWeight := 0.0
	for _, w := range p.weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}

	held := 0.0
	for _, cat := range Normalize(categories) {
		if w, ok := p.weights[cat]; ok {
			held += w
		}
	}
	return math.Min(held/totalWeight, 1.0)
}

// Positions returns the zero-based indices of priority positions among total
// positions, one every ratio positions starting at index 0
func Positions(total, ratio int) []int {
	if total <= 0 || ratio < 1 {
		return []int{}
	}
	positions := make([]int, 0, (total+ratio-1)/ratio)
	for i := 0; i < total; i += ratio {
		positions = append(positions, i)
	}
	return positions
}

// PositionsFor returns the priority positions for a request in a sub-section
func (p *Policy) PositionsFor(subSectionID string, total int) []int {
	return Positions(total, p.RatioFor(subSectionID))
}

// Normalize lower-cases, trims, and de-duplicates category tags, dropping empty ones
func Normalize(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, cat := range categories {
		c := normalizeCategory(cat)
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func normalizeCategory(cat string) string {
	return strings.ToLower(strings.TrimSpace(cat))
}
