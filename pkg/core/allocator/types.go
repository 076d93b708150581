package allocator

import (
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

// Strategy orders the shared candidate pool in a bulk allocation
type Strategy string

const (
	// StrategyRanked keeps the ranking order (single-request default)
	StrategyRanked Strategy = "ranked"

	// StrategyOptimal prefers members of the request's sub-section, then score
	StrategyOptimal Strategy = "optimal"

	// StrategySameSection prefers members of the request's parent section, then score
	StrategySameSection Strategy = "same_section"

	// StrategyBalanced spreads load: ascending workload points, score ignored
	StrategyBalanced Strategy = "balanced"
)

// ParseStrategy accepts the strategy names used on the command line
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyRanked, StrategyOptimal, StrategySameSection, StrategyBalanced:
		return Strategy(s), true
	case "":
		return StrategyRanked, true
	}
	return "", false
}

// State is the lifecycle of a request within a plan. It only moves forward.
type State int

const (
	StateEmpty State = iota
	StatePartiallyAssigned
	StateFullyAssigned
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartiallyAssigned:
		return "partially_assigned"
	case StateFullyAssigned:
		return "fully_assigned"
	case StateSubmitted:
		return "submitted"
	}
	return "unknown"
}

// Plan is the outcome of one allocation pass over requests sharing a
// sub-section and date. An employee appears in at most one slot of a plan.
type Plan struct {
	ID           uuid.UUID
	SubSectionID string
	Date         time.Time
	Strategy     Strategy
	CreatedAt    time.Time

	Requests []*RequestPlan

	// ValidationErrors from the criteria, refreshed after every change
	ValidationErrors []RequestValidationError

	// assigned maps employee id to the id of the request holding them
	assigned map[int64]string
}

// NewPlan creates an empty plan for a sub-section and date
func NewPlan(subSectionID string, date time.Time, strategy Strategy) *Plan {
	return &Plan{
		ID:               uuid.New(),
		SubSectionID:     subSectionID,
		Date:             model.DayStart(date),
		Strategy:         strategy,
		CreatedAt:        time.Now().UTC(),
		Requests:         []*RequestPlan{},
		ValidationErrors: []RequestValidationError{},
		assigned:         make(map[int64]string),
	}
}

// Request returns the plan for a request id, or nil
func (p *Plan) Request(requestID string) *RequestPlan {
	for _, rp := range p.Requests {
		if rp.Request.ID == requestID {
			return rp
		}
	}
	return nil
}

// IsAssigned reports whether the employee holds a slot anywhere in the plan
func (p *Plan) IsAssigned(employeeID int64) bool {
	_, ok := p.assigned[employeeID]
	return ok
}

// AssignedTo returns the id of the request holding the employee
func (p *Plan) AssignedTo(employeeID int64) (string, bool) {
	id, ok := p.assigned[employeeID]
	return id, ok
}

// IsComplete reports whether every request is fully assigned or submitted
func (p *Plan) IsComplete() bool {
	for _, rp := range p.Requests {
		if rp.State < StateFullyAssigned {
			return false
		}
	}
	return true
}

// RequestPlan holds the positions of one request
type RequestPlan struct {
	Request *model.ManpowerRequest

	// Slots has exactly RequestedAmount positions, filled or empty
	Slots []Slot

	// Lines is the number of production lines, 0 when lines are not used
	Lines int

	State State

	// Override is set when the request was submitted incomplete
	Override *Override

	// Ranking is the ranked candidate list the request was allocated from
	Ranking []ranking.Result
}

// Slot is one position of a request
type Slot struct {
	Position int

	// Candidate is nil for an empty position
	Candidate *ranking.Result

	// Line is the 1-based production line, 0 when lines are not used
	Line int

	// PriorityPosition marks positions reserved for priority employees where possible
	PriorityPosition bool
}

// IsEmpty reports whether the slot has no employee
func (s Slot) IsEmpty() bool {
	return s.Candidate == nil
}

// EmployeeID returns the slot's employee id, or 0 when empty
func (s Slot) EmployeeID() int64 {
	if s.Candidate == nil {
		return 0
	}
	return s.Candidate.Employee.ID
}

// AssignedCount returns the number of filled slots
func (rp *RequestPlan) AssignedCount() int {
	count := 0
	for _, s := range rp.Slots {
		if !s.IsEmpty() {
			count++
		}
	}
	return count
}

// GenderCounts returns the number of assigned male and female employees
func (rp *RequestPlan) GenderCounts() (male, female int) {
	for _, s := range rp.Slots {
		if s.IsEmpty() {
			continue
		}
		switch s.Candidate.Employee.Gender {
		case model.GenderMale:
			male++
		case model.GenderFemale:
			female++
		}
	}
	return male, female
}

// EmployeeIDs returns the assigned employee ids in position order
func (rp *RequestPlan) EmployeeIDs() []int64 {
	ids := make([]int64, 0, len(rp.Slots))
	for _, s := range rp.Slots {
		if !s.IsEmpty() {
			ids = append(ids, s.EmployeeID())
		}
	}
	return ids
}

// slotOf returns the index of the employee's slot, or -1
func (rp *RequestPlan) slotOf(employeeID int64) int {
	for i, s := range rp.Slots {
		if !s.IsEmpty() && s.EmployeeID() == employeeID {
			return i
		}
	}
	return -1
}

// isFullyAssigned is true when every position is filled and the gender quotas are met
func (rp *RequestPlan) isFullyAssigned() bool {
	if rp.AssignedCount() != rp.Request.RequestedAmount {
		return false
	}
	male, female := rp.GenderCounts()
	return male >= rp.Request.MaleCount && female >= rp.Request.FemaleCount
}

// refreshState advances the state to match the slots. A state never moves back.
func (rp *RequestPlan) refreshState() {
	next := StateEmpty
	switch {
	case rp.isFullyAssigned():
		next = StateFullyAssigned
	case rp.AssignedCount() > 0:
		next = StatePartiallyAssigned
	}
	if next > rp.State {
		rp.State = next
	}
}

// Override is the audited escape hatch for submitting an incomplete plan
type Override struct {
	Operator string `validate:"required"`
	Reason   string `validate:"required,min=3"`
	At       time.Time
}

// RequestValidationError is a criterion failure on one request of a plan
type RequestValidationError struct {
	RequestID     string
	Position      int
	CriterionName string
	Description   string
}
