package allocator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/priority"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Allocator selects ranked candidates into request slots under the hard
// constraints (headcount, gender quotas, one slot per employee per plan) and the
// soft priority-position preference
type Allocator struct {
	criteria []Criterion
	policy   *priority.Policy
	logger   *zap.Logger
}

// New creates an Allocator with the criteria to apply during selection and validation
func New(criteria []Criterion, policy *priority.Policy, logger *zap.Logger) *Allocator {
	if policy == nil {
		policy = priority.DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{criteria: criteria, policy: policy, logger: logger}
}

// RequestInput is one request of an allocation pass with its ranked candidates
type RequestInput struct {
	Request *model.ManpowerRequest

	// Ranked candidates, as returned by the ranking engine
	Ranked []ranking.Result

	// Lines splits the request across production lines; 0 disables lines
	Lines int

	// LineCounts optionally fixes the size of each line. Must sum to the requested amount.
	LineCounts []int
}

// Allocate builds one plan covering every input. Inputs are processed in order:
// each request takes its best candidates from what earlier requests left, so the
// result is greedy rather than globally optimal.
//
// When the candidates cannot satisfy a request's quotas or headcount the plan is
// still returned, together with a ConstraintViolation error for each shortfall.
func (a *Allocator) Allocate(inputs []RequestInput, strategy Strategy) (*Plan, error) {
	if err := a.validateInputs(inputs, strategy); err != nil {
		return nil, err
	}

	first := inputs[0].Request
	plan := NewPlan(first.SubSection.ID, first.Date, strategy)

	var violations []error
	for _, in := range inputs {
		rp, err := a.allocateRequest(plan, in, strategy)
		if err != nil {
			violations = append(violations, err)
		}
		a.logger.Debug("Allocated request",
			zap.String("plan_id", plan.ID.String()),
			zap.String("request_id", rp.Request.ID),
			zap.Int("assigned", rp.AssignedCount()),
			zap.Int("requested", rp.Request.RequestedAmount),
			zap.Stringer("state", rp.State))
	}

	plan.ValidationErrors = ValidatePlan(plan, a.criteria)

	if len(violations) > 0 {
		a.logger.Warn("Allocation could not satisfy every request",
			zap.String("plan_id", plan.ID.String()),
			zap.Int("violations", len(violations)))
		return plan, errors.Join(violations...)
	}
	return plan, nil
}

func (a *Allocator) validateInputs(inputs []RequestInput, strategy Strategy) error {
	if len(inputs) == 0 {
		return errs.Validation("at least one request is required")
	}
	if _, ok := ParseStrategy(string(strategy)); !ok {
		return errs.Validation("unknown allocation strategy %q", strategy)
	}

	first := inputs[0].Request
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		if in.Request == nil {
			return errs.Validation("request %d is missing", i)
		}
		if err := in.Request.Validate(); err != nil {
			return err
		}
		if seen[in.Request.ID] {
			return errs.Validation("request %s appears more than once", in.Request.ID)
		}
		seen[in.Request.ID] = true

		if in.Request.SubSection.ID != first.SubSection.ID || !model.SameDay(in.Request.Date, first.Date) {
			return errs.Validation("request %s is not in sub-section %s on %s",
				in.Request.ID, first.SubSection.ID, first.Date.Format(time.DateOnly))
		}
		if in.Request.Status == model.RequestFulfilled {
			return errs.Validation("request %s is already fulfilled", in.Request.ID)
		}
		if _, err := lineCapacities(in.Request.RequestedAmount, in.Lines, in.LineCounts); err != nil {
			return err
		}
	}
	return nil
}

// allocateRequest fills one request from the candidates not yet in the plan
func (a *Allocator) allocateRequest(plan *Plan, in RequestInput, strategy Strategy) (*RequestPlan, error) {
	req := in.Request
	rp := &RequestPlan{
		Request: req,
		Slots:   make([]Slot, req.RequestedAmount),
		Ranking: in.Ranked,
	}
	for _, pos := range a.policy.PositionsFor(req.SubSection.ID, req.RequestedAmount) {
		rp.Slots[pos].PriorityPosition = true
	}
	for i := range rp.Slots {
		rp.Slots[i].Position = i
	}
	plan.Requests = append(plan.Requests, rp)

	pool := a.eligible(plan, rp, in.Ranked)
	OrderCandidates(pool, req, strategy)

	selected, err := selectForQuotas(pool, req)
	a.placeSelected(plan, rp, selected)

	capacities, _ := lineCapacities(req.RequestedAmount, in.Lines, in.LineCounts)
	if capacities != nil {
		rp.Lines = len(capacities)
		assignLines(rp.Slots, selectionOrder(rp, selected), capacities)
	}

	rp.refreshState()
	return rp, err
}

// eligible returns the candidates that are not in the plan and pass every criterion
func (a *Allocator) eligible(plan *Plan, rp *RequestPlan, ranked []ranking.Result) []*ranking.Result {
	pool := make([]*ranking.Result, 0, len(ranked))
	seen := make(map[int64]bool, len(ranked))
	for i := range ranked {
		c := &ranked[i]
		if c.Employee == nil || seen[c.Employee.ID] || plan.IsAssigned(c.Employee.ID) {
			continue
		}
		seen[c.Employee.ID] = true
		if !IsCandidateValid(plan, rp, c, a.criteria) {
			continue
		}
		pool = append(pool, c)
	}
	return pool
}

// OrderCandidates sorts the pool for a strategy. Ties fall back to ascending employee id.
func OrderCandidates(pool []*ranking.Result, req *model.ManpowerRequest, strategy Strategy) {
	byScore := func(i, j int) bool {
		if pool[i].FinalScore != pool[j].FinalScore {
			return pool[i].FinalScore > pool[j].FinalScore
		}
		return pool[i].Employee.ID < pool[j].Employee.ID
	}

	switch strategy {
	case StrategyOptimal:
		sort.SliceStable(pool, func(i, j int) bool {
			a, b := pool[i].Employee.InSubSection(req.SubSection.ID), pool[j].Employee.InSubSection(req.SubSection.ID)
			if a != b {
				return a
			}
			return byScore(i, j)
		})
	case StrategySameSection:
		sort.SliceStable(pool, func(i, j int) bool {
			a, b := pool[i].Employee.InSection(req.SubSection.Section.ID), pool[j].Employee.InSection(req.SubSection.Section.ID)
			if a != b {
				return a
			}
			return byScore(i, j)
		})
	case StrategyBalanced:
		sort.SliceStable(pool, func(i, j int) bool {
			if pool[i].WorkloadPoints != pool[j].WorkloadPoints {
				return pool[i].WorkloadPoints < pool[j].WorkloadPoints
			}
			return pool[i].Employee.ID < pool[j].Employee.ID
		})
	default:
		sort.SliceStable(pool, byScore)
	}
}

// selectForQuotas takes the first MaleCount men and FemaleCount women of the
// ordered pool, then fills the remaining positions with the best of the rest.
// The selection keeps pool order. Quota slots left unfilled are not given to
// the other gender.
func selectForQuotas(pool []*ranking.Result, req *model.ManpowerRequest) ([]*ranking.Result, error) {
	picked := make([]bool, len(pool))
	males, females := 0, 0

	for i, c := range pool {
		switch {
		case c.Employee.Gender == model.GenderMale && males < req.MaleCount:
			picked[i] = true
			males++
		case c.Employee.Gender == model.GenderFemale && females < req.FemaleCount:
			picked[i] = true
			females++
		}
	}

	open := req.UnconstrainedCount()
	for i := range pool {
		if open == 0 {
			break
		}
		if !picked[i] {
			picked[i] = true
			open--
		}
	}

	selected := make([]*ranking.Result, 0, req.RequestedAmount)
	for i, c := range pool {
		if picked[i] {
			selected = append(selected, c)
		}
	}

	var violations []error
	if males < req.MaleCount {
		violations = append(violations, errs.ConstraintViolation("gender_quota",
			"request %s needs %d male employees, only %d available", req.ID, req.MaleCount, males).
			WithField("request_id", req.ID))
	}
	if females < req.FemaleCount {
		violations = append(violations, errs.ConstraintViolation("gender_quota",
			"request %s needs %d female employees, only %d available", req.ID, req.FemaleCount, females).
			WithField("request_id", req.ID))
	}
	if open > 0 {
		violations = append(violations, errs.ConstraintViolation("headcount",
			"request %s is short of %d employees", req.ID, open).
			WithField("request_id", req.ID))
	}

	return selected, errors.Join(violations...)
}

// placeSelected puts the selection into slots in order, moving priority
// employees into the priority positions when there are any
func (a *Allocator) placeSelected(plan *Plan, rp *RequestPlan, selected []*ranking.Result) {
	var prio, rest []*ranking.Result
	for _, c := range selected {
		if priority.HasPriority(c.Employee.PriorityCategories) {
			prio = append(prio, c)
		} else {
			rest = append(rest, c)
		}
	}

	pop := func(q *[]*ranking.Result) *ranking.Result {
		c := (*q)[0]
		*q = (*q)[1:]
		return c
	}

	for i := range rp.Slots {
		var c *ranking.Result
		switch {
		case rp.Slots[i].PriorityPosition && len(prio) > 0:
			c = pop(&prio)
		case len(rest) > 0:
			c = pop(&rest)
		case len(prio) > 0:
			c = pop(&prio)
		}
		if c == nil {
			break
		}
		rp.Slots[i].Candidate = c
		plan.assigned[c.Employee.ID] = rp.Request.ID
	}
}

// AssignEmployee fills an empty position by hand. The candidate must not be in
// the plan already and must pass every criterion.
func (a *Allocator) AssignEmployee(plan *Plan, requestID string, position int, candidate *ranking.Result) error {
	rp := plan.Request(requestID)
	if rp == nil {
		return errs.Validation("request %s is not in plan %s", requestID, plan.ID)
	}
	if rp.State == StateSubmitted {
		return errs.Validation("request %s is already submitted", requestID)
	}
	if position < 0 || position >= len(rp.Slots) {
		return errs.Validation("position %d is out of range for request %s", position, requestID)
	}
	if !rp.Slots[position].IsEmpty() {
		return errs.Validation("position %d of request %s is already filled", position, requestID)
	}
	if candidate == nil || candidate.Employee == nil {
		return errs.Validation("candidate is required")
	}
	if other, ok := plan.AssignedTo(candidate.Employee.ID); ok {
		return errs.ConstraintViolation("exclusivity", "employee %d is already assigned to request %s",
			candidate.Employee.ID, other)
	}
	for _, c := range a.criteria {
		if !c.IsCandidateValid(plan, rp, candidate) {
			return errs.ConstraintViolation(c.Name(), "employee %d cannot take a slot of request %s",
				candidate.Employee.ID, requestID)
		}
	}

	rp.Slots[position].Candidate = candidate
	plan.assigned[candidate.Employee.ID] = requestID
	rp.refreshState()
	plan.ValidationErrors = ValidatePlan(plan, a.criteria)
	return nil
}

// CheckSubmit reports whether the plan may be submitted with the override,
// without changing it. Requests that are not fully assigned need an override
// naming the operator and the reason.
func (a *Allocator) CheckSubmit(plan *Plan, override *Override) error {
	var incomplete []string
	for _, rp := range plan.Requests {
		if rp.State == StateSubmitted {
			return errs.Validation("request %s is already submitted", rp.Request.ID)
		}
		if rp.State != StateFullyAssigned {
			incomplete = append(incomplete, rp.Request.ID)
		}
	}

	if len(incomplete) > 0 {
		if override == nil {
			return errs.ConstraintViolation("incomplete_submission",
				"requests %v are not fully assigned", incomplete).
				WithField("requests", incomplete)
		}
		if err := validate.Struct(override); err != nil {
			return errs.Wrap(errs.KindValidation, err, "invalid override")
		}
	}
	return nil
}

// Submit moves every request of the plan to Submitted once CheckSubmit
// passes. Overridden submissions are logged for audit.
func (a *Allocator) Submit(plan *Plan, override *Override) error {
	if err := a.CheckSubmit(plan, override); err != nil {
		return err
	}

	for _, rp := range plan.Requests {
		if rp.State != StateFullyAssigned {
			if override.At.IsZero() {
				override.At = time.Now().UTC()
			}
			rp.Override = override
			a.logger.Warn("Submitting incomplete request under override",
				zap.String("plan_id", plan.ID.String()),
				zap.String("request_id", rp.Request.ID),
				zap.Int("assigned", rp.AssignedCount()),
				zap.Int("requested", rp.Request.RequestedAmount),
				zap.String("operator", override.Operator),
				zap.String("reason", override.Reason))
		}
		rp.State = StateSubmitted
	}
	return nil
}

// String summarises a request plan for logs and the CLI
func (rp *RequestPlan) String() string {
	male, female := rp.GenderCounts()
	return fmt.Sprintf("%s: %d/%d assigned (male %d/%d, female %d/%d) [%s]",
		rp.Request.ID, rp.AssignedCount(), rp.Request.RequestedAmount,
		male, rp.Request.MaleCount, female, rp.Request.FemaleCount, rp.State)
}
