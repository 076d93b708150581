package criteria

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

var date = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func request(id string, amount, male, female int) *model.ManpowerRequest {
	return &model.ManpowerRequest{
		ID:              id,
		SubSection:      model.SubSection{ID: "ss-1", Section: model.Section{ID: "sec-1"}},
		Date:            date,
		Shift:           model.ShiftMorning,
		RequestedAmount: amount,
		MaleCount:       male,
		FemaleCount:     female,
	}
}

func candidate(id int64, gender model.Gender, score float64) ranking.Result {
	return ranking.Result{
		Employee:   &model.Employee{ID: id, Gender: gender, Type: model.EmploymentDaily},
		FinalScore: score,
	}
}

func allocate(t *testing.T, req *model.ManpowerRequest, ranked []ranking.Result) (*allocator.Plan, error) {
	t.Helper()
	a := allocator.New(Default(), nil, zap.NewNop())
	plan, err := a.Allocate([]allocator.RequestInput{{Request: req, Ranked: ranked}}, allocator.StrategyRanked)
	require.NotNil(t, plan)
	return plan, err
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Headcount", NewHeadcountCriterion().Name())
	assert.Equal(t, "GenderQuota", NewGenderQuotaCriterion().Name())
	assert.Equal(t, "Exclusivity", NewExclusivityCriterion().Name())
	assert.Len(t, Default(), 3)
}

func TestHeadcount_FullRequestRejectsCandidates(t *testing.T) {
	plan, err := allocate(t, request("r1", 1, 0, 0), []ranking.Result{candidate(1, model.GenderMale, 5)})
	require.NoError(t, err)

	extra := candidate(2, model.GenderMale, 4)
	assert.False(t, NewHeadcountCriterion().IsCandidateValid(plan, plan.Requests[0], &extra))
	assert.Empty(t, NewHeadcountCriterion().ValidateRequestPlan(plan, plan.Requests[0]))
}

func TestHeadcount_ReportsUnderfill(t *testing.T) {
	plan, err := allocate(t, request("r1", 3, 0, 0), []ranking.Result{candidate(1, model.GenderMale, 5)})
	require.Error(t, err)

	errors := NewHeadcountCriterion().ValidateRequestPlan(plan, plan.Requests[0])
	require.Len(t, errors, 1)
	assert.Equal(t, "r1", errors[0].RequestID)
	assert.Contains(t, errors[0].Description, "has 1 employees but requested amount is 3")
}

func TestGenderQuota_ReservesPositions(t *testing.T) {
	plan, _ := allocate(t, request("r1", 2, 0, 2), nil)
	rp := plan.Requests[0]
	c := NewGenderQuotaCriterion()

	male := candidate(1, model.GenderMale, 5)
	female := candidate(2, model.GenderFemale, 5)
	assert.False(t, c.IsCandidateValid(plan, rp, &male), "both positions are owed to women")
	assert.True(t, c.IsCandidateValid(plan, rp, &female))

	plan, _ = allocate(t, request("r2", 3, 1, 1), nil)
	assert.True(t, c.IsCandidateValid(plan, plan.Requests[0], &male))
	assert.True(t, c.IsCandidateValid(plan, plan.Requests[0], &female))
}

func TestGenderQuota_ReportsShortfall(t *testing.T) {
	plan, err := allocate(t, request("r1", 3, 2, 1), []ranking.Result{
		candidate(1, model.GenderMale, 5),
		candidate(2, model.GenderMale, 4),
	})
	require.Error(t, err)

	errors := NewGenderQuotaCriterion().ValidateRequestPlan(plan, plan.Requests[0])
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Description, "0 female employees but needs 1")
}

func TestExclusivity_RejectsAssignedEmployee(t *testing.T) {
	first := candidate(1, model.GenderMale, 5)
	plan, err := allocate(t, request("r1", 1, 0, 0), []ranking.Result{first})
	require.NoError(t, err)

	c := NewExclusivityCriterion()
	again := candidate(1, model.GenderMale, 5)
	other := candidate(2, model.GenderMale, 5)
	assert.False(t, c.IsCandidateValid(plan, plan.Requests[0], &again))
	assert.True(t, c.IsCandidateValid(plan, plan.Requests[0], &other))
	assert.Empty(t, c.ValidateRequestPlan(plan, plan.Requests[0]))
}
