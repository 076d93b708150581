package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jakechorley/manpower/internal/config"
	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/features"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/scoring"
	"github.com/jakechorley/manpower/pkg/db"
)

var (
	requestDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	packing     = model.SubSection{ID: "ss-packing", Name: "Packing", Section: model.Section{ID: "sec-production"}}
)

type mockStore struct {
	requests  map[string]*model.ManpowerRequest
	employees []model.Employee
	records   []model.ScheduleRecord

	getRequestErr error
	availableErr  error
	submitErr     error

	submitted []model.ScheduleRecord
	fulfilled []string
	submits   int
}

func (m *mockStore) GetRequest(ctx context.Context, id string) (*model.ManpowerRequest, error) {
	if m.getRequestErr != nil {
		return nil, m.getRequestErr
	}
	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, db.ErrNotFound)
	}
	return req, nil
}

func (m *mockStore) GetRequests(ctx context.Context, ids []string) ([]*model.ManpowerRequest, error) {
	var out []*model.ManpowerRequest
	for _, id := range ids {
		req, err := m.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (m *mockStore) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	for i := range m.employees {
		if m.employees[i].ID == id {
			return &m.employees[i], nil
		}
	}
	return nil, fmt.Errorf("employee %d: %w", id, db.ErrNotFound)
}

func (m *mockStore) AvailableEmployees(ctx context.Context, date time.Time) ([]model.Employee, error) {
	if m.availableErr != nil {
		return nil, m.availableErr
	}
	out := make([]model.Employee, len(m.employees))
	copy(out, m.employees)
	return out, nil
}

func (m *mockStore) ScheduleRecordsSince(ctx context.Context, since time.Time) ([]model.ScheduleRecord, error) {
	var out []model.ScheduleRecord
	for _, r := range m.records {
		if !r.Date.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) SubmitSchedules(ctx context.Context, records []model.ScheduleRecord, fulfilled []string) error {
	m.submits++
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, records...)
	m.fulfilled = append(m.fulfilled, fulfilled...)
	return nil
}

func newRequest(id string, amount, male, female int) *model.ManpowerRequest {
	return &model.ManpowerRequest{
		ID:              id,
		SubSection:      packing,
		Date:            requestDate,
		Shift:           model.ShiftMorning,
		RequestedAmount: amount,
		MaleCount:       male,
		FemaleCount:     female,
		Status:          model.RequestOpen,
	}
}

// employees returns n employees with alternating genders, odd ids male
func employees(n int) []model.Employee {
	out := make([]model.Employee, n)
	for i := range out {
		id := int64(i + 1)
		gender := model.GenderMale
		if id%2 == 0 {
			gender = model.GenderFemale
		}
		out[i] = model.Employee{
			ID:          id,
			Name:        fmt.Sprintf("Employee %d", id),
			Gender:      gender,
			Type:        model.EmploymentDaily,
			SubSections: []model.SubSection{packing},
		}
	}
	return out
}

func newTestConfig() *config.Config {
	return &config.Config{DatabaseURL: "postgres://localhost/test"}
}

func newTestEngine(t *testing.T, cfg *config.Config) (*Engine, string) {
	dir := t.TempDir()
	engine, err := NewEngine(context.Background(), cfg, scoring.NewFileStore(dir), zap.NewNop())
	require.NoError(t, err)
	return engine, dir
}

func TestNewEngine_StartsWithConfiguredBackend(t *testing.T) {
	cfg := newTestConfig()
	cfg.ActiveBackend = scoring.BackendEnsemble

	engine, _ := newTestEngine(t, cfg)

	info := GetModelInfo(engine)
	assert.Equal(t, scoring.BackendEnsemble, info.Backend)
	assert.False(t, info.Metadata.Trained)
	assert.True(t, info.ScoresWithHeuristic, "an untrained ensemble defers to the heuristic")
}

func TestNewEngine_HeuristicUsesConfiguredWorkDaysWindow(t *testing.T) {
	wide := newTestConfig()
	wide.Features.WorkDaysWindow = 60

	defaultEngine, _ := newTestEngine(t, newTestConfig())
	wideEngine, _ := newTestEngine(t, wide)
	assert.Equal(t, 60, wideEngine.Extractor.Config().WorkDaysWindow)

	// a full default window of work days scores nothing on that term
	v := []features.FeatureVector{{WorkDaysCount: 30, PriorityFlags: map[string]float64{}}}
	narrow := defaultEngine.Registry.Score(v).Scores[0]
	widened := wideEngine.Registry.Score(v).Scores[0]

	w := scoring.DefaultHeuristicWeights()
	assert.InDelta(t, scoring.HeuristicBaseShare*w.WorkDays*0.5, widened-narrow, 1e-9)
}

func TestRankCandidates_OrdersByFinalScore(t *testing.T) {
	emps := employees(3)
	emps[0].WorkloadPoints = 0
	emps[1].WorkloadPoints = 50
	emps[2].WorkloadPoints = 20

	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 2, 0, 0)},
		employees: emps,
	}
	engine, _ := newTestEngine(t, newTestConfig())

	result, err := RankCandidates(context.Background(), store, engine, zap.NewNop(), "r1", time.Time{})
	require.NoError(t, err)

	require.Len(t, result.Results, 3)
	assert.Equal(t, int64(2), result.Results[0].EmployeeID())
	assert.Equal(t, int64(3), result.Results[1].EmployeeID())
	assert.Equal(t, int64(1), result.Results[2].EmployeeID())
	assert.Equal(t, 1, result.Results[0].Position)
	assert.Equal(t, scoring.BackendHeuristic, result.Backend)
	assert.False(t, result.Fallback)
}

func TestRankCandidates_RequestNotFound(t *testing.T) {
	store := &mockStore{requests: map[string]*model.ManpowerRequest{}}
	engine, _ := newTestEngine(t, newTestConfig())

	_, err := RankCandidates(context.Background(), store, engine, zap.NewNop(), "missing", time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	assert.Contains(t, err.Error(), "failed to fetch request")
}

func TestRankCandidates_AvailabilityError(t *testing.T) {
	store := &mockStore{
		requests:     map[string]*model.ManpowerRequest{"r1": newRequest("r1", 1, 0, 0)},
		availableErr: errors.New("connection reset"),
	}
	engine, _ := newTestEngine(t, newTestConfig())

	_, err := RankCandidates(context.Background(), store, engine, zap.NewNop(), "r1", time.Time{})
	assert.ErrorContains(t, err, "failed to fetch available employees")
}

func TestAllocateRequests_SingleRequest(t *testing.T) {
	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 3, 1, 1)},
		employees: employees(6),
	}
	engine, _ := newTestEngine(t, newTestConfig())

	plan, err := AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}})
	require.NoError(t, err)

	assert.Equal(t, allocator.StrategyRanked, plan.Strategy)
	rp := plan.Request("r1")
	require.NotNil(t, rp)
	assert.Equal(t, allocator.StateFullyAssigned, rp.State)
	male, female := rp.GenderCounts()
	assert.GreaterOrEqual(t, male, 1)
	assert.GreaterOrEqual(t, female, 1)
	assert.Len(t, rp.EmployeeIDs(), 3)
}

func TestAllocateRequests_BulkIsExclusive(t *testing.T) {
	store := &mockStore{
		requests: map[string]*model.ManpowerRequest{
			"r1": newRequest("r1", 2, 1, 1),
			"r2": newRequest("r2", 3, 0, 0),
		},
		employees: employees(5),
	}
	engine, _ := newTestEngine(t, newTestConfig())

	plan, err := AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1", "r2"}})
	require.NoError(t, err)

	assert.Equal(t, allocator.StrategyOptimal, plan.Strategy)
	ids := append(plan.Request("r1").EmployeeIDs(), plan.Request("r2").EmployeeIDs()...)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, ids)
	assert.True(t, plan.IsComplete())
}

func TestAllocateRequests_ShortfallReturnsPlan(t *testing.T) {
	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 3, 0, 0)},
		employees: employees(1),
	}
	engine, _ := newTestEngine(t, newTestConfig())

	plan, err := AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConstraintViolation))
	require.NotNil(t, plan)
	assert.Equal(t, allocator.StatePartiallyAssigned, plan.Request("r1").State)
}

func TestAllocateRequests_ConfiguredLineOverride(t *testing.T) {
	two := 2
	cfg := newTestConfig()
	cfg.LineOverrides = []config.LineOverride{{RRule: "FREQ=WEEKLY;BYDAY=MO", SubSectionID: "ss-packing", Lines: &two}}
	require.NoError(t, config.Validate(cfg))

	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 5, 0, 0)},
		employees: employees(5),
	}
	engine, _ := newTestEngine(t, cfg)

	plan, err := AllocateRequests(context.Background(), store, engine, cfg, zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, plan.Request("r1").LineCounts())
}

func TestAllocateRequests_ConfiguredLineCountsMismatch(t *testing.T) {
	cfg := newTestConfig()
	cfg.LineOverrides = []config.LineOverride{{RRule: "FREQ=WEEKLY;BYDAY=MO", SubSectionID: "ss-packing", LineCounts: []int{2, 2}}}
	require.NoError(t, config.Validate(cfg))

	store := &mockStore{
		requests: map[string]*model.ManpowerRequest{
			"r1": newRequest("r1", 3, 0, 0),
			"r2": newRequest("r2", 4, 0, 0),
		},
		employees: employees(7),
	}
	engine, _ := newTestEngine(t, cfg)
	core, logs := observer.New(zapcore.WarnLevel)

	plan, err := AllocateRequests(context.Background(), store, engine, cfg, zap.New(core),
		AllocateOptions{RequestIDs: []string{"r1", "r2"}})
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, []int{2, 1}, plan.Request("r1").LineCounts(), "spread evenly over the configured lines")
	assert.Equal(t, []int{2, 2}, plan.Request("r2").LineCounts(), "matching counts are kept")
	assert.Equal(t, 1, logs.FilterMessage("Configured line counts do not match requested amount, distributing evenly").Len())
}

func TestAllocateRequests_ExplicitLinesAndMoves(t *testing.T) {
	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 4, 0, 0)},
		employees: employees(4),
	}
	engine, _ := newTestEngine(t, newTestConfig())

	plan, err := AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{
			RequestIDs: []string{"r1"},
			LineCounts: []int{3, 1},
			Moves:      []LineMove{{RequestID: "r1", EmployeeID: 1, Line: 2}},
		})
	require.NoError(t, err)

	rp := plan.Request("r1")
	assert.Contains(t, rp.LineMembers(2), int64(1))
	counts := rp.LineCounts()
	assert.Equal(t, 4, counts[0]+counts[1])

	_, err = AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{
			RequestIDs: []string{"r1"},
			Lines:      2,
			Moves:      []LineMove{{RequestID: "r1", EmployeeID: 99, Line: 2}},
		})
	assert.ErrorContains(t, err, "failed to move employee 99")
}

func TestAllocateRequests_InvalidInput(t *testing.T) {
	store := &mockStore{requests: map[string]*model.ManpowerRequest{"r1": newRequest("r1", 1, 0, 0)}}
	engine, _ := newTestEngine(t, newTestConfig())

	_, err := AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(), AllocateOptions{})
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, err = AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}, Strategy: "fastest"})
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, err = AllocateRequests(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1", "missing"}})
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

type noRowsStore struct {
	*mockStore
}

func (noRowsStore) GetRequests(ctx context.Context, ids []string) ([]*model.ManpowerRequest, error) {
	return nil, nil
}

func TestAllocateRequests_NoRequestsReturned(t *testing.T) {
	engine, _ := newTestEngine(t, newTestConfig())

	plan, err := AllocateRequests(context.Background(), noRowsStore{&mockStore{}}, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}})
	assert.Nil(t, plan)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestResolveStrategy(t *testing.T) {
	cfg := newTestConfig()

	s, err := resolveStrategy("", cfg, 1)
	require.NoError(t, err)
	assert.Equal(t, allocator.StrategyRanked, s)

	s, err = resolveStrategy("", cfg, 3)
	require.NoError(t, err)
	assert.Equal(t, allocator.StrategyOptimal, s)

	s, err = resolveStrategy("balanced", cfg, 3)
	require.NoError(t, err)
	assert.Equal(t, allocator.StrategyBalanced, s)

	cfg.DefaultStrategy = "same_section"
	s, err = resolveStrategy("", cfg, 1)
	require.NoError(t, err)
	assert.Equal(t, allocator.StrategySameSection, s)
}

func TestSubmitPlan_WritesSchedules(t *testing.T) {
	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 3, 0, 0)},
		employees: employees(3),
	}
	engine, _ := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	plan, err := AllocateRequests(ctx, store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}, Lines: 2})
	require.NoError(t, err)

	records, err := SubmitPlan(ctx, store, engine, zap.NewNop(), plan, nil)
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, records, store.submitted)
	assert.Equal(t, []string{"r1"}, store.fulfilled)
	assert.Equal(t, allocator.StateSubmitted, plan.Request("r1").State)

	ids := map[string]bool{}
	for _, r := range records {
		assert.Equal(t, "r1", r.RequestID)
		assert.Equal(t, "ss-packing", r.SubSectionID)
		assert.Equal(t, requestDate, r.Date)
		assert.Equal(t, model.ShiftMorning, r.Shift)
		assert.Equal(t, DefaultShiftHours, r.Hours)
		assert.Contains(t, []int{1, 2}, r.Line)
		ids[r.ID] = true
	}
	assert.Len(t, ids, 3, "record ids are unique")
}

func TestSubmitPlan_IncompleteNeedsOverride(t *testing.T) {
	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 2, 0, 0)},
		employees: employees(1),
	}
	engine, _ := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	plan, err := AllocateRequests(ctx, store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}})
	require.Error(t, err)

	_, err = SubmitPlan(ctx, store, engine, zap.NewNop(), plan, nil)
	assert.True(t, errors.Is(err, errs.ErrConstraintViolation))
	assert.Equal(t, 0, store.submits)

	records, err := SubmitPlan(ctx, store, engine, zap.NewNop(), plan,
		&allocator.Override{Operator: "supervisor", Reason: "only one packer on site"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, []string{"r1"}, store.fulfilled)
}

func TestSubmitPlan_StoreError(t *testing.T) {
	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 1, 0, 0)},
		employees: employees(1),
		submitErr: errors.New("deadlock detected"),
	}
	engine, _ := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	plan, err := AllocateRequests(ctx, store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}})
	require.NoError(t, err)

	_, err = SubmitPlan(ctx, store, engine, zap.NewNop(), plan, nil)
	assert.ErrorContains(t, err, "failed to save schedules")
	assert.Equal(t, allocator.StateFullyAssigned, plan.Request("r1").State, "failed write leaves the plan unsubmitted")

	store.submitErr = nil
	records, err := SubmitPlan(ctx, store, engine, zap.NewNop(), plan, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, store.submits)
	assert.Equal(t, []string{"r1"}, store.fulfilled)
	assert.Equal(t, allocator.StateSubmitted, plan.Request("r1").State)
}

func TestSubmitPlan_OverrideFailedWriteRetries(t *testing.T) {
	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 2, 0, 0)},
		employees: employees(1),
		submitErr: errors.New("connection reset"),
	}
	engine, _ := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	plan, err := AllocateRequests(ctx, store, engine, newTestConfig(), zap.NewNop(),
		AllocateOptions{RequestIDs: []string{"r1"}})
	require.Error(t, err)

	override := &allocator.Override{Operator: "supervisor", Reason: "only one packer on site"}
	_, err = SubmitPlan(ctx, store, engine, zap.NewNop(), plan, override)
	require.Error(t, err)
	assert.Nil(t, plan.Request("r1").Override)
	assert.Equal(t, allocator.StatePartiallyAssigned, plan.Request("r1").State)

	store.submitErr = nil
	_, err = SubmitPlan(ctx, store, engine, zap.NewNop(), plan, override)
	require.NoError(t, err)
	assert.Same(t, override, plan.Request("r1").Override)
}

func TestTrainModel_InsufficientDataKeepsActiveModel(t *testing.T) {
	store := &mockStore{}
	engine, _ := newTestEngine(t, newTestConfig())

	report, err := TrainModel(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		scoring.BackendLinear, requestDate)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInsufficientData))
	require.NotNil(t, report)
	assert.False(t, report.Result.Success)
	assert.Equal(t, scoring.BackendHeuristic, GetModelInfo(engine).Backend)
}

func TestTrainModel_TrainsPersistsAndActivates(t *testing.T) {
	emps := employees(27)
	var records []model.ScheduleRecord
	for i := 0; i < 12; i++ {
		emps[i].WorkloadPoints = 10
		records = append(records, model.ScheduleRecord{
			ID:           fmt.Sprintf("s%02d", i),
			EmployeeID:   emps[i].ID,
			RequestID:    "r1",
			SubSectionID: packing.ID,
			Date:         requestDate,
			Shift:        model.ShiftMorning,
			Hours:        8,
		})
	}

	store := &mockStore{
		requests:  map[string]*model.ManpowerRequest{"r1": newRequest("r1", 12, 0, 0)},
		employees: emps,
		records:   records,
	}
	engine, dir := newTestEngine(t, newTestConfig())

	report, err := TrainModel(context.Background(), store, engine, newTestConfig(), zap.NewNop(),
		scoring.BackendLinear, requestDate.AddDate(0, 0, 5))
	require.NoError(t, err)

	assert.Equal(t, 12, report.Stats.Positives)
	assert.Equal(t, 15, report.Stats.Negatives)
	assert.True(t, report.Result.Success)

	info := GetModelInfo(engine)
	assert.Equal(t, scoring.BackendLinear, info.Backend)
	assert.True(t, info.Metadata.Trained)
	assert.NotEmpty(t, info.Metadata.Version)
	assert.False(t, info.ScoresWithHeuristic)

	_, err = os.Stat(filepath.Join(dir, scoring.BackendLinear+".json"))
	assert.NoError(t, err, "trained model is persisted")
}

func rawExamples(positives, negatives int) []scoring.RawExample {
	toAny := func(v features.FeatureVector) map[string]any {
		out := make(map[string]any)
		for k, val := range v.Map() {
			out[k] = val
		}
		return out
	}
	var raw []scoring.RawExample
	for i := 0; i < positives; i++ {
		v := features.FeatureVector{Rating: 0.9, TestScore: 1, SameSubSection: 1, SameSection: 1, ShiftPriority: 0.7}
		raw = append(raw, scoring.RawExample{Features: toAny(v), Label: 1.0, Source: fmt.Sprintf("pos-%d", i)})
	}
	for i := 0; i < negatives; i++ {
		v := features.FeatureVector{Rating: 0.2, CurrentWorkload: 0.9, ShiftPriority: 0.7}
		raw = append(raw, scoring.RawExample{Features: toAny(v), Label: 0.0, Source: fmt.Sprintf("neg-%d", i)})
	}
	return raw
}

func TestTrainFromExamples_TrainsAndActivates(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	engine, dir := newTestEngine(t, newTestConfig())

	raw := rawExamples(10, 10)
	raw = append(raw,
		scoring.RawExample{Features: map[string]any{features.NameRating: 0.5}, Label: 1.0, Source: "partial"},
		scoring.RawExample{Features: raw[0].Features, Label: 2.0, Source: "bad-label"},
	)

	report, err := TrainFromExamples(context.Background(), engine, newTestConfig(), zap.New(core),
		scoring.BackendLinear, raw)
	require.NoError(t, err)

	assert.Equal(t, 22, report.Stats.Records)
	assert.Equal(t, 10, report.Stats.Positives)
	assert.Equal(t, 10, report.Stats.Negatives)
	assert.Equal(t, 2, report.Stats.Skipped)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, 20, report.Result.SampleCount)

	assert.Equal(t, scoring.BackendLinear, GetModelInfo(engine).Backend)
	_, err = os.Stat(filepath.Join(dir, scoring.BackendLinear+".json"))
	assert.NoError(t, err)
}

func TestTrainFromExamples_TooFewKeepsActiveModel(t *testing.T) {
	engine, _ := newTestEngine(t, newTestConfig())

	report, err := TrainFromExamples(context.Background(), engine, newTestConfig(), zap.NewNop(),
		scoring.BackendEnsemble, rawExamples(3, 3))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInsufficientData))
	assert.Equal(t, 6, report.Stats.Records)
	assert.Equal(t, scoring.BackendHeuristic, GetModelInfo(engine).Backend)
}
