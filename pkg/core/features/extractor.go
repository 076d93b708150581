package features

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/priority"
)

// Default policy for missing or unusable inputs. Absence of history never blocks scoring.
const (
	DefaultRating          = 3.0
	DefaultTestScore       = 0.0
	DefaultWorkload        = 0.0
	DefaultShiftPriority   = 1.0 // no prior shift: nothing to penalize
	NeutralShiftPriority   = 0.5 // unknown shift on either side
	DefaultWorkDaysWindow  = 30
	DefaultWorkloadWindow  = 14
	DefaultWorkloadCap     = 80.0
	ratingMin, ratingMax   = 1.0, 5.0
	defaultRatingForScale  = (DefaultRating - ratingMin) / (ratingMax - ratingMin)
)

// Config controls the rolling windows used by the extractor
type Config struct {
	// WorkDaysWindow is the number of days counted for work_days_count
	WorkDaysWindow int
	// WorkloadWindow is the number of days of hours summed for current_workload
	WorkloadWindow int
	// WorkloadCapHours normalizes workload hours into [0,1]
	WorkloadCapHours float64
}

// DefaultConfig returns 30-day work days, 14-day workload and an 80 hour cap
func DefaultConfig() Config {
	return Config{
		WorkDaysWindow:   DefaultWorkDaysWindow,
		WorkloadWindow:   DefaultWorkloadWindow,
		WorkloadCapHours: DefaultWorkloadCap,
	}
}

// Extractor builds feature vectors from employee snapshots
type Extractor struct {
	cfg    Config
	policy *priority.Policy
	logger *zap.Logger
}

// NewExtractor creates an Extractor. Zero config fields fall back to defaults.
func NewExtractor(cfg Config, policy *priority.Policy, logger *zap.Logger) *Extractor {
	def := DefaultConfig()
	if cfg.WorkDaysWindow <= 0 {
		cfg.WorkDaysWindow = def.WorkDaysWindow
	}
	if cfg.WorkloadWindow <= 0 {
		cfg.WorkloadWindow = def.WorkloadWindow
	}
	if cfg.WorkloadCapHours <= 0 {
		cfg.WorkloadCapHours = def.WorkloadCapHours
	}
	if policy == nil {
		policy = priority.DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, policy: policy, logger: logger}
}

// Config returns the extractor's windows after defaults are applied
func (x *Extractor) Config() Config {
	return x.cfg
}

// Extract returns the feature vector for an employee considered for a request on
// the reference date. It never fails: unusable inputs are replaced by their
// defaults and logged as warnings.
func (x *Extractor) Extract(emp *model.Employee, req *model.ManpowerRequest, ref time.Time) FeatureVector {
	if emp == nil {
		x.logger.Warn("No employee snapshot, using default features")
		return x.defaults()
	}

	log := x.logger.With(zap.Int64("employee_id", emp.ID))

	v := FeatureVector{
		WorkDaysCount:   float64(len(emp.SchedulesInWindow(ref, x.cfg.WorkDaysWindow))),
		Rating:          x.rating(emp, log),
		TestScore:       testScore(emp),
		Gender:          x.gender(emp, log),
		EmployeeType:    x.employeeType(emp, log),
		CurrentWorkload: x.workload(emp, ref, log),
		ShiftPriority:   DefaultShiftPriority,
	}

	if req == nil {
		log.Warn("No request for feature extraction, affinity features defaulted")
	} else {
		v.SameSubSection = boolFeature(emp.InSubSection(req.SubSection.ID))
		v.SameSection = boolFeature(emp.InSection(req.SubSection.Section.ID))
		v.ShiftPriority = x.shiftPriority(emp, req, ref, log)
	}

	categories := priority.Normalize(emp.PriorityCategories)
	v.HasPriority = boolFeature(priority.HasPriority(categories))
	v.PriorityBoost = x.policy.Boost(categories)
	v.PriorityCount = float64(len(categories))
	v.PriorityFlags = make(map[string]float64, len(x.policy.Categories()))
	for _, cat := range x.policy.Categories() {
		v.PriorityFlags[cat] = 0
	}
	for _, cat := range categories {
		if _, known := v.PriorityFlags[cat]; known {
			v.PriorityFlags[cat] = 1
		}
	}

	return v
}

// ExtractAll extracts one vector per employee, in input order
func (x *Extractor) ExtractAll(emps []model.Employee, req *model.ManpowerRequest, ref time.Time) []FeatureVector {
	out := make([]FeatureVector, len(emps))
	for i := range emps {
		out[i] = x.Extract(&emps[i], req, ref)
	}
	return out
}

func (x *Extractor) defaults() FeatureVector {
	v := FeatureVector{
		Rating:          defaultRatingForScale,
		TestScore:       DefaultTestScore,
		CurrentWorkload: DefaultWorkload,
		ShiftPriority:   DefaultShiftPriority,
		PriorityFlags:   make(map[string]float64),
	}
	for _, cat := range x.policy.Categories() {
		v.PriorityFlags[cat] = 0
	}
	return v
}

func (x *Extractor) rating(emp *model.Employee, log *zap.Logger) float64 {
	if emp.AverageRating == nil {
		return defaultRatingForScale
	}
	r := *emp.AverageRating
	if math.IsNaN(r) || math.IsInf(r, 0) {
		log.Warn("Average rating is not a number, using default", zap.Float64("default", DefaultRating))
		return defaultRatingForScale
	}
	if r < ratingMin || r > ratingMax {
		log.Warn("Average rating out of range, clamping", zap.Float64("rating", r))
		r = clamp(r, ratingMin, ratingMax)
	}
	return (r - ratingMin) / (ratingMax - ratingMin)
}

func testScore(emp *model.Employee) float64 {
	if emp.BlindTestPassed == nil {
		return DefaultTestScore
	}
	return boolFeature(*emp.BlindTestPassed)
}

func (x *Extractor) gender(emp *model.Employee, log *zap.Logger) float64 {
	switch emp.Gender {
	case model.GenderMale:
		return 1
	case model.GenderFemale:
		return 0
	}
	log.Warn("Unknown gender, encoding as 0", zap.String("gender", string(emp.Gender)))
	return 0
}

func (x *Extractor) employeeType(emp *model.Employee, log *zap.Logger) float64 {
	switch emp.Type {
	case model.EmploymentMonthly:
		return 1
	case model.EmploymentDaily:
		return 0
	}
	log.Warn("Unknown employment type, encoding as daily", zap.String("type", string(emp.Type)))
	return 0
}

// workload sums hours worked in the window before ref and normalizes by the cap
func (x *Extractor) workload(emp *model.Employee, ref time.Time, log *zap.Logger) float64 {
	hours := 0.0
	for _, s := range emp.SchedulesInWindow(ref, x.cfg.WorkloadWindow) {
		if math.IsNaN(s.Hours) || math.IsInf(s.Hours, 0) || s.Hours < 0 {
			log.Warn("Ignoring schedule with invalid hours",
				zap.String("schedule_id", s.ID),
				zap.Float64("hours", s.Hours))
			continue
		}
		hours += s.Hours
	}
	return clamp(hours/x.cfg.WorkloadCapHours, 0, 1)
}

func (x *Extractor) shiftPriority(emp *model.Employee, req *model.ManpowerRequest, ref time.Time, log *zap.Logger) float64 {
	recent := emp.RecentShifts(ref, 1)
	if len(recent) == 0 {
		return DefaultShiftPriority
	}
	p := ShiftPriority(req.Shift, recent[0].Shift)
	if p == NeutralShiftPriority {
		if _, ok := model.ShiftOrder(req.Shift); !ok {
			log.Warn("Unknown request shift, shift priority neutral", zap.String("shift", req.Shift))
		}
	}
	return p
}

// ShiftPriority scores rotation fairness from the last shift worked to the requested one.
//
//	Δ = order(current) - order(last)
//	Δ=0 → 0.3, Δ=1 → 0.7, Δ=2 → 1.0, Δ=-1 → 0.4, otherwise 0.5
//
// An empty last shift means no history (1.0); an unknown shift on either side is neutral (0.5).
func ShiftPriority(current, last string) float64 {
	if last == "" {
		return DefaultShiftPriority
	}
	cur, ok := model.ShiftOrder(current)
	if !ok {
		return NeutralShiftPriority
	}
	prev, ok := model.ShiftOrder(last)
	if !ok {
		return NeutralShiftPriority
	}

	switch cur - prev {
	case 0:
		return 0.3
	case 1:
		return 0.7
	case 2:
		return 1.0
	case -1:
		return 0.4
	default:
		return 0.5
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
