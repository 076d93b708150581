// Package ranking orders candidate employees for a request by a composite score:
//
//	base  = workload points + blind-test points + average rating
//	ml    = backend probability × MLScale
//	final = base + ml + priority boost × PriorityWeight
//
// Ties on the final score are broken by ascending employee id, so the same
// inputs always produce the same order.
package ranking

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/features"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/scoring"
)

const (
	DefaultMLScale        = 10.0
	DefaultPriorityWeight = 1.0
)

// ScoreSource scores feature vectors, falling back internally when needed
type ScoreSource interface {
	Score(vs []features.FeatureVector) scoring.Prediction
}

// Config weights the score components
type Config struct {
	MLScale        float64
	PriorityWeight float64
}

func DefaultConfig() Config {
	return Config{MLScale: DefaultMLScale, PriorityWeight: DefaultPriorityWeight}
}

// Result is one ranked candidate with its score breakdown
type Result struct {
	Employee *model.Employee
	Features features.FeatureVector

	WorkloadPoints  float64
	BlindTestPoints float64
	Rating          float64
	BaseScore       float64

	MLProbability float64
	MLScore       float64
	PriorityBoost float64
	FinalScore    float64

	// Backend is the scorer that produced MLProbability
	Backend  string
	Fallback bool

	// Position is the 1-based rank
	Position int
}

func (r Result) EmployeeID() int64 {
	return r.Employee.ID
}

// Ranker ranks candidates with an extractor and a score source
type Ranker struct {
	extractor *features.Extractor
	scores    ScoreSource
	cfg       Config
	logger    *zap.Logger
}

func NewRanker(extractor *features.Extractor, scores ScoreSource, cfg Config, logger *zap.Logger) *Ranker {
	if cfg.MLScale <= 0 {
		cfg.MLScale = DefaultMLScale
	}
	if cfg.PriorityWeight < 0 {
		cfg.PriorityWeight = DefaultPriorityWeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{extractor: extractor, scores: scores, cfg: cfg, logger: logger}
}

// Rank scores and orders the candidates for a request as of the reference date.
// The candidates slice is not modified; results point into it.
func (r *Ranker) Rank(candidates []model.Employee, req *model.ManpowerRequest, ref time.Time) ([]Result, error) {
	if req == nil {
		return nil, errs.Validation("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.ID] {
			return nil, errs.Validation("employee %d appears more than once in the candidate list", c.ID).
				WithField("employee_id", c.ID)
		}
		seen[c.ID] = true
	}
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	vectors := r.extractor.ExtractAll(candidates, req, ref)
	prediction := r.scores.Score(vectors)
	if prediction.Fallback {
		r.logger.Debug("Ranking with heuristic fallback",
			zap.String("request_id", req.ID),
			zap.Error(prediction.Cause))
	}

	results := make([]Result, len(candidates))
	for i := range candidates {
		emp := &candidates[i]
		res := Result{
			Employee:        emp,
			Features:        vectors[i],
			WorkloadPoints:  r.finite(emp.WorkloadPoints, "workload_points", emp.ID),
			BlindTestPoints: r.finite(emp.BlindTestPoints, "blind_test_points", emp.ID),
			Rating:          rating(emp),
			MLProbability:   prediction.Scores[i],
			PriorityBoost:   vectors[i].PriorityBoost,
			Backend:         prediction.Backend,
			Fallback:        prediction.Fallback,
		}
		res.BaseScore = res.WorkloadPoints + res.BlindTestPoints + res.Rating
		res.MLScore = res.MLProbability * r.cfg.MLScale
		res.FinalScore = res.BaseScore + res.MLScore + res.PriorityBoost*r.cfg.PriorityWeight
		results[i] = res
	}

	Sort(results)
	return results, nil
}

// Sort orders results by final score descending, then employee id ascending,
// and renumbers positions
func Sort(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].Employee.ID < results[j].Employee.ID
	})
	for i := range results {
		results[i].Position = i + 1
	}
}

func rating(emp *model.Employee) float64 {
	if emp.AverageRating == nil || math.IsNaN(*emp.AverageRating) || math.IsInf(*emp.AverageRating, 0) {
		return features.DefaultRating
	}
	return *emp.AverageRating
}

func (r *Ranker) finite(v float64, field string, employeeID int64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		r.logger.Warn("Non-finite score component, using 0",
			zap.String("field", field),
			zap.Int64("employee_id", employeeID))
		return 0
	}
	return v
}
