package scoring

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/features"
)

// Prediction is a batch of scores and the backend that produced them
type Prediction struct {
	Scores  []float64
	Backend string
	// Fallback is set when the primary backend could not answer
	Fallback bool
	// Cause is the ModelUnavailable error behind a fallback
	Cause error
}

// FallbackScorer asks the primary model first and answers with the heuristic
// whenever the primary is untrained, returns an error, panics or yields a
// non-finite score
type FallbackScorer struct {
	primary   Model
	heuristic *Heuristic
	logger    *zap.Logger
}

// NewFallbackScorer wraps primary. A nil primary always uses the heuristic.
func NewFallbackScorer(primary Model, heuristic *Heuristic, logger *zap.Logger) *FallbackScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heuristic == nil {
		heuristic = NewHeuristic(HeuristicWeights{}, nil, logger)
	}
	return &FallbackScorer{primary: primary, heuristic: heuristic, logger: logger}
}

// Primary returns the wrapped model, or the heuristic when there is none
func (f *FallbackScorer) Primary() Model {
	if f.primary == nil {
		return f.heuristic
	}
	return f.primary
}

func (f *FallbackScorer) Name() string {
	return f.Primary().Name()
}

// Predict never returns an error
func (f *FallbackScorer) Predict(vs []features.FeatureVector) ([]float64, error) {
	return f.Score(vs).Scores, nil
}

// Score predicts with the primary model and falls back to the heuristic
func (f *FallbackScorer) Score(vs []features.FeatureVector) Prediction {
	if f.primary == nil || f.primary.Name() == BackendHeuristic {
		scores, _ := f.heuristic.Predict(vs)
		return Prediction{Scores: scores, Backend: BackendHeuristic}
	}

	scores, err := f.tryPrimary(vs)
	if err == nil {
		return Prediction{Scores: scores, Backend: f.primary.Name()}
	}

	cause := errs.ModelUnavailable(f.primary.Name(), err)
	if f.primary.IsTrained() {
		f.logger.Warn("Scoring backend failed, falling back to heuristic",
			zap.String("backend", f.primary.Name()),
			zap.Error(err))
	} else {
		f.logger.Debug("Scoring backend not trained, using heuristic",
			zap.String("backend", f.primary.Name()))
	}

	scores, _ = f.heuristic.Predict(vs)
	return Prediction{Scores: scores, Backend: BackendHeuristic, Fallback: true, Cause: cause}
}

func (f *FallbackScorer) tryPrimary(vs []features.FeatureVector) (scores []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			scores, err = nil, fmt.Errorf("prediction panicked: %v", r)
		}
	}()

	if !f.primary.IsTrained() {
		return nil, fmt.Errorf("model is not trained")
	}
	scores, err = f.primary.Predict(vs)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(vs) {
		return nil, fmt.Errorf("model returned %d scores for %d vectors", len(scores), len(vs))
	}
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("model returned a non-finite score for vector %d", i)
		}
		scores[i] = clamp01(s)
	}
	return scores, nil
}
