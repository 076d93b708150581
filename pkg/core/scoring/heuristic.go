package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/features"
	"github.com/jakechorley/manpower/pkg/core/priority"
)

// Share of the heuristic score taken by the base features and the priority match
const (
	HeuristicBaseShare     = 0.7
	HeuristicPriorityShare = 0.3
)

// HeuristicWeights weight the normalized base features. They should sum to 1.
type HeuristicWeights struct {
	// WorkDays rewards fewer days worked in the window (inverted, normalized by WorkDaysWindow)
	WorkDays       float64 `json:"work_days"`
	Rating         float64 `json:"rating"`
	TestScore      float64 `json:"test_score"`
	SameSubSection float64 `json:"same_subsection"`
	SameSection    float64 `json:"same_section"`
	ShiftPriority  float64 `json:"shift_priority"`
	// Workload rewards a lighter recent workload (inverted)
	Workload float64 `json:"workload"`
}

// DefaultHeuristicWeights returns the built-in weight table
func DefaultHeuristicWeights() HeuristicWeights {
	return HeuristicWeights{
		WorkDays:       0.20,
		Rating:         0.25,
		TestScore:      0.20,
		SameSubSection: 0.15,
		SameSection:    0.10,
		ShiftPriority:  0.05,
		Workload:       0.05,
	}
}

func (w HeuristicWeights) total() float64 {
	return w.WorkDays + w.Rating + w.TestScore + w.SameSubSection + w.SameSection + w.ShiftPriority + w.Workload
}

// Heuristic scores with fixed weights. It needs no training, is deterministic,
// and is the fallback for every other backend.
type Heuristic struct {
	weights        HeuristicWeights
	policy         *priority.Policy
	workDaysWindow float64
	logger         *zap.Logger

	mu   sync.RWMutex
	meta Metadata
}

// NewHeuristic creates a Heuristic. A zero weight table uses the defaults.
func NewHeuristic(weights HeuristicWeights, policy *priority.Policy, logger *zap.Logger) *Heuristic {
	if weights.total() <= 0 {
		weights = DefaultHeuristicWeights()
	}
	if policy == nil {
		policy = priority.DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heuristic{
		weights:        weights,
		policy:         policy,
		workDaysWindow: features.DefaultWorkDaysWindow,
		logger:         logger,
		meta:           Metadata{Backend: BackendHeuristic, Trained: true},
	}
}

// SetWorkDaysWindow sets the window work_days_count is normalized by. It should
// match the extractor's window. Non-positive values are ignored.
func (h *Heuristic) SetWorkDaysWindow(days int) {
	if days <= 0 {
		return
	}
	h.mu.Lock()
	h.workDaysWindow = float64(days)
	h.mu.Unlock()
}

func (h *Heuristic) Name() string {
	return BackendHeuristic
}

// Predict never fails
func (h *Heuristic) Predict(vs []features.FeatureVector) ([]float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = h.score(v)
	}
	return out, nil
}

// Score combines the base score and the priority match, 70/30
func (h *Heuristic) Score(v features.FeatureVector) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.score(v)
}

func (h *Heuristic) score(v features.FeatureVector) float64 {
	s := HeuristicBaseShare*h.base(v) + HeuristicPriorityShare*h.priorityMatch(v)
	if math.IsNaN(s) {
		return 0
	}
	return clamp01(s)
}

func (h *Heuristic) base(v features.FeatureVector) float64 {
	w := h.weights
	workDays := 1 - math.Min(math.Max(v.WorkDaysCount, 0)/h.workDaysWindow, 1)

	sum := w.WorkDays*workDays +
		w.Rating*clamp01(v.Rating) +
		w.TestScore*clamp01(v.TestScore) +
		w.SameSubSection*clamp01(v.SameSubSection) +
		w.SameSection*clamp01(v.SameSection) +
		w.ShiftPriority*clamp01(v.ShiftPriority) +
		w.Workload*(1-clamp01(v.CurrentWorkload))

	return sum / w.total()
}

// priorityMatch is the policy's match score for the categories flagged on the vector
func (h *Heuristic) priorityMatch(v features.FeatureVector) float64 {
	held := make([]string, 0, len(v.PriorityFlags))
	for cat, flag := range v.PriorityFlags {
		if flag > 0 {
			held = append(held, cat)
		}
	}
	return h.policy.MatchScore(held)
}

// Train leaves the weights untouched and reports the heuristic's accuracy on the examples
func (h *Heuristic) Train(ctx context.Context, examples []Example) (*TrainingResult, error) {
	valid, dropped := ValidExamples(examples, h.logger)
	result := &TrainingResult{Backend: BackendHeuristic, SampleCount: len(valid), Dropped: dropped}
	if len(valid) == 0 {
		result.Success = true
		return result, nil
	}

	preds, _ := h.Predict(vectorsOf(valid))
	result.Accuracy = accuracy(preds, valid)
	result.Success = true

	h.mu.Lock()
	h.meta.Accuracy = result.Accuracy
	h.meta.SampleCount = result.SampleCount
	h.meta.TrainedAt = time.Now().UTC()
	h.mu.Unlock()

	return result, nil
}

// IsTrained is always true
func (h *Heuristic) IsTrained() bool {
	return true
}

// Reset clears the diagnostic accuracy
func (h *Heuristic) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.meta = Metadata{Backend: BackendHeuristic, Trained: true}
}

func (h *Heuristic) Metadata() Metadata {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.meta
}

type heuristicState struct {
	Metadata Metadata         `json:"metadata"`
	Weights  HeuristicWeights `json:"weights"`
}

func (h *Heuristic) MarshalBinary() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return json.Marshal(heuristicState{Metadata: h.meta, Weights: h.weights})
}

func (h *Heuristic) UnmarshalBinary(data []byte) error {
	var state heuristicState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode heuristic: %w", err)
	}
	if state.Weights.total() <= 0 {
		return fmt.Errorf("heuristic weights must sum to a positive value")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.weights = state.Weights
	h.meta = state.Metadata
	h.meta.Backend = BackendHeuristic
	h.meta.Trained = true
	return nil
}
