// Package scoring turns feature vectors into fitness probabilities.
//
// Three backends share the Model interface: Heuristic (hand-set weights, always
// available), LinearModel (online logistic regression) and EnsembleModel (bagged
// decision trees). Callers score through a FallbackScorer, which wraps the chosen
// backend and answers with the Heuristic whenever the backend is untrained or fails.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/features"
)

// Backend names
const (
	BackendHeuristic = "heuristic"
	BackendLinear    = "linear"
	BackendEnsemble  = "ensemble"
)

// DefaultMinSamples is the minimum number of valid examples a training run needs
const DefaultMinSamples = 10

// Scorer predicts a fitness score in [0,1] per feature vector
type Scorer interface {
	Name() string
	Predict(vs []features.FeatureVector) ([]float64, error)
}

// Model is a trainable, persistable Scorer
type Model interface {
	Scorer

	// Train fits the model to labeled examples. Invalid examples are dropped and
	// logged. Returns an InsufficientData error below the minimum sample count.
	Train(ctx context.Context, examples []Example) (*TrainingResult, error)

	// IsTrained reports whether the model holds fitted parameters
	IsTrained() bool

	// Reset returns the model to its untrained priors
	Reset()

	// Metadata describes the current parameter set
	Metadata() Metadata

	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Example is one labeled feature vector. Label 1 means the employee was assigned.
type Example struct {
	Features features.FeatureVector
	Label    int
	// Source identifies the origin of the example in logs (e.g. a schedule id)
	Source string
}

// IsValid reports whether the example can be used for training
func (e Example) IsValid() bool {
	return (e.Label == 0 || e.Label == 1) && e.Features.IsValid()
}

// RawExample is a loosely typed example, as read from a snapshot file
type RawExample struct {
	Features map[string]any `json:"features"`
	Label    any            `json:"label"`
	Source   string         `json:"source,omitempty"`
}

// TrainingResult reports the outcome of a training run
type TrainingResult struct {
	Backend     string
	Success     bool
	Accuracy    float64
	SampleCount int
	Dropped     int
	Iterations  int
	Err         error
}

// Metadata describes a model's parameter set
type Metadata struct {
	Version     string    `json:"version"`
	Backend     string    `json:"backend"`
	Trained     bool      `json:"trained"`
	Accuracy    float64   `json:"accuracy"`
	SampleCount int       `json:"sample_count"`
	TrainedAt   time.Time `json:"trained_at"`
}

// ValidExamples drops invalid examples, logging one warning per dropped example
func ValidExamples(examples []Example, logger *zap.Logger) ([]Example, int) {
	valid := make([]Example, 0, len(examples))
	dropped := 0
	for i, ex := range examples {
		if !ex.IsValid() {
			logger.Warn("Dropping invalid training example",
				zap.Int("index", i),
				zap.String("source", ex.Source),
				zap.Int("label", ex.Label))
			dropped++
			continue
		}
		valid = append(valid, ex)
	}
	return valid, dropped
}

// ParseExamples converts raw examples, dropping (and logging) the ones whose
// feature set is incomplete or non-numeric or whose label is not 0/1
func ParseExamples(raw []RawExample, logger *zap.Logger) ([]Example, int) {
	out := make([]Example, 0, len(raw))
	dropped := 0
	for i, r := range raw {
		label, ok := parseLabel(r.Label)
		if !ok {
			logger.Warn("Dropping training example with invalid label",
				zap.Int("index", i),
				zap.String("source", r.Source),
				zap.Any("label", r.Label))
			dropped++
			continue
		}
		v, err := features.FromMap(r.Features)
		if err != nil {
			logger.Warn("Dropping training example with invalid features",
				zap.Int("index", i),
				zap.String("source", r.Source),
				zap.Error(err))
			dropped++
			continue
		}
		out = append(out, Example{Features: v, Label: label, Source: r.Source})
	}
	return out, dropped
}

// ReadExamples decodes a JSON array of raw examples
func ReadExamples(r io.Reader) ([]RawExample, error) {
	var raw []RawExample
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode training examples: %w", err)
	}
	return raw, nil
}

func parseLabel(v any) (int, bool) {
	switch l := v.(type) {
	case int:
		return l, l == 0 || l == 1
	case int64:
		return int(l), l == 0 || l == 1
	case float64:
		if l == 0 || l == 1 {
			return int(l), true
		}
	case bool:
		if l {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// SafeTrain runs Train and converts both errors and panics into a failed result,
// so a training failure never crashes the caller
func SafeTrain(ctx context.Context, m Model, examples []Example, logger *zap.Logger) (result *TrainingResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("training panicked: %v", r)
			logger.Error("Training failed", zap.String("backend", m.Name()), zap.Error(err))
			result = &TrainingResult{Backend: m.Name(), Success: false, SampleCount: len(examples), Err: err}
		}
	}()

	res, err := m.Train(ctx, examples)
	if res == nil {
		res = &TrainingResult{Backend: m.Name(), SampleCount: len(examples)}
	}
	if err != nil {
		logger.Warn("Training failed", zap.String("backend", m.Name()), zap.Error(err))
		res.Success = false
		res.Err = err
		return res
	}
	return res
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// accuracy is the share of examples whose thresholded prediction matches the label
func accuracy(predictions []float64, examples []Example) float64 {
	if len(examples) == 0 {
		return 0
	}
	correct := 0
	for i, ex := range examples {
		predicted := 0
		if predictions[i] >= 0.5 {
			predicted = 1
		}
		if predicted == ex.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(examples))
}

func vectorsOf(examples []Example) []features.FeatureVector {
	vs := make([]features.FeatureVector, len(examples))
	for i, ex := range examples {
		vs[i] = ex.Features
	}
	return vs
}
