package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/features"
)

// LinearConfig holds the gradient descent hyper-parameters
type LinearConfig struct {
	LearningRate float64
	MaxEpochs    int
	// TargetMAE stops training early once the epoch's mean absolute error drops below it
	TargetMAE  float64
	MinSamples int
}

// DefaultLinearConfig returns lr 0.01, 100 epochs, early stop at MAE 0.1
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{
		LearningRate: 0.01,
		MaxEpochs:    100,
		TargetMAE:    0.1,
		MinSamples:   DefaultMinSamples,
	}
}

// LinearPriors are the starting weights. Prediction with priors alone prefers
// employees with a light workload, a good rating and local experience.
func LinearPriors() map[string]float64 {
	return map[string]float64{
		features.NameWorkDaysCount:   -0.05,
		features.NameRating:          0.6,
		features.NameTestScore:       0.4,
		features.NameGender:          0,
		features.NameEmployeeType:    0,
		features.NameSameSubSection:  0.5,
		features.NameSameSection:     0.3,
		features.NameCurrentWorkload: -0.8,
		features.NameShiftPriority:   0.4,
		features.NameHasPriority:     0.3,
		features.NamePriorityBoost:   0.2,
		features.NamePriorityCount:   0,
	}
}

// LinearModel is a logistic regression over named features, fitted with
// per-example gradient descent
type LinearModel struct {
	cfg    LinearConfig
	logger *zap.Logger

	mu      sync.RWMutex
	weights map[string]float64
	bias    float64
	meta    Metadata
}

// NewLinearModel creates an untrained model holding the priors
func NewLinearModel(cfg LinearConfig, logger *zap.Logger) *LinearModel {
	def := DefaultLinearConfig()
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.MaxEpochs <= 0 {
		cfg.MaxEpochs = def.MaxEpochs
	}
	if cfg.TargetMAE <= 0 {
		cfg.TargetMAE = def.TargetMAE
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &LinearModel{cfg: cfg, logger: logger}
	m.Reset()
	return m
}

func (m *LinearModel) Name() string {
	return BackendLinear
}

// Predict works before training too, using the priors
func (m *LinearModel) Predict(vs []features.FeatureVector) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]float64, len(vs))
	order := sortedKeys(m.weights)
	for i, v := range vs {
		if !v.IsValid() {
			return nil, fmt.Errorf("feature vector %d is not finite", i)
		}
		out[i] = clamp01(sigmoid(linearSum(m.weights, order, m.bias, v)))
	}
	return out, nil
}

// Weights returns a copy of the current weights and the bias
func (m *LinearModel) Weights() (map[string]float64, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.weights))
	for k, w := range m.weights {
		out[k] = w
	}
	return out, m.bias
}

// Train fits the weights starting from the current parameters. The epoch loop
// is bounded by MaxEpochs and stops early once the MAE reaches TargetMAE.
func (m *LinearModel) Train(ctx context.Context, examples []Example) (*TrainingResult, error) {
	valid, dropped := ValidExamples(examples, m.logger)
	result := &TrainingResult{Backend: BackendLinear, SampleCount: len(valid), Dropped: dropped}
	if len(valid) < m.cfg.MinSamples {
		return result, errs.InsufficientData(len(valid), m.cfg.MinSamples)
	}

	m.mu.RLock()
	weights := make(map[string]float64, len(m.weights))
	for k, w := range m.weights {
		weights[k] = w
	}
	bias := m.bias
	m.mu.RUnlock()

	// Priority flags seen in training join the weight table with a zero prior
	for _, ex := range valid {
		for _, name := range ex.Features.FlagNames() {
			if _, ok := weights[name]; !ok {
				weights[name] = 0
			}
		}
	}
	order := sortedKeys(weights)

	epochs := 0
	mae := math.Inf(1)
	for epochs < m.cfg.MaxEpochs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("linear training interrupted after %d epochs: %w", epochs, err)
		}
		epochs++

		totalErr := 0.0
		for _, ex := range valid {
			p := sigmoid(linearSum(weights, order, bias, ex.Features))
			diff := p - float64(ex.Label)
			totalErr += math.Abs(diff)

			for _, name := range order {
				x, _ := ex.Features.Get(name)
				weights[name] -= m.cfg.LearningRate * diff * x
			}
			bias -= m.cfg.LearningRate * diff
		}
		mae = totalErr / float64(len(valid))
		if mae < m.cfg.TargetMAE {
			break
		}
	}

	preds := make([]float64, len(valid))
	for i, ex := range valid {
		preds[i] = clamp01(sigmoid(linearSum(weights, order, bias, ex.Features)))
	}
	result.Accuracy = accuracy(preds, valid)
	result.Iterations = epochs
	result.Success = true

	m.mu.Lock()
	m.weights = weights
	m.bias = bias
	m.meta = Metadata{
		Version:     uuid.NewString(),
		Backend:     BackendLinear,
		Trained:     true,
		Accuracy:    result.Accuracy,
		SampleCount: result.SampleCount,
		TrainedAt:   time.Now().UTC(),
	}
	m.mu.Unlock()

	m.logger.Info("Trained linear model",
		zap.Int("samples", result.SampleCount),
		zap.Int("dropped", dropped),
		zap.Int("epochs", epochs),
		zap.Float64("mae", mae),
		zap.Float64("accuracy", result.Accuracy))

	return result, nil
}

func (m *LinearModel) IsTrained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta.Trained
}

// Reset restores the priors
func (m *LinearModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = LinearPriors()
	m.bias = 0
	m.meta = Metadata{Backend: BackendLinear}
}

func (m *LinearModel) Metadata() Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta
}

type linearState struct {
	Metadata Metadata           `json:"metadata"`
	Weights  map[string]float64 `json:"weights"`
	Bias     float64            `json:"bias"`
}

func (m *LinearModel) MarshalBinary() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(linearState{Metadata: m.meta, Weights: m.weights, Bias: m.bias})
}

func (m *LinearModel) UnmarshalBinary(data []byte) error {
	var state linearState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode linear model: %w", err)
	}
	if state.Metadata.Backend != "" && state.Metadata.Backend != BackendLinear {
		return fmt.Errorf("blob holds a %s model, not %s", state.Metadata.Backend, BackendLinear)
	}
	if len(state.Weights) == 0 {
		return fmt.Errorf("linear model blob has no weights")
	}
	for name, w := range state.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("linear weight %q is not finite", name)
		}
	}
	if math.IsNaN(state.Bias) || math.IsInf(state.Bias, 0) {
		return fmt.Errorf("linear bias is not finite")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = state.Weights
	m.bias = state.Bias
	m.meta = state.Metadata
	m.meta.Backend = BackendLinear
	return nil
}

func linearSum(weights map[string]float64, order []string, bias float64, v features.FeatureVector) float64 {
	z := bias
	for _, name := range order {
		x, _ := v.Get(name)
		z += weights[name] * x
	}
	return z
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
