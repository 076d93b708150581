package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/features"
)

// EnsembleConfig holds the bagging and tree-growth parameters
type EnsembleConfig struct {
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	MinSamples     int
	Seed           uint64
	// MajorityVoteOnly maps the vote to {0.2, 0.8} instead of the vote fraction
	MajorityVoteOnly bool
}

// Probabilities reported when MajorityVoteOnly is set
const (
	MajorityNegative = 0.2
	MajorityPositive = 0.8
)

// DefaultEnsembleConfig returns 25 trees of depth at most 4
func DefaultEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		Trees:          25,
		MaxDepth:       4,
		MinSamplesLeaf: 1,
		MinSamples:     DefaultMinSamples,
		Seed:           42,
	}
}

// EnsembleModel is a bag of decision trees, each grown on a bootstrap sample of
// the training set. The predicted probability is the share of trees voting positive.
type EnsembleModel struct {
	cfg    EnsembleConfig
	logger *zap.Logger

	mu    sync.RWMutex
	trees []tree
	meta  Metadata
}

// NewEnsembleModel creates an untrained ensemble
func NewEnsembleModel(cfg EnsembleConfig, logger *zap.Logger) *EnsembleModel {
	def := DefaultEnsembleConfig()
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = def.MinSamplesLeaf
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnsembleModel{cfg: cfg, logger: logger, meta: Metadata{Backend: BackendEnsemble}}
}

func (m *EnsembleModel) Name() string {
	return BackendEnsemble
}

// Predict fails with a ModelUnavailable error until the ensemble is trained
func (m *EnsembleModel) Predict(vs []features.FeatureVector) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.trees) == 0 {
		return nil, errs.ModelUnavailable(BackendEnsemble, fmt.Errorf("ensemble has no trees"))
	}

	out := make([]float64, len(vs))
	for i, v := range vs {
		if !v.IsValid() {
			return nil, fmt.Errorf("feature vector %d is not finite", i)
		}
		out[i] = m.probability(v.Values())
	}
	return out, nil
}

func (m *EnsembleModel) probability(x []float64) float64 {
	votes := 0
	for _, t := range m.trees {
		if t.predict(x) >= 0.5 {
			votes++
		}
	}
	if m.cfg.MajorityVoteOnly {
		if votes*2 > len(m.trees) {
			return MajorityPositive
		}
		return MajorityNegative
	}
	return float64(votes) / float64(len(m.trees))
}

// Train grows a fresh forest. Accuracy is measured out of bag: each example is
// scored only by the trees whose bootstrap sample did not include it.
func (m *EnsembleModel) Train(ctx context.Context, examples []Example) (*TrainingResult, error) {
	valid, dropped := ValidExamples(examples, m.logger)
	result := &TrainingResult{Backend: BackendEnsemble, SampleCount: len(valid), Dropped: dropped}
	if len(valid) < m.cfg.MinSamples {
		return result, errs.InsufficientData(len(valid), m.cfg.MinSamples)
	}

	X := make([][]float64, len(valid))
	y := make([]int, len(valid))
	for i, ex := range valid {
		X[i] = ex.Features.Values()
		y[i] = ex.Label
	}

	rng := rand.New(rand.NewPCG(m.cfg.Seed, m.cfg.Seed^0x9e3779b97f4a7c15))
	grower := treeGrower{X: X, y: y, maxDepth: m.cfg.MaxDepth, minLeaf: m.cfg.MinSamplesLeaf}

	n := len(valid)
	oobVotes := make([]int, n)
	oobTrees := make([]int, n)
	trees := make([]tree, 0, m.cfg.Trees)

	for t := 0; t < m.cfg.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("ensemble training interrupted after %d trees: %w", t, err)
		}

		inBag := make([]bool, n)
		sample := make([]int, n)
		for i := range sample {
			idx := rng.IntN(n)
			sample[i] = idx
			inBag[idx] = true
		}

		tr := grower.grow(sample)
		trees = append(trees, tr)

		for i := 0; i < n; i++ {
			if inBag[i] {
				continue
			}
			oobTrees[i]++
			if tr.predict(X[i]) >= 0.5 {
				oobVotes[i]++
			}
		}
	}

	correct, scored := 0, 0
	for i := 0; i < n; i++ {
		if oobTrees[i] == 0 {
			continue
		}
		scored++
		predicted := 0
		if oobVotes[i]*2 >= oobTrees[i] {
			predicted = 1
		}
		if predicted == y[i] {
			correct++
		}
	}

	m.mu.Lock()
	m.trees = trees
	if scored > 0 {
		result.Accuracy = float64(correct) / float64(scored)
	} else {
		preds := make([]float64, n)
		for i := range X {
			preds[i] = m.probability(X[i])
		}
		result.Accuracy = accuracy(preds, valid)
	}
	result.Iterations = len(trees)
	result.Success = true
	m.meta = Metadata{
		Version:     uuid.NewString(),
		Backend:     BackendEnsemble,
		Trained:     true,
		Accuracy:    result.Accuracy,
		SampleCount: result.SampleCount,
		TrainedAt:   time.Now().UTC(),
	}
	m.mu.Unlock()

	m.logger.Info("Trained ensemble model",
		zap.Int("samples", result.SampleCount),
		zap.Int("dropped", dropped),
		zap.Int("trees", len(trees)),
		zap.Float64("oob_accuracy", result.Accuracy))

	return result, nil
}

func (m *EnsembleModel) IsTrained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trees) > 0
}

func (m *EnsembleModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees = nil
	m.meta = Metadata{Backend: BackendEnsemble}
}

func (m *EnsembleModel) Metadata() Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta
}

type ensembleState struct {
	Metadata Metadata `json:"metadata"`
	Trees    []tree   `json:"trees"`
}

func (m *EnsembleModel) MarshalBinary() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(ensembleState{Metadata: m.meta, Trees: m.trees})
}

func (m *EnsembleModel) UnmarshalBinary(data []byte) error {
	var state ensembleState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode ensemble: %w", err)
	}
	if state.Metadata.Backend != "" && state.Metadata.Backend != BackendEnsemble {
		return fmt.Errorf("blob holds a %s model, not %s", state.Metadata.Backend, BackendEnsemble)
	}
	for i, t := range state.Trees {
		if err := t.validate(len(features.Names)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees = state.Trees
	m.meta = state.Metadata
	m.meta.Backend = BackendEnsemble
	m.meta.Trained = len(state.Trees) > 0
	return nil
}
