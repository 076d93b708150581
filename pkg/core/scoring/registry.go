package scoring

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/features"
)

// Factory builds a fresh, untrained model for a backend name
type Factory func(backend string) (Model, error)

// NewFactory returns a Factory for the three built-in backends
func NewFactory(heuristic *Heuristic, linear LinearConfig, ensemble EnsembleConfig, logger *zap.Logger) Factory {
	return func(backend string) (Model, error) {
		switch backend {
		case BackendHeuristic:
			return heuristic, nil
		case BackendLinear:
			return NewLinearModel(linear, logger), nil
		case BackendEnsemble:
			return NewEnsembleModel(ensemble, logger), nil
		}
		return nil, errs.Validation("unknown scoring backend %q", backend)
	}
}

// Registry owns the active scorer. Training builds a new model and swaps the
// pointer once it is complete, so concurrent readers always see a whole model.
type Registry struct {
	active    atomic.Pointer[FallbackScorer]
	heuristic *Heuristic
	factory   Factory
	store     BlobStore
	logger    *zap.Logger

	group singleflight.Group
}

// NewRegistry starts with the heuristic active. store may be nil to disable persistence.
func NewRegistry(heuristic *Heuristic, factory Factory, store BlobStore, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heuristic == nil {
		heuristic = NewHeuristic(HeuristicWeights{}, nil, logger)
	}
	r := &Registry{heuristic: heuristic, factory: factory, store: store, logger: logger}
	r.active.Store(NewFallbackScorer(nil, heuristic, logger))
	return r
}

// Active returns the current scorer
func (r *Registry) Active() *FallbackScorer {
	return r.active.Load()
}

// Score scores with the active scorer
func (r *Registry) Score(vs []features.FeatureVector) Prediction {
	return r.Active().Score(vs)
}

// Swap makes m the active model
func (r *Registry) Swap(m Model) {
	r.active.Store(NewFallbackScorer(m, r.heuristic, r.logger))
	meta := m.Metadata()
	r.logger.Info("Activated scoring model",
		zap.String("backend", m.Name()),
		zap.String("version", meta.Version),
		zap.Bool("trained", meta.Trained))
}

// Activate loads the persisted model for a backend and makes it active. A
// missing or corrupt blob activates an untrained model, which scores with the heuristic.
func (r *Registry) Activate(ctx context.Context, backend string) error {
	m, err := r.factory(backend)
	if err != nil {
		return err
	}
	if r.store != nil && backend != BackendHeuristic {
		Load(ctx, r.store, m, r.logger)
	}
	r.Swap(m)
	return nil
}

// Retrain trains a new model for the backend and activates it on success.
// Concurrent calls for the same backend share a single training run. A failed
// run leaves the active model untouched and is reported in the result. A
// persistence failure is logged; the new model is activated regardless.
func (r *Registry) Retrain(ctx context.Context, backend string, examples []Example) *TrainingResult {
	v, _, shared := r.group.Do(backend, func() (any, error) {
		m, err := r.factory(backend)
		if err != nil {
			return &TrainingResult{Backend: backend, Err: err}, nil
		}
		if backend != BackendHeuristic {
			m.Reset()
		}

		result := SafeTrain(ctx, m, examples, r.logger)
		if !result.Success {
			return result, nil
		}

		if r.store != nil && backend != BackendHeuristic {
			if err := Persist(ctx, r.store, m); err != nil {
				r.logger.Warn("Failed to persist trained model", zap.String("backend", backend), zap.Error(err))
			}
		}
		r.Swap(m)
		return result, nil
	})

	result, ok := v.(*TrainingResult)
	if !ok || result == nil {
		return &TrainingResult{Backend: backend, Err: fmt.Errorf("training returned no result")}
	}
	if shared {
		r.logger.Debug("Joined in-flight training run", zap.String("backend", backend))
	}
	return result
}
