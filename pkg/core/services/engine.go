package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/internal/config"
	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/allocator/criteria"
	"github.com/jakechorley/manpower/pkg/core/features"
	"github.com/jakechorley/manpower/pkg/core/priority"
	"github.com/jakechorley/manpower/pkg/core/ranking"
	"github.com/jakechorley/manpower/pkg/core/scoring"
)

// Engine holds the long-lived allocation core shared by every use case
type Engine struct {
	Policy    *priority.Policy
	Extractor *features.Extractor
	Registry  *scoring.Registry
	Ranker    *ranking.Ranker
	Allocator *allocator.Allocator
	Locks     *allocator.KeyedLocker
}

// NewEngine builds the core from configuration and activates the configured
// scoring backend. models may be nil to disable model persistence.
func NewEngine(ctx context.Context, cfg *config.Config, models scoring.BlobStore, logger *zap.Logger) (*Engine, error) {
	policy, err := cfg.PriorityPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to build priority policy: %w", err)
	}

	extractor := features.NewExtractor(cfg.FeatureConfig(), policy, logger)
	heuristic := scoring.NewHeuristic(scoring.DefaultHeuristicWeights(), policy, logger)
	heuristic.SetWorkDaysWindow(extractor.Config().WorkDaysWindow)
	factory := scoring.NewFactory(heuristic, cfg.LinearConfig(), cfg.EnsembleConfig(), logger)
	registry := scoring.NewRegistry(heuristic, factory, models, logger)

	if err := registry.Activate(ctx, cfg.Backend()); err != nil {
		return nil, fmt.Errorf("failed to activate %s backend: %w", cfg.Backend(), err)
	}

	return &Engine{
		Policy:    policy,
		Extractor: extractor,
		Registry:  registry,
		Ranker:    ranking.NewRanker(extractor, registry, cfg.RankingConfig(), logger),
		Allocator: allocator.New(criteria.Default(), policy, logger),
		Locks:     allocator.NewKeyedLocker(),
	}, nil
}
