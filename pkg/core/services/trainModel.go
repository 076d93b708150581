package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/internal/config"
	"github.com/jakechorley/manpower/pkg/core/scoring"
	"github.com/jakechorley/manpower/pkg/core/training"
)

// TrainReport describes a training run
type TrainReport struct {
	Backend string
	Stats   training.Stats
	Result  *scoring.TrainingResult
}

// TrainModel collects labeled examples from the schedule history ending at now,
// trains a fresh model for the backend and activates it on success. The
// previously active model keeps serving when training fails.
func TrainModel(ctx context.Context, source training.Source, engine *Engine, cfg *config.Config, logger *zap.Logger, backend string, now time.Time) (*TrainReport, error) {
	if backend == "" {
		backend = cfg.Backend()
	}

	collector := training.NewCollector(source, engine.Extractor, cfg.CollectorConfig(), logger)
	examples, stats := collector.Collect(ctx, now)

	return retrain(ctx, engine, logger, backend, examples, stats)
}

// TrainFromExamples trains on labeled examples read from a snapshot file
// instead of the schedule history. Examples with an incomplete feature set or a
// label other than 0/1 are dropped and counted as skipped.
func TrainFromExamples(ctx context.Context, engine *Engine, cfg *config.Config, logger *zap.Logger, backend string, raw []scoring.RawExample) (*TrainReport, error) {
	if backend == "" {
		backend = cfg.Backend()
	}

	examples, dropped := scoring.ParseExamples(raw, logger)
	stats := training.Stats{Records: len(raw), Skipped: dropped}
	for _, ex := range examples {
		if ex.Label == 1 {
			stats.Positives++
		} else {
			stats.Negatives++
		}
	}

	return retrain(ctx, engine, logger, backend, examples, stats)
}

func retrain(ctx context.Context, engine *Engine, logger *zap.Logger, backend string, examples []scoring.Example, stats training.Stats) (*TrainReport, error) {
	logger.Debug("Training model",
		zap.String("backend", backend),
		zap.Int("examples", len(examples)))

	result := engine.Registry.Retrain(ctx, backend, examples)
	report := &TrainReport{Backend: backend, Stats: stats, Result: result}

	if !result.Success {
		return report, fmt.Errorf("training %s model failed: %w", backend, result.Err)
	}

	logger.Info("Model trained",
		zap.String("backend", backend),
		zap.Float64("accuracy", result.Accuracy),
		zap.Int("samples", result.SampleCount),
		zap.Int("dropped", result.Dropped))

	return report, nil
}

// ModelInfo describes the active scoring model
type ModelInfo struct {
	Backend  string
	Metadata scoring.Metadata
	// ScoresWithHeuristic is set when an untrained model defers to the heuristic
	ScoresWithHeuristic bool
}

// GetModelInfo reports the active model's metadata
func GetModelInfo(engine *Engine) ModelInfo {
	m := engine.Registry.Active().Primary()
	return ModelInfo{
		Backend:             m.Name(),
		Metadata:            m.Metadata(),
		ScoresWithHeuristic: m.Name() != scoring.BackendHeuristic && !m.IsTrained(),
	}
}
