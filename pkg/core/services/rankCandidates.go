package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

// RankStore is the read model needed to rank candidates for a request
type RankStore interface {
	GetRequest(ctx context.Context, id string) (*model.ManpowerRequest, error)
	AvailableEmployees(ctx context.Context, date time.Time) ([]model.Employee, error)
}

// RankingResult is the ranked candidate list for one request
type RankingResult struct {
	Request  *model.ManpowerRequest
	Results  []ranking.Result
	Backend  string
	Fallback bool
}

// RankCandidates ranks the employees available on the request date.
// ref is the reference date for feature windows; zero means the request date.
func RankCandidates(ctx context.Context, store RankStore, engine *Engine, logger *zap.Logger, requestID string, ref time.Time) (*RankingResult, error) {
	logger.Debug("Ranking candidates", zap.String("request_id", requestID))

	req, err := store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if ref.IsZero() {
		ref = req.Date
	}

	candidates, err := store.AvailableEmployees(ctx, req.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch available employees: %w", err)
	}
	logger.Debug("Fetched available employees", zap.Int("count", len(candidates)))

	return rank(engine, logger, req, candidates, ref)
}

func rank(engine *Engine, logger *zap.Logger, req *model.ManpowerRequest, candidates []model.Employee, ref time.Time) (*RankingResult, error) {
	results, err := engine.Ranker.Rank(candidates, req, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to rank candidates for request %s: %w", req.ID, err)
	}

	out := &RankingResult{Request: req, Results: results, Backend: engine.Registry.Active().Name()}
	if len(results) > 0 {
		out.Backend = results[0].Backend
		out.Fallback = results[0].Fallback
	}

	logger.Info("Ranked candidates",
		zap.String("request_id", req.ID),
		zap.Int("candidates", len(results)),
		zap.String("backend", out.Backend),
		zap.Bool("fallback", out.Fallback))

	return out, nil
}
