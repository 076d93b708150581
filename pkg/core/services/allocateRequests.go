package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/internal/config"
	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/model"
)

// AllocateStore is the read model needed to allocate requests
type AllocateStore interface {
	GetRequests(ctx context.Context, ids []string) ([]*model.ManpowerRequest, error)
	AvailableEmployees(ctx context.Context, date time.Time) ([]model.Employee, error)
}

// LineMove moves an allocated employee to another line after allocation
type LineMove struct {
	RequestID  string
	EmployeeID int64
	Line       int
}

// AllocateOptions controls one allocation pass
type AllocateOptions struct {
	RequestIDs []string

	// Strategy overrides the configured default. Empty uses the config, then
	// "optimal" for several requests and "ranked" for one.
	Strategy string

	// Lines and LineCounts apply to every request. When both are unset the
	// config line overrides for the sub-section and date are used.
	Lines      int
	LineCounts []int

	Moves []LineMove
}

// AllocateRequests ranks the available employees for each request and builds
// one plan. Passes for the same sub-section and date are serialized.
//
// When the plan cannot satisfy every request it is returned together with the
// constraint violation error, so the caller can inspect or override it.
func AllocateRequests(ctx context.Context, store AllocateStore, engine *Engine, cfg *config.Config, logger *zap.Logger, opts AllocateOptions) (*allocator.Plan, error) {
	if len(opts.RequestIDs) == 0 {
		return nil, errs.Validation("at least one request id is required")
	}

	strategy, err := resolveStrategy(opts.Strategy, cfg, len(opts.RequestIDs))
	if err != nil {
		return nil, err
	}

	logger.Debug("Fetching requests", zap.Strings("request_ids", opts.RequestIDs))
	requests, err := store.GetRequests(ctx, opts.RequestIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}
	if len(requests) == 0 {
		return nil, errs.NotFound("no requests found for ids %v", opts.RequestIDs)
	}

	first := requests[0]
	unlock := engine.Locks.Lock(allocator.PlanKey(first.SubSection.ID, first.Date))
	defer unlock()

	candidates, err := store.AvailableEmployees(ctx, first.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch available employees: %w", err)
	}
	logger.Debug("Fetched available employees",
		zap.Int("count", len(candidates)),
		zap.String("date", first.Date.Format(time.DateOnly)))

	inputs := make([]allocator.RequestInput, 0, len(requests))
	for _, req := range requests {
		ranked, err := rank(engine, logger, req, candidates, req.Date)
		if err != nil {
			return nil, err
		}

		lines, counts := opts.Lines, opts.LineCounts
		if lines == 0 && len(counts) == 0 {
			var matched bool
			lines, counts, matched = cfg.LinesFor(req.SubSection.ID, req.Date)
			if matched {
				lines, counts = fitLineCounts(req, lines, counts, logger)
				logger.Debug("Applying configured line override",
					zap.String("request_id", req.ID),
					zap.Int("lines", lines),
					zap.Ints("line_counts", counts))
			}
		}

		inputs = append(inputs, allocator.RequestInput{
			Request:    req,
			Ranked:     ranked.Results,
			Lines:      lines,
			LineCounts: counts,
		})
	}

	plan, allocErr := engine.Allocator.Allocate(inputs, strategy)
	if plan == nil {
		return nil, fmt.Errorf("failed to allocate: %w", allocErr)
	}

	for _, m := range opts.Moves {
		if err := allocator.MoveEmployee(plan, m.RequestID, m.EmployeeID, m.Line); err != nil {
			return plan, fmt.Errorf("failed to move employee %d: %w", m.EmployeeID, err)
		}
		logger.Debug("Moved employee",
			zap.String("request_id", m.RequestID),
			zap.Int64("employee_id", m.EmployeeID),
			zap.Int("line", m.Line))
	}

	logger.Info("Allocation plan built",
		zap.String("plan_id", plan.ID.String()),
		zap.String("strategy", string(strategy)),
		zap.Int("requests", len(plan.Requests)),
		zap.Bool("complete", plan.IsComplete()),
		zap.Int("validation_errors", len(plan.ValidationErrors)))

	return plan, allocErr
}

// fitLineCounts keeps configured line counts only when they add up to the
// requested amount. Otherwise the amount is spread evenly over the same number
// of lines, since one override covers requests of any size.
func fitLineCounts(req *model.ManpowerRequest, lines int, counts []int, logger *zap.Logger) (int, []int) {
	if len(counts) == 0 {
		return lines, counts
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum == req.RequestedAmount {
		return lines, counts
	}
	logger.Warn("Configured line counts do not match requested amount, distributing evenly",
		zap.String("request_id", req.ID),
		zap.Ints("line_counts", counts),
		zap.Int("requested", req.RequestedAmount))
	return len(counts), nil
}

func resolveStrategy(requested string, cfg *config.Config, requests int) (allocator.Strategy, error) {
	if requested != "" {
		s, ok := allocator.ParseStrategy(requested)
		if !ok {
			return "", errs.Validation("unknown allocation strategy %q", requested)
		}
		return s, nil
	}
	if cfg.DefaultStrategy != "" {
		return cfg.Strategy(), nil
	}
	if requests > 1 {
		return allocator.StrategyOptimal, nil
	}
	return allocator.StrategyRanked, nil
}
