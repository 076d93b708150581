package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/model"
)

// DefaultShiftHours is recorded for every scheduled position
const DefaultShiftHours = 8.0

// SubmitStore persists a submitted plan
type SubmitStore interface {
	SubmitSchedules(ctx context.Context, records []model.ScheduleRecord, fulfilled []string) error
}

// SubmitPlan writes one schedule record per assigned position and then moves
// the plan to Submitted. Every request in the plan is marked fulfilled;
// incomplete requests need an override, which the allocator logs for audit.
// A failed write leaves the plan as it was so the submit can be retried.
func SubmitPlan(ctx context.Context, store SubmitStore, engine *Engine, logger *zap.Logger, plan *allocator.Plan, override *allocator.Override) ([]model.ScheduleRecord, error) {
	unlock := engine.Locks.Lock(allocator.PlanKey(plan.SubSectionID, plan.Date))
	defer unlock()

	if err := engine.Allocator.CheckSubmit(plan, override); err != nil {
		return nil, err
	}

	records := ScheduleRecords(plan)
	fulfilled := make([]string, 0, len(plan.Requests))
	for _, rp := range plan.Requests {
		fulfilled = append(fulfilled, rp.Request.ID)
	}

	if err := store.SubmitSchedules(ctx, records, fulfilled); err != nil {
		return nil, fmt.Errorf("failed to save schedules: %w", err)
	}

	if err := engine.Allocator.Submit(plan, override); err != nil {
		return nil, err
	}

	logger.Info("Plan submitted",
		zap.String("plan_id", plan.ID.String()),
		zap.Int("schedules", len(records)),
		zap.Strings("fulfilled", fulfilled),
		zap.Bool("override", override != nil))

	return records, nil
}

// ScheduleRecords converts the assigned positions of a plan into schedule records
func ScheduleRecords(plan *allocator.Plan) []model.ScheduleRecord {
	var records []model.ScheduleRecord
	for _, rp := range plan.Requests {
		for _, slot := range rp.Slots {
			if slot.IsEmpty() {
				continue
			}
			records = append(records, model.ScheduleRecord{
				ID:           uuid.New().String(),
				EmployeeID:   slot.EmployeeID(),
				RequestID:    rp.Request.ID,
				SubSectionID: rp.Request.SubSection.ID,
				Date:         model.DayStart(rp.Request.Date),
				Shift:        rp.Request.Shift,
				Hours:        DefaultShiftHours,
				Line:         slot.Line,
			})
		}
	}
	return records
}
